// Package conn owns the connectivity state machine. All transitions run
// on a single dispatch goroutine fed by an event channel, so callback
// sources (the session client, the link watchdog, startup) never touch
// the state directly.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cfern/casa-central/internal/health"
	"github.com/cfern/casa-central/internal/link"
	"github.com/cfern/casa-central/internal/mqtt"
	"github.com/cfern/casa-central/internal/rules"
	"github.com/cfern/casa-central/internal/stats"
)

// ErrLinkRetryExhausted is logged and surfaced by Err once the bounded
// link retry budget is spent.
var ErrLinkRetryExhausted = errors.New("link retry attempts exhausted")

// ErrInvalidArgument marks an unparsable payload or unknown command.
var ErrInvalidArgument = errors.New("invalid argument")

// DefaultMaxRetries bounds consecutive link reconnect attempts.
const DefaultMaxRetries = 5

// eventBuffer sizes the dispatch channel. Producers drop on overflow
// rather than block a paho callback goroutine.
const eventBuffer = 64

// Machine is the connectivity state machine. Construct with NewMachine,
// then run exactly one Run goroutine; every other method is safe from
// any goroutine.
type Machine struct {
	logger  *slog.Logger
	facade  *mqtt.Facade
	tracker *stats.Tracker
	link    link.Link
	illum   *rules.Illumination
	temp    *rules.Temperature
	hp      *health.Provider
	boot    mqtt.BootInfo

	maxRetries int
	now        func() time.Time

	events chan Event

	mu         sync.Mutex
	state      State
	retryCount int
	bootSent   bool
	lastErr    error
}

// NewMachine wires the state machine. The boot info is published once,
// after the first session establishment.
func NewMachine(logger *slog.Logger, facade *mqtt.Facade, tracker *stats.Tracker,
	lk link.Link, illum *rules.Illumination, temp *rules.Temperature,
	hp *health.Provider, boot mqtt.BootInfo) *Machine {
	return &Machine{
		logger:     logger,
		facade:     facade,
		tracker:    tracker,
		link:       lk,
		illum:      illum,
		temp:       temp,
		hp:         hp,
		boot:       boot,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		events:     make(chan Event, eventBuffer),
	}
}

// SetMaxRetries overrides the link retry budget. Call before Run.
func (m *Machine) SetMaxRetries(n int) {
	if n > 0 {
		m.maxRetries = n
	}
}

// Dispatch queues one event. Never blocks; a full channel drops the
// event with a warning, which the watchdog's next poll repairs.
func (m *Machine) Dispatch(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("event dropped, dispatch channel full", "kind", ev.Kind.String())
	}
}

// Run consumes the event channel until the context is cancelled.
func (m *Machine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

// State returns the current connectivity state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionUp reports whether the broker session is established.
func (m *Machine) SessionUp() bool { return m.State() == SessionUp }

// LinkUp reports whether the wireless link has a carrier.
func (m *Machine) LinkUp() bool {
	s := m.State()
	return s == LinkUp || s == SessionUp
}

// Err returns the last connectivity error, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		m.logger.Info("connectivity state", "from", prev.String(), "to", s.String())
	}
}

// handle applies one event. Runs only on the dispatch goroutine.
func (m *Machine) handle(ev Event) {
	switch ev.Kind {
	case LinkStarted:
		m.setState(Connecting)
		if err := m.link.Connect(); err != nil {
			m.logger.Error("link connect failed", "error", err)
			m.mu.Lock()
			m.lastErr = err
			m.mu.Unlock()
		}

	case LinkEstablished:
		m.mu.Lock()
		m.retryCount = 0
		m.lastErr = nil
		up := m.state == SessionUp
		m.mu.Unlock()
		// A carrier report while the session is already up is the
		// watchdog confirming steady state.
		if !up {
			m.setState(LinkUp)
		}

	case LinkLost:
		m.sessionDown(ev.Err)
		m.mu.Lock()
		m.retryCount++
		attempt := m.retryCount
		exhausted := attempt > m.maxRetries
		if exhausted {
			m.lastErr = ErrLinkRetryExhausted
		}
		m.mu.Unlock()
		if exhausted {
			m.setState(RetryFailed)
			m.logger.Error("link retries exhausted", "attempts", m.maxRetries,
				"error", ErrLinkRetryExhausted)
			return
		}
		m.setState(Connecting)
		m.logger.Warn("link lost, reconnecting", "attempt", attempt, "max", m.maxRetries)
		if err := m.link.Connect(); err != nil {
			m.logger.Error("link reconnect failed", "attempt", attempt, "error", err)
		}

	case SessionEstablished:
		m.setState(SessionUp)
		m.facade.SetSessionUp(true)
		m.tracker.MarkOnline(m.now())
		if err := m.facade.SubscribeAll(); err != nil {
			m.logger.Error("subscription batch incomplete", "error", err)
		}
		if _, err := m.facade.PublishStatus(true); err != nil {
			m.logger.Warn("status publish failed", "error", err)
		}
		m.mu.Lock()
		first := !m.bootSent
		m.bootSent = true
		m.mu.Unlock()
		if first {
			if _, err := m.facade.PublishBoot(m.boot); err != nil {
				m.logger.Warn("boot info publish failed", "error", err)
			}
		}

	case SessionLost:
		m.sessionDown(ev.Err)

	case Message:
		m.tracker.RecordReceived(m.now())
		m.route(ev.Topic, ev.Payload)
	}
}

// sessionDown performs session-loss bookkeeping once per established
// session. LinkLost while the session is up runs it too, so the later
// SessionLost from the client finds the state already moved and skips
// the counters.
func (m *Machine) sessionDown(cause error) {
	m.mu.Lock()
	wasUp := m.state == SessionUp
	m.mu.Unlock()
	if !wasUp {
		return
	}
	m.setState(LinkUp)
	m.facade.SetSessionUp(false)
	m.tracker.RecordDisconnect()
	m.tracker.MarkOffline(m.now())
	m.logger.Warn("session lost", "error", cause)
}

// route delivers one incoming message to its handler.
func (m *Machine) route(topic string, payload []byte) {
	t := m.facade.Topics()
	text := strings.TrimSpace(string(payload))

	switch {
	case topic == mqtt.TopicIllumination:
		v, err := parseReading(text)
		if err != nil {
			m.logger.Warn("bad illumination reading", "payload", text, "error", err)
			return
		}
		ch, err := m.illum.HandleReading(v)
		if err != nil {
			m.logger.Error("lights actuation failed", "error", err)
			return
		}
		m.confirm(ch)

	case topic == mqtt.TopicTemperature:
		v, err := parseReading(text)
		if err != nil {
			m.logger.Warn("bad temperature reading", "payload", text, "error", err)
			return
		}
		ch, err := m.temp.HandleReading(v, m.now())
		if err != nil {
			m.logger.Error("hvac actuation failed", "error", err)
			return
		}
		m.confirm(ch)

	case topic == mqtt.TopicHVACOverride:
		on, err := parseLevel(text)
		if err != nil {
			m.logger.Warn("bad hvac override", "payload", text, "error", err)
			return
		}
		ch, err := m.temp.ForceSet(on)
		if err != nil {
			m.logger.Error("hvac override failed", "error", err)
			return
		}
		m.confirm(ch)

	case topic == t.Commands():
		m.command(text)

	case topic == t.Config() || strings.HasPrefix(topic, "demo/config/"):
		m.logger.Info("config received", "topic", topic, "payload", text)

	default:
		m.logger.Debug("unhandled topic", "topic", topic)
	}
}

// confirm publishes an actuator confirmation. Best effort: a publish
// failure is already counted by the facade.
func (m *Machine) confirm(ch *rules.Change) {
	if ch == nil {
		return
	}
	m.logger.Info("actuator change", "actuator", ch.Actuator,
		"state", ch.StateWord(), "reason", ch.Reason)
	if _, err := m.facade.PublishAlert(mqtt.Alert{
		Actuator:  ch.Actuator,
		State:     ch.StateWord(),
		Reason:    ch.Reason,
		Timestamp: m.now(),
	}); err != nil {
		m.logger.Warn("confirmation publish failed", "error", err)
	}
}

// command handles one system command.
func (m *Machine) command(text string) {
	switch strings.ToLower(text) {
	case "reset_stats":
		m.tracker.Reset()
		m.logger.Info("statistics reset by command")

	case "status":
		snap := m.hp.Sample()
		counters := m.tracker.Snapshot()
		if _, err := m.facade.PublishHealth(mqtt.HealthReport{
			FreeHeap:     snap.FreeMemory,
			MinFreeHeap:  snap.MinFreeMemory,
			WifiRSSI:     snap.Signal,
			UptimeSec:    snap.UptimeSeconds,
			MQTTUp:       snap.SessionUp,
			MsgsSent:     counters.Published,
			MsgsReceived: counters.Received,
			MQTTFailures: counters.PublishFailures,
			Disconnects:  counters.Disconnects,
		}); err != nil {
			m.logger.Warn("status command publish failed", "error", err)
		}

	case "ping":
		if _, err := m.facade.Publish(m.facade.Topics().Custom(),
			[]byte("pong"), 0, false); err != nil {
			m.logger.Warn("ping reply failed", "error", err)
		}

	default:
		m.logger.Warn("unknown command", "command", text,
			"error", ErrInvalidArgument)
	}
}

// parseReading accepts integer or decimal sensor payloads.
func parseReading(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidArgument, s)
	}
	return int(f), nil
}

// parseLevel accepts the override vocabulary for an output level.
func parseLevel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "ligado":
		return true, nil
	case "off", "0", "desligado":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidArgument, s)
}
