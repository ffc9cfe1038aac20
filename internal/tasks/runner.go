// Package tasks runs the daemon's periodic work: telemetry, health
// reports, the link watchdog, the shutoff check, and the optional demo
// publisher and monitor. Each task is a tick method driven by a loop,
// so tests feed ticks directly and never wait on wall time.
package tasks

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/cfern/casa-central/internal/config"
	"github.com/cfern/casa-central/internal/conn"
	"github.com/cfern/casa-central/internal/health"
	"github.com/cfern/casa-central/internal/link"
	"github.com/cfern/casa-central/internal/mqtt"
	"github.com/cfern/casa-central/internal/rules"
	"github.com/cfern/casa-central/internal/stats"
)

// Runner owns the periodic task set.
type Runner struct {
	logger    *slog.Logger
	facade    *mqtt.Facade
	tracker   *stats.Tracker
	hp        *health.Provider
	temp      *rules.Temperature
	lk        link.Link
	machine   *conn.Machine
	intervals config.IntervalsConfig

	now  func() time.Time
	rand *rand.Rand

	mu           sync.Mutex
	counter      uint32
	demoCount    uint32
	linkWasUp    bool
	linkSeen     bool
	memWarned    bool
	signalWarned bool

	wg sync.WaitGroup
}

// NewRunner wires the task set. Tasks with a zero interval stay disabled.
func NewRunner(logger *slog.Logger, facade *mqtt.Facade, tracker *stats.Tracker,
	hp *health.Provider, temp *rules.Temperature, lk link.Link,
	machine *conn.Machine, intervals config.IntervalsConfig) *Runner {
	return &Runner{
		logger:    logger,
		facade:    facade,
		tracker:   tracker,
		hp:        hp,
		temp:      temp,
		lk:        lk,
		machine:   machine,
		intervals: intervals,
		now:       time.Now,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start launches one goroutine per enabled task. Tasks stop when the
// context is cancelled; Wait blocks until they have all returned.
func (r *Runner) Start(ctx context.Context) {
	r.spawn(ctx, r.intervals.TelemetrySec, r.telemetryTick)
	r.spawn(ctx, r.intervals.HealthSec, r.healthTick)
	r.spawn(ctx, r.intervals.WatchdogSec, r.watchdogTick)
	r.spawn(ctx, r.intervals.ShutoffSec, r.shutoffTick)
	r.spawn(ctx, r.intervals.DemoPublishSec, r.demoTick)
	r.spawn(ctx, r.intervals.MonitorSec, r.monitorTick)
}

// Wait blocks until every task goroutine has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) spawn(ctx context.Context, intervalSec int, tick func(time.Time)) {
	if intervalSec <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
		defer ticker.Stop()
		runLoop(ctx, ticker.C, tick)
	}()
}

func runLoop(ctx context.Context, tick <-chan time.Time, fn func(time.Time)) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tick:
			fn(t)
		}
	}
}

// telemetryTick publishes one demo sensor sample. Skipped while the
// session is down so the failure counters reflect real losses only.
func (r *Runner) telemetryTick(now time.Time) {
	if !r.facade.SessionUp() {
		r.logger.Debug("telemetry skipped, session down")
		return
	}

	r.mu.Lock()
	r.counter++
	sample := mqtt.TelemetrySample{
		Temperature: 20.0 + float64(r.rand.Intn(150))/10.0,
		Humidity:    40.0 + float64(r.rand.Intn(400))/10.0,
		Counter:     r.counter,
		TimestampMS: uint64(now.UnixMilli()),
	}
	r.mu.Unlock()

	if _, err := r.facade.PublishTelemetry(sample); err != nil {
		r.logger.Warn("telemetry publish failed", "error", err)
	}
}

// healthTick samples a health snapshot, publishes it when the session is
// up, and raises alerts on threshold crossings. Sampling always runs so
// the min-free tracking and warning edges stay live while offline; the
// publish is skipped like the other periodic publishers so the failure
// counters reflect real losses only.
func (r *Runner) healthTick(now time.Time) {
	snap := r.hp.Sample()

	if r.facade.SessionUp() {
		counters := r.tracker.Snapshot()
		if _, err := r.facade.PublishHealth(mqtt.HealthReport{
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
			r.logger.Warn("health publish failed", "error", err)
		}
	} else {
		r.logger.Debug("health publish skipped, session down")
	}

	r.mu.Lock()
	memEdge := snap.LowMemory() && !r.memWarned
	r.memWarned = snap.LowMemory()
	sigEdge := snap.WeakSignal() && !r.signalWarned
	r.signalWarned = snap.WeakSignal()
	r.mu.Unlock()

	if memEdge {
		r.logger.Warn("low free memory", "free_bytes", snap.FreeMemory)
		r.alert("memoria", "baixa", now)
	}
	if sigEdge {
		r.logger.Warn("weak wireless signal", "rssi_dbm", snap.Signal)
		r.alert("sinal", "fraco", now)
	}
}

// alert publishes a monitoring alert when the session is up. The log
// warning at the call site fires either way.
func (r *Runner) alert(subject, state string, now time.Time) {
	if !r.facade.SessionUp() {
		return
	}
	if _, err := r.facade.PublishAlert(mqtt.Alert{
		Actuator:  subject,
		State:     state,
		Reason:    "monitoramento",
		Timestamp: now,
	}); err != nil {
		r.logger.Warn("alert publish failed", "subject", subject, "error", err)
	}
}

// watchdogTick polls the link carrier and reports edges to the state
// machine. A failed poll is logged and the previous state kept. The
// first poll only records a baseline: startup has already told the
// machine about the initial carrier state, and an edge landing in the
// gap before this first poll is caught on the next one or by the
// session callbacks.
func (r *Runner) watchdogTick(now time.Time) {
	up, err := r.lk.State()
	if err != nil {
		r.logger.Warn("link state poll failed", "error", err)
		return
	}

	r.mu.Lock()
	seen := r.linkSeen
	was := r.linkWasUp
	r.linkSeen = true
	r.linkWasUp = up
	r.mu.Unlock()

	if !seen || was == up {
		return
	}
	if up {
		r.machine.Dispatch(conn.Event{Kind: conn.LinkEstablished})
	} else {
		r.machine.Dispatch(conn.Event{Kind: conn.LinkLost})
	}
}

// shutoffTick enforces the temperature rule countdown.
func (r *Runner) shutoffTick(now time.Time) {
	ch, err := r.temp.CheckShutoff(now)
	if err != nil {
		r.logger.Error("shutoff actuation failed", "error", err)
		return
	}
	if ch == nil {
		return
	}
	r.logger.Info("shutoff timer fired", "actuator", ch.Actuator)
	if _, err := r.facade.PublishAlert(mqtt.Alert{
		Actuator:  ch.Actuator,
		State:     ch.StateWord(),
		Reason:    ch.Reason,
		Timestamp: now,
	}); err != nil {
		r.logger.Warn("shutoff confirmation failed", "error", err)
	}
}

// demoTick publishes synthetic sensor readings so a standalone
// installation exercises the rule paths, plus a counter payload.
func (r *Runner) demoTick(now time.Time) {
	if !r.facade.SessionUp() {
		return
	}

	r.mu.Lock()
	r.demoCount++
	count := r.demoCount
	lum := r.rand.Intn(11)
	temp := r.rand.Intn(49) - 3
	r.mu.Unlock()

	topics := r.facade.Topics()
	if _, err := r.facade.Publish(mqtt.TopicIllumination,
		[]byte(strconv.Itoa(lum)), 1, false); err != nil {
		r.logger.Warn("demo illumination publish failed", "error", err)
	}
	if _, err := r.facade.Publish(mqtt.TopicTemperature,
		[]byte(strconv.Itoa(temp)), 1, false); err != nil {
		r.logger.Warn("demo temperature publish failed", "error", err)
	}

	payload := []byte(`{"publish_count":` + strconv.Itoa(int(count)) + `,"status":"operational"}`)
	if _, err := r.facade.Publish(topics.Custom(), payload, 0, false); err != nil {
		r.logger.Warn("demo counter publish failed", "error", err)
	}
}

// monitorTick logs a one-line operational summary. No publishes.
func (r *Runner) monitorTick(now time.Time) {
	snap := r.hp.Sample()
	counters := r.tracker.Snapshot()
	on, armed := r.temp.Status()

	r.logger.Info("system monitor",
		"state", r.machine.State().String(),
		"free_bytes", snap.FreeMemory,
		"rssi_dbm", snap.Signal,
		"uptime_sec", snap.UptimeSeconds,
		"sent", counters.Published,
		"received", counters.Received,
		"failures", counters.PublishFailures,
		"disconnects", counters.Disconnects,
		"hvac_on", on,
		"shutoff_armed", !armed.IsZero(),
	)
}
