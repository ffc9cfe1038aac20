package mqtt

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cfern/casa-central/internal/stats"
)

// Facade validates preconditions before delegating to the session and
// keeps the publish counters. It starts without a session; every
// operation fails with ErrSessionNotReady until one is attached and the
// connectivity state machine marks the session up.
type Facade struct {
	topics  Topics
	tracker *stats.Tracker
	logger  *slog.Logger

	mu        sync.RWMutex
	session   Session
	sessionUp bool
}

// NewFacade creates a facade with no session attached.
func NewFacade(topics Topics, tracker *stats.Tracker, logger *slog.Logger) *Facade {
	return &Facade{
		topics:  topics,
		tracker: tracker,
		logger:  logger,
	}
}

// Attach sets the underlying session. Called once during wiring.
func (f *Facade) Attach(s Session) {
	f.mu.Lock()
	f.session = s
	f.mu.Unlock()
}

// SetSessionUp is called by the connectivity state machine on session
// establishment and loss.
func (f *Facade) SetSessionUp(up bool) {
	f.mu.Lock()
	f.sessionUp = up
	f.mu.Unlock()
}

// SessionUp reports whether publishes are currently allowed.
func (f *Facade) SessionUp() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sessionUp && f.session != nil
}

// Topics returns the device topic set.
func (f *Facade) Topics() Topics {
	return f.topics
}

func (f *Facade) ready() (Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.session == nil || !f.sessionUp {
		return nil, false
	}
	return f.session, true
}

// Publish sends one message, counting the attempt either way.
func (f *Facade) Publish(topic string, payload []byte, qos byte, retain bool) (uint16, error) {
	s, ok := f.ready()
	if !ok {
		f.tracker.RecordPublish(false)
		return 0, ErrSessionNotReady
	}

	id, err := s.Publish(topic, qos, retain, payload)
	if err != nil {
		f.tracker.RecordPublish(false)
		f.logger.Warn("publish failed", "topic", topic, "error", err)
		return 0, err
	}
	f.tracker.RecordPublish(true)
	f.logger.Debug("published", "topic", topic, "msg_id", id, "qos", qos)
	return id, nil
}

// Subscribe registers a topic filter. Not counted in the publish stats.
func (f *Facade) Subscribe(topic string, qos byte) (uint16, error) {
	s, ok := f.ready()
	if !ok {
		return 0, ErrSessionNotReady
	}
	id, err := s.Subscribe(topic, qos)
	if err != nil {
		return 0, err
	}
	f.logger.Info("subscribed", "topic", topic, "qos", qos, "msg_id", id)
	return id, nil
}

// Unsubscribe removes a topic filter.
func (f *Facade) Unsubscribe(topic string) (uint16, error) {
	s, ok := f.ready()
	if !ok {
		return 0, ErrSessionNotReady
	}
	id, err := s.Unsubscribe(topic)
	if err != nil {
		return 0, err
	}
	f.logger.Info("unsubscribed", "topic", topic, "msg_id", id)
	return id, nil
}

// SubscribeAll issues the fixed subscription batch. Individual failures
// are collected so one bad filter does not mask the rest.
func (f *Facade) SubscribeAll() error {
	var firstErr error
	for _, sub := range f.topics.SubscriptionBatch() {
		if _, err := f.Subscribe(sub.Topic, sub.QoS); err != nil {
			f.logger.Error("subscription failed", "topic", sub.Topic, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PublishStatus publishes the retained online/offline marker.
func (f *Facade) PublishStatus(online bool) (uint16, error) {
	payload := "offline"
	if online {
		payload = "online"
	}
	return f.Publish(f.topics.Status(), []byte(payload), 1, true)
}

// PublishTelemetry formats and publishes one telemetry sample.
func (f *Facade) PublishTelemetry(s TelemetrySample) (uint16, error) {
	payload, err := FormatTelemetry(s)
	if err != nil {
		return 0, fmt.Errorf("format telemetry: %w", err)
	}
	return f.Publish(f.topics.Telemetry(), payload, 1, false)
}

// PublishHealth formats and publishes one health report.
func (f *Facade) PublishHealth(r HealthReport) (uint16, error) {
	payload, err := FormatHealth(r)
	if err != nil {
		return 0, fmt.Errorf("format health: %w", err)
	}
	return f.Publish(f.topics.Health(), payload, 0, false)
}

// PublishBoot formats and publishes the boot-info message.
func (f *Facade) PublishBoot(b BootInfo) (uint16, error) {
	payload, err := FormatBoot(b)
	if err != nil {
		return 0, fmt.Errorf("format boot info: %w", err)
	}
	return f.Publish(f.topics.Boot(), payload, 1, false)
}

// PublishAlert formats and publishes an alert.
func (f *Facade) PublishAlert(a Alert) (uint16, error) {
	payload, err := FormatAlert(a)
	if err != nil {
		return 0, fmt.Errorf("format alert: %w", err)
	}
	return f.Publish(f.topics.Alerts(), payload, 1, false)
}
