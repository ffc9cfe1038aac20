package mqtt

import "sync"

// FakeMessage records a single published message.
type FakeMessage struct {
	Topic   string
	QoS     byte
	Retain  bool
	Payload []byte
}

// FakeSession records session activity for test assertions.
type FakeSession struct {
	mu sync.Mutex

	// Connected controls IsConnected.
	Connected bool

	// Published contains every message passed to Publish.
	Published []FakeMessage

	// Subscribed and Unsubscribed contain topic filters in call order.
	Subscribed   []Subscription
	Unsubscribed []string

	// ConnectErr, PublishErr, SubscribeErr are returned by the matching
	// methods when set.
	ConnectErr   error
	PublishErr   error
	SubscribeErr error

	// DisconnectCalls counts calls to Disconnect.
	DisconnectCalls int

	nextID uint16
}

// NewFakeSession creates a FakeSession that reports disconnected.
func NewFakeSession() *FakeSession {
	return &FakeSession{}
}

// Connect flips the session to connected unless ConnectErr is set.
func (f *FakeSession) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	return nil
}

// Publish records the message.
func (f *FakeSession) Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return 0, f.PublishErr
	}
	f.Published = append(f.Published, FakeMessage{
		Topic:   topic,
		QoS:     qos,
		Retain:  retain,
		Payload: append([]byte(nil), payload...),
	})
	f.nextID++
	return f.nextID, nil
}

// Subscribe records the filter.
func (f *FakeSession) Subscribe(topic string, qos byte) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeErr != nil {
		return 0, f.SubscribeErr
	}
	f.Subscribed = append(f.Subscribed, Subscription{Topic: topic, QoS: qos})
	f.nextID++
	return f.nextID, nil
}

// Unsubscribe records the filter.
func (f *FakeSession) Unsubscribe(topic string) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unsubscribed = append(f.Unsubscribed, topic)
	f.nextID++
	return f.nextID, nil
}

// IsConnected reports the scripted state.
func (f *FakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Disconnect marks the session disconnected.
func (f *FakeSession) Disconnect(quiesceMs uint) {
	f.mu.Lock()
	f.Connected = false
	f.DisconnectCalls++
	f.mu.Unlock()
}

// Messages returns a copy of everything published.
func (f *FakeSession) Messages() []FakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeMessage(nil), f.Published...)
}

// MessagesOn returns every published message for one topic.
func (f *FakeSession) MessagesOn(topic string) []FakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeMessage
	for _, m := range f.Published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Reset clears recorded activity.
func (f *FakeSession) Reset() {
	f.mu.Lock()
	f.Published = nil
	f.Subscribed = nil
	f.Unsubscribed = nil
	f.DisconnectCalls = 0
	f.mu.Unlock()
}
