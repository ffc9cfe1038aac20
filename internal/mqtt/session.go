// Package mqtt provides the broker session and the publish/subscribe
// facade, with abstraction for testing.
package mqtt

import "errors"

// ErrSessionNotReady is returned for any publish or subscribe attempted
// while the broker session is down or no session is attached.
var ErrSessionNotReady = errors.New("mqtt: session not ready")

// MessageHandler receives inbound messages. Handlers run on the client's
// delivery goroutine and must not block.
type MessageHandler func(topic string, payload []byte)

// Session is the broker client as the facade sees it.
type Session interface {
	// Connect establishes the session. The client keeps retrying in the
	// background after a timeout, so a timeout error means "degraded",
	// not "failed for good".
	Connect() error

	// Publish sends one message and returns the client's message id.
	Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error)

	// Subscribe registers a topic filter. Inbound messages are delivered
	// through the handler passed at session construction.
	Subscribe(topic string, qos byte) (uint16, error)

	// Unsubscribe removes a topic filter.
	Unsubscribe(topic string) (uint16, error)

	// IsConnected reports the live connection state.
	IsConnected() bool

	// Disconnect closes the session, waiting up to quiesceMs for
	// in-flight work to finish.
	Disconnect(quiesceMs uint)
}

// Callbacks carries the session's asynchronous event hooks. All fields
// are optional.
type Callbacks struct {
	// OnConnect fires when the session comes up, including reconnects.
	OnConnect func()

	// OnConnectionLost fires when an established session drops.
	OnConnectionLost func(err error)

	// OnMessage receives every inbound message.
	OnMessage MessageHandler
}
