package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// SessionOptions configures the broker connection.
type SessionOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// StatusTopic receives the retained "offline" last-will.
	StatusTopic string

	KeepAlive time.Duration
	Timeout   time.Duration
}

// PahoSession is a Session backed by eclipse/paho.mqtt.golang.
//
// Session-level reconnection is delegated entirely to the paho client;
// this wrapper only surfaces connect/lost events through Callbacks.
type PahoSession struct {
	client  paho.Client
	timeout time.Duration
	seq     uint16
}

// NewPahoSession builds the client with last-will and auto-reconnect
// configured. It does not connect; call Connect.
func NewPahoSession(opts SessionOptions, cb Callbacks, logger *slog.Logger) *PahoSession {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 60 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	co := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetKeepAlive(opts.KeepAlive).
		SetPingTimeout(opts.Timeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second).
		SetWill(opts.StatusTopic, "offline", 1, true)

	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	co.SetOnConnectHandler(func(_ paho.Client) {
		logger.Info("broker session up", "broker", opts.BrokerURL)
		if cb.OnConnect != nil {
			cb.OnConnect()
		}
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("broker session lost", "error", err)
		if cb.OnConnectionLost != nil {
			cb.OnConnectionLost(err)
		}
	})
	co.SetDefaultPublishHandler(func(_ paho.Client, m paho.Message) {
		if cb.OnMessage != nil {
			cb.OnMessage(m.Topic(), m.Payload())
		}
	})

	return &PahoSession{
		client:  paho.NewClient(co),
		timeout: opts.Timeout,
	}
}

// Connect starts the session and waits up to the configured timeout for
// the first connection. With connect-retry enabled the client keeps
// trying in the background after a timeout.
func (s *PahoSession) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("connect timeout after %v", s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Publish sends one message and waits for the client to accept it.
func (s *PahoSession) Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error) {
	token := s.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(s.timeout) {
		return 0, fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("publish on %s: %w", topic, err)
	}

	if pt, ok := token.(*paho.PublishToken); ok {
		return pt.MessageID(), nil
	}
	return 0, nil
}

// Subscribe registers a topic filter. Messages arrive through the
// default publish handler wired in NewPahoSession. Paho does not expose
// a message id for subscriptions, so a local sequence stands in.
func (s *PahoSession) Subscribe(topic string, qos byte) (uint16, error) {
	token := s.client.Subscribe(topic, qos, nil)
	if !token.WaitTimeout(s.timeout) {
		return 0, fmt.Errorf("subscribe timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("subscribe on %s: %w", topic, err)
	}
	s.seq++
	return s.seq, nil
}

// Unsubscribe removes a topic filter.
func (s *PahoSession) Unsubscribe(topic string) (uint16, error) {
	token := s.client.Unsubscribe(topic)
	if !token.WaitTimeout(s.timeout) {
		return 0, fmt.Errorf("unsubscribe timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("unsubscribe on %s: %w", topic, err)
	}
	s.seq++
	return s.seq, nil
}

// IsConnected reports the live connection state.
func (s *PahoSession) IsConnected() bool {
	return s.client.IsConnected()
}

// Disconnect closes the session.
func (s *PahoSession) Disconnect(quiesceMs uint) {
	s.client.Disconnect(quiesceMs)
}
