package mqtt

// Fixed sensor and override topics. These are wire contract with the rest
// of the installation and do not derive from the device topic base.
const (
	TopicIllumination = "casa/externo/luminosidade"
	TopicTemperature  = "casa/sala/temperatura"
	TopicHVACOverride = "casa/sala/ar_condicionado/set"

	// TopicConfigBroadcast carries fleet-wide configuration pushes.
	TopicConfigBroadcast = "demo/config/#"
)

// DefaultBase is the device topic prefix.
const DefaultBase = "demo/central"

// Topics derives the device topic set from a base prefix.
type Topics struct {
	Base string
}

// NewTopics returns the topic set for the given base, falling back to
// DefaultBase when empty.
func NewTopics(base string) Topics {
	if base == "" {
		base = DefaultBase
	}
	return Topics{Base: base}
}

// Status is the retained online/offline topic, also used as last-will.
func (t Topics) Status() string { return t.Base + "/status" }

// Telemetry carries periodic sensor samples.
func (t Topics) Telemetry() string { return t.Base + "/telemetria" }

// Health carries periodic health snapshots.
func (t Topics) Health() string { return t.Base + "/health" }

// Commands receives system commands for this device.
func (t Topics) Commands() string { return t.Base + "/comandos" }

// Config receives the retained per-device configuration.
func (t Topics) Config() string { return t.Base + "/config" }

// Boot carries the one-shot boot-info message.
func (t Topics) Boot() string { return t.Base + "/boot" }

// Alerts carries actuator confirmations and health alerts.
func (t Topics) Alerts() string { return t.Base + "/alertas" }

// Custom carries the demo publisher's counter payload.
func (t Topics) Custom() string { return t.Base + "/custom" }

// Subscription pairs a topic filter with its QoS.
type Subscription struct {
	Topic string
	QoS   byte
}

// SubscriptionBatch is the fixed set issued on every session
// establishment. Order is stable so tests and logs stay readable.
func (t Topics) SubscriptionBatch() []Subscription {
	return []Subscription{
		{Topic: t.Commands(), QoS: 1},
		{Topic: t.Config(), QoS: 0},
		{Topic: TopicConfigBroadcast, QoS: 0},
		{Topic: TopicIllumination, QoS: 1},
		{Topic: TopicTemperature, QoS: 1},
		{Topic: TopicHVACOverride, QoS: 1},
	}
}
