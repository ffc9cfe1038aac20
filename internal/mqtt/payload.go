package mqtt

import (
	"encoding/json"
	"time"
)

// Payload key names follow the installation's existing wire contract, so
// several of them are Portuguese or carry legacy names (idf_version).

// TelemetrySample is one periodic sensor sample. Ephemeral: it exists
// only for the duration of formatting and publish.
type TelemetrySample struct {
	Temperature float64
	Humidity    float64
	Counter     uint32
	TimestampMS uint64
}

type telemetryPayload struct {
	Temperatura float64 `json:"temperatura"`
	Umidade     float64 `json:"umidade"`
	Contador    uint32  `json:"contador"`
	Timestamp   uint64  `json:"timestamp"`
}

// FormatTelemetry builds the telemetry JSON payload.
func FormatTelemetry(s TelemetrySample) ([]byte, error) {
	return json.Marshal(telemetryPayload{
		Temperatura: s.Temperature,
		Umidade:     s.Humidity,
		Contador:    s.Counter,
		Timestamp:   s.TimestampMS,
	})
}

// HealthReport combines a health snapshot with the message counters for
// the /health payload.
type HealthReport struct {
	FreeHeap     uint64
	MinFreeHeap  uint64
	WifiRSSI     int
	UptimeSec    uint64
	MQTTUp       bool
	MsgsSent     uint32
	MsgsReceived uint32
	MQTTFailures uint32
	Disconnects  uint32
}

type healthPayload struct {
	FreeHeap      uint64 `json:"free_heap"`
	MinFreeHeap   uint64 `json:"min_free_heap"`
	WifiRSSI      int    `json:"wifi_rssi"`
	UptimeSec     uint64 `json:"uptime_sec"`
	MQTTConnected bool   `json:"mqtt_connected"`
	MsgsSent      uint32 `json:"msgs_sent"`
	MsgsReceived  uint32 `json:"msgs_received"`
	MQTTFailures  uint32 `json:"mqtt_failures"`
	Disconnects   uint32 `json:"disconnects"`
}

// FormatHealth builds the health JSON payload.
func FormatHealth(r HealthReport) ([]byte, error) {
	return json.Marshal(healthPayload{
		FreeHeap:      r.FreeHeap,
		MinFreeHeap:   r.MinFreeHeap,
		WifiRSSI:      r.WifiRSSI,
		UptimeSec:     r.UptimeSec,
		MQTTConnected: r.MQTTUp,
		MsgsSent:      r.MsgsSent,
		MsgsReceived:  r.MsgsReceived,
		MQTTFailures:  r.MQTTFailures,
		Disconnects:   r.Disconnects,
	})
}

// BootInfo is the one-shot boot-info message published after the first
// session establishment.
type BootInfo struct {
	Device      string `json:"device"`
	Firmware    string `json:"firmware"`
	ResetReason int    `json:"reset_reason"`
	FreeHeap    uint64 `json:"free_heap"`
	IDFVersion  string `json:"idf_version"`
}

// FormatBoot builds the boot-info JSON payload.
func FormatBoot(b BootInfo) ([]byte, error) {
	return json.Marshal(b)
}

// Alert is an actuator confirmation or health alert for /alertas.
type Alert struct {
	Actuator  string
	State     string
	Reason    string
	Timestamp time.Time
}

type alertPayload struct {
	Atuador   string `json:"atuador"`
	Estado    string `json:"estado"`
	Motivo    string `json:"motivo"`
	Timestamp string `json:"timestamp"`
}

// FormatAlert builds the alert JSON payload.
func FormatAlert(a Alert) ([]byte, error) {
	return json.Marshal(alertPayload{
		Atuador:   a.Actuator,
		Estado:    a.State,
		Motivo:    a.Reason,
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
	})
}
