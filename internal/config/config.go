// Package config loads daemon configuration from an optional YAML file.
// Every field has a default so the daemon runs with no file at all;
// the file overrides whatever it sets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Wireless  WirelessConfig  `yaml:"wireless"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Rules     RulesConfig     `yaml:"rules"`
	Intervals IntervalsConfig `yaml:"intervals"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies the device in boot-info publishes.
type DeviceConfig struct {
	Name     string `yaml:"name"`
	Firmware string `yaml:"firmware"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	BrokerURL    string `yaml:"broker_url"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TopicBase    string `yaml:"topic_base"`
	KeepAliveSec int    `yaml:"keepalive_sec"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// WirelessConfig contains wireless-link settings.
type WirelessConfig struct {
	Interface  string `yaml:"interface"`
	MaxRetries int    `yaml:"max_retries"`
}

// GPIOConfig names the GPIO chip and actuator pins.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	LightsPin int    `yaml:"lights_pin"`
	HVACPin   int    `yaml:"hvac_pin"`
}

// RulesConfig contains the actuator rule thresholds.
type RulesConfig struct {
	IlluminationLow int `yaml:"illumination_low"`
	TempHigh        int `yaml:"temp_high"`
	TempLow         int `yaml:"temp_low"`
	ShutoffDelaySec int `yaml:"shutoff_delay_sec"`
}

// IntervalsConfig contains the periodic task cadences, in seconds.
// DemoPublishSec and MonitorSec may be 0 to disable those tasks.
type IntervalsConfig struct {
	TelemetrySec   int `yaml:"telemetry_sec"`
	HealthSec      int `yaml:"health_sec"`
	WatchdogSec    int `yaml:"watchdog_sec"`
	ShutoffSec     int `yaml:"shutoff_sec"`
	DemoPublishSec int `yaml:"demo_publish_sec"`
	MonitorSec     int `yaml:"monitor_sec"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in configuration, matching the demo deployment.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Name:     "casa_central",
			Firmware: "1.0.0",
		},
		MQTT: MQTTConfig{
			BrokerURL:    "tcp://localhost:1883",
			ClientID:     "casa_central_001",
			TopicBase:    "demo/central",
			KeepAliveSec: 60,
			TimeoutSec:   10,
		},
		Wireless: WirelessConfig{
			Interface:  "wlan0",
			MaxRetries: 5,
		},
		GPIO: GPIOConfig{
			Chip:      "gpiochip0",
			LightsPin: 18,
			HVACPin:   19,
		},
		Rules: RulesConfig{
			IlluminationLow: 3,
			TempHigh:        23,
			TempLow:         20,
			ShutoffDelaySec: 600,
		},
		Intervals: IntervalsConfig{
			TelemetrySec:   10,
			HealthSec:      60,
			WatchdogSec:    30,
			ShutoffSec:     10,
			DemoPublishSec: 300,
			MonitorSec:     60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the loaded values for internal consistency.
func (c Config) Validate() error {
	if c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url must not be empty")
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id must not be empty")
	}
	if c.MQTT.TopicBase == "" {
		return fmt.Errorf("mqtt.topic_base must not be empty")
	}
	if c.Wireless.MaxRetries < 0 {
		return fmt.Errorf("wireless.max_retries must not be negative")
	}
	if c.Rules.TempLow >= c.Rules.TempHigh {
		return fmt.Errorf("rules.temp_low (%d) must be below rules.temp_high (%d)",
			c.Rules.TempLow, c.Rules.TempHigh)
	}
	if c.Rules.ShutoffDelaySec <= 0 {
		return fmt.Errorf("rules.shutoff_delay_sec must be positive")
	}
	for name, v := range map[string]int{
		"intervals.telemetry_sec": c.Intervals.TelemetrySec,
		"intervals.health_sec":    c.Intervals.HealthSec,
		"intervals.watchdog_sec":  c.Intervals.WatchdogSec,
		"intervals.shutoff_sec":   c.Intervals.ShutoffSec,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Intervals.DemoPublishSec < 0 || c.Intervals.MonitorSec < 0 {
		return fmt.Errorf("optional intervals must not be negative (0 disables)")
	}
	return nil
}

// ShutoffDelay returns the temperature-rule shutoff delay as a Duration.
func (c Config) ShutoffDelay() time.Duration {
	return time.Duration(c.Rules.ShutoffDelaySec) * time.Second
}
