// Command casa-central runs the home-automation demo node: it bridges
// sensor readings from the broker to two GPIO actuators and publishes
// telemetry, health and status back.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cfern/casa-central/internal/config"
	"github.com/cfern/casa-central/internal/conn"
	"github.com/cfern/casa-central/internal/gpio"
	"github.com/cfern/casa-central/internal/health"
	"github.com/cfern/casa-central/internal/link"
	"github.com/cfern/casa-central/internal/logging"
	"github.com/cfern/casa-central/internal/mqtt"
	"github.com/cfern/casa-central/internal/rules"
	"github.com/cfern/casa-central/internal/stats"
	"github.com/cfern/casa-central/internal/tasks"
)

// linkWait bounds how long startup waits for a carrier before going on
// in degraded mode. The watchdog picks the link up later either way.
const linkWait = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file (empty for defaults)")
	broker := flag.String("broker", "", "MQTT broker URL (overrides config)")
	printStatus := flag.Bool("print-status", false, "print link status and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *broker != "" {
		cfg.MQTT.BrokerURL = *broker
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *printStatus); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, printStatus bool) error {
	lk, err := link.NewWireless(cfg.Wireless.Interface)
	if err != nil {
		return fmt.Errorf("init link: %w", err)
	}
	defer lk.Close()

	if printStatus {
		return printLinkStatus(os.Stdout, lk)
	}

	lights, err := gpio.NewRealOutput(cfg.GPIO.Chip, cfg.GPIO.LightsPin)
	if err != nil {
		return fmt.Errorf("init lights output: %w", err)
	}
	defer lights.Close()

	hvac, err := gpio.NewRealOutput(cfg.GPIO.Chip, cfg.GPIO.HVACPin)
	if err != nil {
		return fmt.Errorf("init hvac output: %w", err)
	}
	defer hvac.Close()

	tracker := stats.NewTracker()
	topics := mqtt.NewTopics(cfg.MQTT.TopicBase)
	facade := mqtt.NewFacade(topics, tracker, logger)

	illum := rules.NewIllumination(lights, cfg.Rules.IlluminationLow)
	temp := rules.NewTemperature(hvac, cfg.Rules.TempHigh, cfg.Rules.TempLow, cfg.ShutoffDelay())
	hp := health.NewProvider(time.Now(), lk, facade.SessionUp)

	machine := conn.NewMachine(logger, facade, tracker, lk, illum, temp, hp, mqtt.BootInfo{
		Device:     cfg.Device.Name,
		Firmware:   cfg.Device.Firmware,
		FreeHeap:   freeHeap(),
		IDFVersion: runtime.Version(),
	})
	machine.SetMaxRetries(cfg.Wireless.MaxRetries)

	session := mqtt.NewPahoSession(mqtt.SessionOptions{
		BrokerURL:   cfg.MQTT.BrokerURL,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		StatusTopic: topics.Status(),
		KeepAlive:   time.Duration(cfg.MQTT.KeepAliveSec) * time.Second,
		Timeout:     time.Duration(cfg.MQTT.TimeoutSec) * time.Second,
	}, mqtt.Callbacks{
		OnConnect: func() {
			machine.Dispatch(conn.Event{Kind: conn.SessionEstablished})
		},
		OnConnectionLost: func(err error) {
			machine.Dispatch(conn.Event{Kind: conn.SessionLost, Err: err})
		},
		OnMessage: func(topic string, payload []byte) {
			machine.Dispatch(conn.Event{Kind: conn.Message, Topic: topic, Payload: payload})
		},
	}, logger)
	facade.Attach(session)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go machine.Run(ctx)

	machine.Dispatch(conn.Event{Kind: conn.LinkStarted})
	if waitForLink(ctx, lk, linkWait) {
		machine.Dispatch(conn.Event{Kind: conn.LinkEstablished})
	} else {
		logger.Warn("no carrier yet, continuing degraded", "waited", linkWait)
	}

	// A connect timeout is degraded, not fatal: the client keeps
	// retrying and the OnConnect callback completes the establishment.
	if err := session.Connect(); err != nil {
		logger.Warn("broker not reachable yet, continuing degraded", "error", err)
	}

	taskCtx, cancelTasks := context.WithCancel(ctx)
	runner := tasks.NewRunner(logger, facade, tracker, hp, temp, lk, machine, cfg.Intervals)
	runner.Start(taskCtx)

	logger.Info("started",
		"device", cfg.Device.Name,
		"broker", cfg.MQTT.BrokerURL,
		"topic_base", cfg.MQTT.TopicBase,
		"interface", cfg.Wireless.Interface,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	// Stop the periodic tasks before the final publishes so nothing
	// races the offline marker.
	cancelTasks()
	runner.Wait()

	if _, err := facade.PublishStatus(false); err != nil {
		logger.Warn("final status publish failed", "error", err)
	}
	session.Disconnect(250)

	return nil
}

// waitForLink polls for a carrier until it appears, the patience runs
// out, or the context is cancelled.
func waitForLink(ctx context.Context, lk link.Link, patience time.Duration) bool {
	deadline := time.Now().Add(patience)
	for time.Now().Before(deadline) {
		if up, err := lk.State(); err == nil && up {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return false
}

// printLinkStatus writes a one-shot link report for -print-status.
func printLinkStatus(w io.Writer, lk link.Link) error {
	up, err := lk.State()
	if err != nil {
		return fmt.Errorf("read link state: %w", err)
	}
	state := "down"
	if up {
		state = "up"
	}
	sig := "n/a"
	if v, err := lk.SignalStrength(); err == nil {
		sig = fmt.Sprintf("%d dBm", v)
	}
	fmt.Fprintf(w, "link: %s, signal: %s\n", state, sig)
	return nil
}

// freeHeap reports heap space held but unused, the closest analogue to
// the free-heap figure the fleet dashboards expect.
func freeHeap() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapSys - m.HeapInuse
}
