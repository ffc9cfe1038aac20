package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cfern/casa-central/internal/config"
	"github.com/cfern/casa-central/internal/conn"
	"github.com/cfern/casa-central/internal/gpio"
	"github.com/cfern/casa-central/internal/health"
	"github.com/cfern/casa-central/internal/link"
	"github.com/cfern/casa-central/internal/mqtt"
	"github.com/cfern/casa-central/internal/rules"
	"github.com/cfern/casa-central/internal/stats"
)

type fixture struct {
	r       *Runner
	session *mqtt.FakeSession
	facade  *mqtt.Facade
	tracker *stats.Tracker
	lk      *link.FakeLink
	hvac    *gpio.FakeOutput
	temp    *rules.Temperature
	machine *conn.Machine
	topics  mqtt.Topics
}

func newFixture(t *testing.T, logW io.Writer) *fixture {
	t.Helper()
	if logW == nil {
		logW = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(logW, nil))
	topics := mqtt.NewTopics("")
	tracker := stats.NewTracker()
	facade := mqtt.NewFacade(topics, tracker, logger)
	session := mqtt.NewFakeSession()
	facade.Attach(session)
	facade.SetSessionUp(true)

	lk := link.NewFakeLink(-60)
	lights := gpio.NewFakeOutput()
	hvac := gpio.NewFakeOutput()
	illum := rules.NewIllumination(lights, 3)
	temp := rules.NewTemperature(hvac, 23, 20, 10*time.Minute)
	hp := health.NewProvider(time.Now(), lk, facade.SessionUp)
	machine := conn.NewMachine(logger, facade, tracker, lk, illum, temp, hp,
		mqtt.BootInfo{Device: "casa_central_001"})

	r := NewRunner(logger, facade, tracker, hp, temp, lk, machine,
		config.Default().Intervals)
	return &fixture{
		r: r, session: session, facade: facade, tracker: tracker,
		lk: lk, hvac: hvac, temp: temp, machine: machine, topics: topics,
	}
}

func TestTelemetrySkipsWhenSessionDown(t *testing.T) {
	fx := newFixture(t, nil)
	fx.facade.SetSessionUp(false)

	fx.r.telemetryTick(time.Now())
	if got := len(fx.session.Messages()); got != 0 {
		t.Fatalf("publishes while down: got %d, want 0", got)
	}
	// A skip is not a failure.
	if snap := fx.tracker.Snapshot(); snap.PublishFailures != 0 {
		t.Errorf("failures after skip: got %d, want 0", snap.PublishFailures)
	}
}

func TestTelemetryPayload(t *testing.T) {
	fx := newFixture(t, nil)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fx.r.telemetryTick(now)
	fx.r.telemetryTick(now.Add(10 * time.Second))

	msgs := fx.session.MessagesOn(fx.topics.Telemetry())
	if len(msgs) != 2 {
		t.Fatalf("telemetry publishes: got %d, want 2", len(msgs))
	}
	var p map[string]any
	if err := json.Unmarshal(msgs[1].Payload, &p); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"temperatura", "umidade", "contador", "timestamp"} {
		if _, ok := p[key]; !ok {
			t.Errorf("telemetry payload missing %q: %s", key, msgs[1].Payload)
		}
	}
	if p["contador"].(float64) != 2 {
		t.Errorf("contador: got %v, want 2", p["contador"])
	}
	if p["timestamp"].(float64) != float64(now.Add(10*time.Second).UnixMilli()) {
		t.Errorf("timestamp: got %v", p["timestamp"])
	}
}

func TestHealthTickPublishes(t *testing.T) {
	fx := newFixture(t, nil)

	fx.r.healthTick(time.Now())
	msgs := fx.session.MessagesOn(fx.topics.Health())
	if len(msgs) != 1 {
		t.Fatalf("health publishes: got %d, want 1", len(msgs))
	}
	if msgs[0].QoS != 0 {
		t.Errorf("health QoS: got %d, want 0", msgs[0].QoS)
	}
	var p map[string]any
	if err := json.Unmarshal(msgs[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p["wifi_rssi"].(float64) != -60 {
		t.Errorf("wifi_rssi: got %v, want -60", p["wifi_rssi"])
	}
	if p["mqtt_connected"] != true {
		t.Errorf("mqtt_connected: got %v, want true", p["mqtt_connected"])
	}
}

func TestHealthSkipsPublishWhenSessionDown(t *testing.T) {
	fx := newFixture(t, nil)
	fx.facade.SetSessionUp(false)
	fx.lk.Signal = -90

	fx.r.healthTick(time.Now())
	if got := len(fx.session.Messages()); got != 0 {
		t.Fatalf("publishes while down: got %d, want 0", got)
	}
	// A skip is not a failure, same as the other periodic publishers.
	if snap := fx.tracker.Snapshot(); snap.PublishFailures != 0 {
		t.Errorf("failures after offline tick: got %d, want 0", snap.PublishFailures)
	}

	// The warning edge was consumed offline; reconnecting must not
	// publish a stale alert, but sampling kept the min-free tracking
	// and session flag current.
	fx.facade.SetSessionUp(true)
	fx.r.healthTick(time.Now().Add(time.Minute))
	if got := len(fx.session.MessagesOn(fx.topics.Alerts())); got != 0 {
		t.Errorf("alerts after reconnect without a new edge: got %d, want 0", got)
	}
	msgs := fx.session.MessagesOn(fx.topics.Health())
	if len(msgs) != 1 {
		t.Fatalf("health publishes after reconnect: got %d, want 1", len(msgs))
	}
}

func TestWeakSignalAlertFiresOncePerExcursion(t *testing.T) {
	fx := newFixture(t, nil)
	fx.lk.Signal = -90

	now := time.Now()
	fx.r.healthTick(now)
	fx.r.healthTick(now.Add(time.Minute))
	if got := len(fx.session.MessagesOn(fx.topics.Alerts())); got != 1 {
		t.Fatalf("alerts during excursion: got %d, want 1", got)
	}

	// Recovery then a new excursion re-arms the warning.
	fx.lk.Signal = -50
	fx.r.healthTick(now.Add(2 * time.Minute))
	fx.lk.Signal = -90
	fx.r.healthTick(now.Add(3 * time.Minute))
	if got := len(fx.session.MessagesOn(fx.topics.Alerts())); got != 2 {
		t.Errorf("alerts after re-excursion: got %d, want 2", got)
	}
}

func TestWatchdogReportsEdges(t *testing.T) {
	fx := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.machine.Run(ctx)

	// First poll is the baseline, no edge yet.
	fx.lk.SetUp(true)
	fx.r.watchdogTick(time.Now())
	time.Sleep(10 * time.Millisecond)
	if got := fx.machine.State(); got != conn.Disconnected {
		t.Fatalf("state after baseline poll: %v, want disconnected", got)
	}

	fx.lk.SetUp(false)
	fx.r.watchdogTick(time.Now())
	waitState(t, fx.machine, conn.Connecting)

	fx.lk.SetUp(true)
	fx.r.watchdogTick(time.Now())
	waitState(t, fx.machine, conn.LinkUp)

	// Steady carrier produces no further events.
	fx.r.watchdogTick(time.Now())
	time.Sleep(10 * time.Millisecond)
	if got := fx.machine.State(); got != conn.LinkUp {
		t.Errorf("state after steady poll: %v, want link_up", got)
	}
}

func TestShutoffTick(t *testing.T) {
	fx := newFixture(t, nil)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fx.temp.HandleReading(25, now)
	fx.temp.HandleReading(19, now.Add(time.Minute))
	fx.session.Reset()

	fx.r.shutoffTick(now.Add(5 * time.Minute))
	if !fx.hvac.Level() {
		t.Fatal("hvac switched off before the delay elapsed")
	}
	if got := len(fx.session.Messages()); got != 0 {
		t.Fatalf("publishes before shutoff: got %d, want 0", got)
	}

	fx.r.shutoffTick(now.Add(12 * time.Minute))
	if fx.hvac.Level() {
		t.Fatal("hvac should be OFF after the delay")
	}
	alerts := fx.session.MessagesOn(fx.topics.Alerts())
	if len(alerts) != 1 {
		t.Fatalf("shutoff alerts: got %d, want 1", len(alerts))
	}
	if got := string(alerts[0].Payload); !strings.Contains(got, `"motivo":"temporizador"`) {
		t.Errorf("shutoff alert payload: %s", got)
	}
}

func TestDemoTick(t *testing.T) {
	fx := newFixture(t, nil)

	fx.r.demoTick(time.Now())

	lum := fx.session.MessagesOn(mqtt.TopicIllumination)
	if len(lum) != 1 {
		t.Fatalf("illumination publishes: got %d, want 1", len(lum))
	}
	if v, err := strconv.Atoi(string(lum[0].Payload)); err != nil || v < 0 || v > 10 {
		t.Errorf("illumination payload: %q", lum[0].Payload)
	}

	tmp := fx.session.MessagesOn(mqtt.TopicTemperature)
	if len(tmp) != 1 {
		t.Fatalf("temperature publishes: got %d, want 1", len(tmp))
	}
	if v, err := strconv.Atoi(string(tmp[0].Payload)); err != nil || v < -3 || v > 45 {
		t.Errorf("temperature payload: %q", tmp[0].Payload)
	}

	custom := fx.session.MessagesOn(fx.topics.Custom())
	if len(custom) != 1 {
		t.Fatalf("custom publishes: got %d, want 1", len(custom))
	}
	if custom[0].QoS != 0 {
		t.Errorf("custom QoS: got %d, want 0", custom[0].QoS)
	}
	var p map[string]any
	if err := json.Unmarshal(custom[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p["publish_count"].(float64) != 1 || p["status"] != "operational" {
		t.Errorf("custom payload: %s", custom[0].Payload)
	}

	// Nothing while the session is down.
	fx.facade.SetSessionUp(false)
	before := len(fx.session.Messages())
	fx.r.demoTick(time.Now())
	if after := len(fx.session.Messages()); after != before {
		t.Errorf("demo publishes while down: got %d new", after-before)
	}
}

func TestMonitorTickLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	fx := newFixture(t, &buf)

	fx.r.monitorTick(time.Now())
	if !strings.Contains(buf.String(), "system monitor") {
		t.Errorf("monitor log missing summary line: %s", buf.String())
	}
	if got := len(fx.session.Messages()); got != 0 {
		t.Errorf("monitor must not publish, got %d messages", got)
	}
}

func waitState(t *testing.T, m *conn.Machine, want conn.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state never reached %v, still %v", want, m.State())
}
