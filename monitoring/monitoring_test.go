package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"carprice/ml"
	"carprice/pricing"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn, want MessageType) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		msg, err := Decode(frame)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestHubBroadcastsPredictions(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Publish(pricing.Result{ID: "abc", Features: ml.Features{HighwayMPG: 30, Curbweight: 2500, Horsepower: 100}, Price: 12345.678, Formatted: "Rp 12.345,68"})

	msg := readMessage(t, conn, PredictionEvent)
	if !strings.Contains(string(msg.Data), `"formatted":"Rp 12.345,68"`) {
		t.Fatalf("unexpected payload %s", msg.Data)
	}
	if msg.ID == "" {
		t.Fatal("expected message id")
	}

	hub.NotifyReload(ModelReloaded, "model.json", errors.New("bad artifact"))
	msg = readMessage(t, conn, ModelReloaded)
	if !strings.Contains(string(msg.Data), `"error":"bad artifact"`) {
		t.Fatalf("unexpected reload payload %s", msg.Data)
	}

	if stats := hub.Stats(); stats.MessagesSent < 2 || stats.ConnectedClients != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestHubLogsUnderCallerName(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	hub := NewHub(zap.New(core).Named("ws"))
	go hub.Run()
	defer hub.Stop()

	dialHub(t, hub)
	waitForClients(t, hub, 1)

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("client connected").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a client connected entry")
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, e := range logs.All() {
		if e.LoggerName != "ws" {
			t.Fatalf("entry %q logged as %q, want %q", e.Message, e.LoggerName, "ws")
		}
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()
	mc.Describe("predictions_total", "Predictions served")
	mc.IncrCounter("predictions_total", 1, map[string]string{"status": "ok"})
	mc.IncrCounter("predictions_total", 1, map[string]string{"status": "ok"})
	mc.IncrCounter("predictions_total", 1, map[string]string{"status": "error"})
	mc.SetGauge("dataset_rows", 205, nil)
	mc.SetGauge("dataset_rows", 200, nil)

	if v := mc.Value("predictions_total", map[string]string{"status": "ok"}); v != 2 {
		t.Fatalf("expected counter 2, got %v", v)
	}
	if v := mc.Value("dataset_rows", nil); v != 200 {
		t.Fatalf("expected gauge 200, got %v", v)
	}

	out := mc.ExportPrometheus()
	for _, want := range []string{
		"# HELP predictions_total Predictions served\n",
		"# TYPE predictions_total counter\n",
		`predictions_total{status="error"} 1` + "\n",
		`predictions_total{status="ok"} 2` + "\n",
		"dataset_rows 200\n",
		"# TYPE process_goroutines gauge\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
}
