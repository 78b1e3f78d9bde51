package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kitchenchaos.game/internal/observerproto"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/kitchen"
	"kitchenchaos.game/internal/sim/tuning"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(dir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tun, err := tuning.Load(filepath.Join(dir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	layout, err := tuning.LoadLayout(filepath.Join(dir, "layout.yaml"))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	k, err := kitchen.New(kitchen.Config{RoundID: "obs_test", Seed: 3, Tuning: tun, Layout: layout}, cats)
	if err != nil {
		t.Fatalf("kitchen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = k.Run(ctx)
		close(done)
	}()

	s := NewServer(k, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", s.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

func TestBootstrap(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL + "/admin/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.RoundID != "obs_test" || b.KitchenParams.TickRateHz != 20 {
		t.Fatalf("bootstrap = %+v", b)
	}
	if len(b.Stations) != 8 || len(b.ItemPalette) == 0 {
		t.Fatalf("stations=%d palette=%d", len(b.Stations), len(b.ItemPalette))
	}

	post, err := http.Post(srv.URL+"/admin/v1/observer/bootstrap", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", post.StatusCode)
	}
}

func TestSubscribeStreamsTicks(t *testing.T) {
	srv := startServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, WithEntities: true}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var tick observerproto.TickMsg
	if err := json.Unmarshal(msg, &tick); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tick.Type != "TICK" {
		t.Fatalf("type = %s", tick.Type)
	}
	if len(tick.Stations) != 8 || len(tick.Entities) == 0 {
		t.Fatalf("stations=%d entities=%d", len(tick.Stations), len(tick.Entities))
	}

	// Header-only mode drops the entity lists.
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version}); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		tick = observerproto.TickMsg{}
		_ = json.Unmarshal(msg, &tick)
		if len(tick.Entities) == 0 && len(tick.Stations) == 0 {
			return
		}
	}
	t.Fatalf("entities still streamed after resubscribe")
}

func TestSubscribeRejectsWrongFirstMessage(t *testing.T) {
	srv := startServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteJSON(map[string]string{"type": "HELLO", "protocol_version": observerproto.Version})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v, want policy violation close", err)
	}
}

func TestParseSubscribe_Focus(t *testing.T) {
	cases := []struct {
		focus string
		want  string
		ok    bool
	}{
		{"", "", true},
		{" p2 ", "P2", true},
		{"P17", "P17", true},
		{"chef", "", false},
		{"P", "", false},
		{"P1x", "", false},
	}
	for _, tc := range cases {
		raw, _ := json.Marshal(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, FocusPlayerID: tc.focus})
		sub, err := parseSubscribe(raw)
		if (err == nil) != tc.ok {
			t.Fatalf("focus %q: err = %v", tc.focus, err)
		}
		if tc.ok && sub.FocusPlayerID != tc.want {
			t.Fatalf("focus %q normalized to %q, want %q", tc.focus, sub.FocusPlayerID, tc.want)
		}
	}
	if _, err := parseSubscribe([]byte(`{"type":"SUBSCRIBE","protocol_version":"9"}`)); err == nil {
		t.Fatalf("wrong version accepted")
	}
}

func TestSubscribeRejectsBadFocus(t *testing.T) {
	srv := startServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, FocusPlayerID: "chef"})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v, want policy violation close", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5555": true,
		"[::1]:80":       true,
		"10.0.0.3:80":    false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q) = %v, want %v", addr, got, want)
		}
	}
}
