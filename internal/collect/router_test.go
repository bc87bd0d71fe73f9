package collect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jpalmerr/nodeboard"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*Registry, http.Handler) {
	t.Helper()
	reg := NewRegistry()
	router, err := NewRouter(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return reg, router
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, Result) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res Result
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("invalid JSON response %s: %v", rec.Body.String(), err)
		}
	}
	return rec, res
}

func TestStatus_Empty(t *testing.T) {
	_, router := newTestRouter(t)

	rec, _ := do(t, router, http.MethodGet, "/v1/collect/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if string(raw["data"]) != "null" {
		t.Errorf("data = %s, want null", raw["data"])
	}
	if string(raw["msg"]) != `"Information about running tasks"` {
		t.Errorf("msg = %s", raw["msg"])
	}
}

func TestStatus_RendersOnWatcherSide(t *testing.T) {
	reg, router := newTestRouter(t)
	reg.AddTask("BTC", "USD", 60)
	reg.Subscribe("BTC", "EUR")
	reg.AddTask("ETH", "USD", 30)

	rec, _ := do(t, router, http.MethodGet, "/v1/collect/status", "")

	report, err := nodeboard.DecodeStatus(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	got := nodeboard.Render(report)
	want := `<strong>Data is currently being collected for:</strong><ul>` +
		`<li>BTC to: EUR:interval not set (wss), USD:60</li>` +
		`<li>ETH to: USD:30</li></ul>`
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestStatus_InactiveOnWatcherSide(t *testing.T) {
	_, router := newTestRouter(t)

	rec, _ := do(t, router, http.MethodGet, "/v1/collect/status", "")
	report, err := nodeboard.DecodeStatus(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	if got := nodeboard.Render(report); got != nodeboard.InactiveMessage {
		t.Errorf("Render() = %q, want %q", got, nodeboard.InactiveMessage)
	}
}

func TestAddTask(t *testing.T) {
	reg, router := newTestRouter(t)

	_, res := do(t, router, http.MethodGet, "/v1/collect/add?fsym=btc&tsym=usd", "")
	if res.Code != http.StatusCreated {
		t.Errorf("code = %d, want 201", res.Code)
	}
	if res.Message != "Data collection started" {
		t.Errorf("msg = %q", res.Message)
	}
	task, ok := reg.Task("BTC", "USD")
	if !ok {
		t.Fatal("task not registered")
	}
	if task.Interval != DefaultInterval {
		t.Errorf("Interval = %d, want %d", task.Interval, DefaultInterval)
	}

	_, res = do(t, router, http.MethodGet, "/v1/collect/add?fsym=BTC&tsym=USD&interval=5", "")
	if res.Code != http.StatusOK {
		t.Errorf("repeat code = %d, want 200", res.Code)
	}
	if res.Message != "Data for this pair is already being collected" {
		t.Errorf("repeat msg = %q", res.Message)
	}
}

func TestRESTVerbs(t *testing.T) {
	reg, router := newTestRouter(t)

	_, res := do(t, router, http.MethodPost, "/v1/collect", `{"fsym":"ETH","tsym":"USD","interval":15}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("POST code = %d, want 201 (%s)", res.Code, res.Message)
	}
	if task, _ := reg.Task("ETH", "USD"); task.Interval != 15 {
		t.Errorf("Interval = %d, want 15", task.Interval)
	}

	_, res = do(t, router, http.MethodPut, "/v1/collect", `{"fsym":"ETH","tsym":"USD","interval":45}`)
	if res.Message != "Task updated successfully" {
		t.Errorf("PUT msg = %q", res.Message)
	}
	if task, _ := reg.Task("ETH", "USD"); task.Interval != 45 {
		t.Errorf("Interval = %d, want 45", task.Interval)
	}

	_, res = do(t, router, http.MethodDelete, "/v1/collect", `{"fsym":"ETH","tsym":"USD"}`)
	if res.Message != "Task stopped successfully" {
		t.Errorf("DELETE msg = %q", res.Message)
	}
	if _, ok := reg.Task("ETH", "USD"); ok {
		t.Error("task still registered after DELETE")
	}
}

func TestRemoveAndUpdate_Missing(t *testing.T) {
	_, router := newTestRouter(t)

	for _, path := range []string{"/v1/collect/remove", "/v1/collect/update"} {
		_, res := do(t, router, http.MethodGet, path+"?fsym=BTC&tsym=USD", "")
		if res.Message != "No data is collected for this pair" {
			t.Errorf("%s msg = %q", path, res.Message)
		}
		if res.Data != nil {
			t.Errorf("%s data = %v, want nil", path, res.Data)
		}
	}
}

func TestSubscribeRoutes(t *testing.T) {
	reg, router := newTestRouter(t)

	_, res := do(t, router, http.MethodGet, "/v1/ws/subscribe?fsym=btc&tsym=eur", "")
	if res.Code != http.StatusCreated {
		t.Errorf("subscribe code = %d, want 201", res.Code)
	}
	if subs := reg.ListSubscriptions(); len(subs) != 1 || subs[0].From != "BTC" {
		t.Errorf("ListSubscriptions() = %+v", subs)
	}

	_, res = do(t, router, http.MethodPost, "/v1/ws/subscribe", `{"fsym":"BTC","tsym":"EUR"}`)
	if !strings.HasPrefix(res.Message, "subscribe error") {
		t.Errorf("repeat subscribe msg = %q", res.Message)
	}

	_, res = do(t, router, http.MethodPost, "/v1/ws/unsubscribe", `{"fsym":"BTC","tsym":"EUR"}`)
	if res.Message != "Unsubscribed successfully, data collection stopped" {
		t.Errorf("unsubscribe msg = %q", res.Message)
	}
	if len(reg.ListSubscriptions()) != 0 {
		t.Error("subscription still registered")
	}
}

func TestInvalidQuery(t *testing.T) {
	_, router := newTestRouter(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing tsym", "/v1/collect/add?fsym=BTC"},
		{"missing both", "/v1/collect/add"},
		{"bad symbol", "/v1/collect/add?fsym=BT-C&tsym=USD"},
		{"too long", "/v1/collect/add?fsym=ABCDEFGHIJK&tsym=USD"},
		{"unknown symbol", "/v1/collect/add?fsym=ZZZ&tsym=USD"},
		{"unknown subscribe symbol", "/v1/ws/subscribe?fsym=BTC&tsym=ZZZ"},
		{"bad interval", "/v1/collect/add?fsym=BTC&tsym=USD&interval=soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, router, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if res.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400", res.Code)
			}
		})
	}
}

func TestSymbolRoutes(t *testing.T) {
	reg, router := newTestRouter(t)

	rec, _ := do(t, router, http.MethodGet, "/v1/collect/add?fsym=ZZZ&tsym=USD", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("add unknown pair status = %d, want 400", rec.Code)
	}

	_, res := do(t, router, http.MethodPost, "/v1/symbols", `{"symbol":"zzz","unicode":"Z"}`)
	if res.Code != http.StatusCreated || res.Message != "symbol ZZZ successfully added" {
		t.Fatalf("POST /v1/symbols = %d %q", res.Code, res.Message)
	}

	_, res = do(t, router, http.MethodGet, "/v1/collect/add?fsym=ZZZ&tsym=USD", "")
	if res.Code != http.StatusCreated {
		t.Errorf("add after symbol registered code = %d, want 201 (%s)", res.Code, res.Message)
	}
	if _, ok := reg.Task("ZZZ", "USD"); !ok {
		t.Error("task for ZZZ/USD not registered")
	}

	rec, _ = do(t, router, http.MethodGet, "/v1/symbols/add?symbol=ZZZ&unicode=Z", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate add status = %d, want 400", rec.Code)
	}
	rec, _ = do(t, router, http.MethodGet, "/v1/symbols/add?symbol=QQQ", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("add without unicode status = %d, want 400", rec.Code)
	}

	_, res = do(t, router, http.MethodPut, "/v1/symbols", `{"symbol":"ZZZ","unicode":"Ƶ"}`)
	if res.Message != "symbol ZZZ successfully updated" {
		t.Errorf("PUT msg = %q", res.Message)
	}
	rec, _ = do(t, router, http.MethodGet, "/v1/symbols/update?symbol=QQQ&unicode=Q", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("update unknown status = %d, want 400", rec.Code)
	}

	_, res = do(t, router, http.MethodGet, "/v1/symbols", "")
	list, ok := res.Data.([]any)
	if !ok || len(list) != len(DefaultSymbols())+1 {
		t.Errorf("GET /v1/symbols data = %v", res.Data)
	}

	_, res = do(t, router, http.MethodDelete, "/v1/symbols", `{"symbol":"zzz"}`)
	if res.Message != "symbol ZZZ successfully removed" {
		t.Errorf("DELETE msg = %q", res.Message)
	}
	rec, _ = do(t, router, http.MethodGet, "/v1/ws/subscribe?fsym=ZZZ&tsym=USD", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("subscribe after removal status = %d, want 400", rec.Code)
	}
	rec, _ = do(t, router, http.MethodGet, "/v1/symbols/remove?symbol=ZZZ", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second remove status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_Start(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	reg := NewRegistry()
	reg.AddTask("BTC", "USD", 60)
	srv, err := NewServer(reg, port, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://localhost:" + strconv.Itoa(port) + "/v1/collect/status")
	if err != nil {
		t.Fatalf("GET status error = %v", err)
	}
	defer resp.Body.Close()

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if res.Data == nil {
		t.Error("data = nil, want the running task")
	}
}

func TestServer_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	srv, err := NewServer(NewRegistry(), ln.Addr().(*net.TCPAddr).Port, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() expected error for port in use, got nil")
	}
}
