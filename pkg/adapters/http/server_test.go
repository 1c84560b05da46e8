package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/observability"
)

type testServer struct {
	host    *memory.Host
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	host := memory.NewHost(memory.HostConfig{
		Pages:    99,
		Banks:    32,
		Surfaces: []domain.SurfaceID{"S", "T"},
	})
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	eng := switchboard.New(
		switchboard.WithHost(host),
		switchboard.WithLifecycleHooks(metrics.Hooks()),
	)
	return &testServer{host: host, handler: NewHandler(eng, WithGatherer(reg))}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func TestPostCommand_AssignsPageBeforeResponding(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/commands", `{
		"kind": "set_page",
		"options": {"controller": "self", "page": 5},
		"extras": {"page": "1", "bank": "2", "device_id": "T"}
	}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	page, err := s.host.Page(context.Background(), "T")
	require.NoError(t, err)
	assert.Equal(t, domain.PageRef("5"), page)

	w = s.do("GET", "/surfaces/T/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var h domain.History
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))
	assert.Equal(t, []domain.PageRef{"1", "5"}, h.Entries)
	assert.Equal(t, 1, h.Index)
}

func TestPostCommand_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"unknown command", `{"kind": "teleport"}`, http.StatusBadRequest},
		{"self without press", `{"kind": "set_page", "options": {"controller": "self", "page": "5"}}`, http.StatusUnprocessableEntity},
		{"unresolved page", `{"kind": "set_page", "options": {"controller": "S", "page": "variable", "pageVariable": "internal:nope"}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("POST", "/commands", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, s.host.EffectsOf(memory.OpSetPage))
}

func TestPostCommand_UnresolvedBankWarnsOnce(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := logging.NewWithWriter(logs, slog.LevelInfo, "json")
	host := memory.NewHost(memory.HostConfig{
		Pages:    99,
		Banks:    32,
		Surfaces: []domain.SurfaceID{"S"},
	})
	host.Set(domain.VariableRef{Namespace: "x", Name: "y"}, "999")
	eng := switchboard.New(switchboard.WithHost(host), switchboard.WithLogger(logger))
	handler := NewHandler(eng, WithLogger(logger))

	req := httptest.NewRequest("POST", "/commands", strings.NewReader(
		`{"kind": "button_press", "options": {"page": "1", "bank": "variable", "bankVariable": "x:y"}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	warns := 0
	sc := bufio.NewScanner(logs)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec["level"] == "WARN" {
			warns++
		}
	}
	assert.Equal(t, 1, warns, logs.String())
	assert.Empty(t, host.EffectsOf(memory.OpPress))
}

func TestNavigate_BackAndHistoryNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do("GET", "/surfaces/S/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, s.do("POST", "/surfaces/S/navigate", `{"page": "7"}`).Code)
	w = s.do("POST", "/surfaces/S/navigate", `{"page": "back"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var h domain.History
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))
	assert.Equal(t, 0, h.Index)

	page, _ := s.host.Page(context.Background(), "S")
	assert.Equal(t, domain.PageRef("1"), page)
}

func TestFeedbacks_SubscribeAndVariablesChanged(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/feedbacks/fb1", `{"type": "variable_value", "options": {"variable": "atem:pgm", "value": "1"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed": true}`, w.Body.String())

	w = s.do("POST", "/variables/changed", `{"changed": ["atem:pgm", "atem:pvw"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recomputed": ["fb1"]}`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, s.do("DELETE", "/feedbacks/fb1", "").Code)

	w = s.do("POST", "/variables/changed", `{"changed": ["atem:pgm"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recomputed": []}`, w.Body.String())

	w = s.do("POST", "/variables/changed", `{"changed": ["nocolon"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/feedbacks/fb2", `{"type": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbacks_Evaluate(t *testing.T) {
	s := newTestServer(t)
	s.host.Set(domain.VariableRef{Namespace: "atem", Name: "pgm"}, "3")

	w := s.do("POST", "/feedbacks/evaluate", `{
		"feedback": {"id": "x", "type": "variable_value", "options": {"variable": "atem:pgm", "op": "gt", "value": "2"}}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"value": true}`, w.Body.String())
}

func TestBanks_InvalidateAndSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.host.SetBase(domain.BankKey{Page: "1", Bank: "4"}, domain.Style{"style": "png", "text": "REC"})

	assert.Equal(t, http.StatusNotFound, s.do("GET", "/banks/1/4", "").Code)

	w := s.do("POST", "/banks/1/4/invalidate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"style_changed": false, "text_changed": false}`, w.Body.String())

	w = s.do("GET", "/banks/1/4", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap switchboard.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, "REC", snap.Text)
}

func TestHealthInfoMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	w = s.do("GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "switchboard-http")

	s.do("POST", "/surfaces/S/navigate", `{"page": "2"}`)
	w = s.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `switchboard_navigations_total{direction="explicit",outcome="assigned"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := s.do("OPTIONS", "/commands", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPostCommand_ExecWithoutExecutor(t *testing.T) {
	s := newTestServer(t)
	w := s.do("POST", "/commands", `{"kind": "exec", "options": {"path": "echo hi"}}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code, w.Body.String())
}

func TestInstanceStatus_PutEvaluateGet(t *testing.T) {
	s := newTestServer(t)

	w := s.do("PUT", "/instances/status", `{"errors": 0, "warnings": 1, "ok": 1, "instances": {"atem": 1, "obs": 0}}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	value, ok := s.host.Lookup(domain.VariableRef{Namespace: "internal", Name: "instance_warns"})
	require.True(t, ok)
	assert.Equal(t, "1", value)

	w = s.do("POST", "/feedbacks/evaluate", `{
		"feedback": {"id": "st", "type": "instance_status", "options": {"instance_id": "obs", "ok_fg": 1, "ok_bg": 2}}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"value": {"color": 1, "bgcolor": 2}}`, w.Body.String())

	w = s.do("GET", "/instances/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status domain.InstanceStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, domain.InstanceWarning, status.Instances["atem"])

	assert.Equal(t, http.StatusBadRequest, s.do("PUT", "/instances/status", `{`).Code)
}
