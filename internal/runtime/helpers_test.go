package runtime_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/history"
)

type fixture struct {
	host   *memory.Host
	engine *runtime.Engine
	logs   *bytes.Buffer
}

// newFixture builds an engine over a host with 99 pages of 32 buttons and
// two surfaces, S and T, both on page 1. Only warnings and errors are logged.
func newFixture(t *testing.T, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.HostConfig{
		Pages:    99,
		Banks:    32,
		Surfaces: []domain.SurfaceID{"S", "T"},
	}, opts...)
}

func newFixtureWith(t *testing.T, cfg memory.HostConfig, opts ...runtime.EngineOption) *fixture {
	t.Helper()

	host := memory.NewHost(cfg)
	logs := &bytes.Buffer{}
	logger := logging.NewWithWriter(logs, slog.LevelWarn, "json")

	all := append([]runtime.EngineOption{runtime.WithLogger(logger)}, opts...)
	engine := runtime.NewEngine(host, history.NewManager(memory.NewHistoryStore()), all...)

	return &fixture{host: host, engine: engine, logs: logs}
}

// warnings returns the messages of every WARN record logged so far.
func (f *fixture) warnings(t *testing.T) []string {
	t.Helper()
	return f.messages(t, "WARN")
}

// messages returns the messages of every record logged at level so far.
func (f *fixture) messages(t *testing.T, level string) []string {
	t.Helper()

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(f.logs.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		if rec["level"] == level {
			out = append(out, rec["msg"].(string))
		}
	}
	return out
}

func ref(ns, name string) domain.VariableRef {
	return domain.VariableRef{Namespace: ns, Name: name}
}

func setPageArgs(surface, page string) []any {
	return []any{domain.SurfaceID(surface), domain.PageRef(page)}
}
