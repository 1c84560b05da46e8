package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/adapters/process"
	"github.com/aretw0/switchboard/pkg/domain"
)

// Config is the file configuration of the switchboard binary.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	History  HistoryConfig  `yaml:"history"`
	Redis    *RedisConfig   `yaml:"redis,omitempty"`
	Host     HostConfig     `yaml:"host"`
	Exec     ExecConfig     `yaml:"exec"`
	Clock    ClockConfig    `yaml:"clock"`
	Instance InstanceConfig `yaml:"instance"`
}

// LogConfig selects the level and format of the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig configures the REST adapter.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// HistoryConfig configures per-surface navigation history.
type HistoryConfig struct {
	Limit   int           `yaml:"limit"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// RedisConfig moves navigation history to Redis, shared between replicas.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// HostConfig seeds the in-memory host.
type HostConfig struct {
	Pages        int               `yaml:"pages"`
	Banks        int               `yaml:"banks"`
	Surfaces     []string          `yaml:"surfaces"`
	StartPage    string            `yaml:"start_page"`
	PinEnabled   bool              `yaml:"pin_enabled"`
	LinkLockouts bool              `yaml:"link_lockouts"`
	Variables    map[string]string `yaml:"variables"`
	Buttons      []ButtonSeed      `yaml:"buttons"`
}

// ButtonSeed is the base style of one button.
type ButtonSeed struct {
	Page  string         `yaml:"page"`
	Bank  string         `yaml:"bank"`
	Style map[string]any `yaml:"style"`
}

// ExecConfig enables the exec command. Only the listed tools run unless
// inline commands are allowed.
type ExecConfig struct {
	AllowInline bool                    `yaml:"allow_inline"`
	Dir         string                  `yaml:"dir"`
	ToolsFile   string                  `yaml:"tools_file"`
	Tools       []process.ProcessConfig `yaml:"tools"`
}

// ClockConfig sets how often the date and time variables are published.
// Zero disables the clock.
type ClockConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// InstanceConfig names this module's own instance and seeds the health
// report of the others.
type InstanceConfig struct {
	ID     string                `yaml:"id"`
	Status domain.InstanceStatus `yaml:"status"`
}

// AppHooks receive app_exit and app_restart. A nil OnRestart makes
// app_restart unsupported.
type AppHooks struct {
	OnExit    func()
	OnRestart func()
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		History: HistoryConfig{Limit: domain.DefaultHistoryLimit},
		Host: HostConfig{
			Pages: domain.MaxPage,
			Banks: 32,
		},
		Clock:    ClockConfig{Interval: time.Second},
		Instance: InstanceConfig{ID: domain.DefaultInstanceID},
	}
}

// Load reads the file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.History.Limit < 1 {
		errs = append(errs, fmt.Errorf("history limit must be positive, got %d", c.History.Limit))
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis addr is required when redis is configured"))
	}
	if c.Host.Pages < 0 || c.Host.Banks < 0 {
		errs = append(errs, errors.New("host pages and banks must not be negative"))
	}
	for name := range c.Host.Variables {
		if _, err := domain.ParseVariableRef(name); err != nil {
			errs = append(errs, err)
		}
	}
	for i, b := range c.Host.Buttons {
		if b.Page == "" || b.Bank == "" {
			errs = append(errs, fmt.Errorf("button #%d: page and bank are required", i))
		}
	}
	for i, t := range c.Exec.Tools {
		if t.Name == "" || t.Command == "" {
			errs = append(errs, fmt.Errorf("exec tool #%d: name and command are required", i))
		}
	}
	if c.Clock.Interval < 0 {
		errs = append(errs, fmt.Errorf("clock interval must not be negative, got %s", c.Clock.Interval))
	}
	return errors.Join(errs...)
}

// Logger builds the application logger writing to stderr.
func (c Config) Logger() *slog.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.NewWithWriter(os.Stderr, level, c.Log.Format)
}

// NewExecutor builds the process runner of the exec section, or nil when
// it allows nothing to run.
func (c Config) NewExecutor() (*process.Runner, error) {
	tools := map[string]process.ProcessConfig{}
	if c.Exec.ToolsFile != "" {
		loaded, err := process.LoadTools(c.Exec.ToolsFile)
		if err != nil {
			return nil, err
		}
		tools = loaded
	}
	for name, tool := range process.ToolMap(c.Exec.Tools) {
		tools[name] = tool
	}
	if len(tools) == 0 && !c.Exec.AllowInline {
		return nil, nil
	}
	return process.NewRunner(
		process.WithRegistry(tools),
		process.WithInlineExecution(c.Exec.AllowInline),
		process.WithBaseDir(c.Exec.Dir),
	), nil
}

// NewHost builds the in-memory host described by the host section.
func (c Config) NewHost(app AppHooks) *memory.Host {
	surfaces := make([]domain.SurfaceID, 0, len(c.Host.Surfaces))
	for _, s := range c.Host.Surfaces {
		surfaces = append(surfaces, domain.SurfaceID(s))
	}

	host := memory.NewHost(memory.HostConfig{
		Pages:        c.Host.Pages,
		Banks:        c.Host.Banks,
		Surfaces:     surfaces,
		StartPage:    domain.PageRef(c.Host.StartPage),
		PinEnabled:   c.Host.PinEnabled,
		LinkLockouts: c.Host.LinkLockouts,
		OnExit:       app.OnExit,
		OnRestart:    app.OnRestart,
	})
	for name, value := range c.Host.Variables {
		if ref, err := domain.ParseVariableRef(name); err == nil {
			host.Set(ref, value)
		}
	}
	for _, b := range c.Host.Buttons {
		host.SetBase(domain.BankKey{Page: b.Page, Bank: b.Bank}, domain.Style(b.Style))
	}
	return host
}
