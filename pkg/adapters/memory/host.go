package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Effect is one side effect recorded by the Host.
type Effect struct {
	Op   string `json:"op"`
	Args []any  `json:"args,omitempty"`
}

func (e Effect) String() string {
	return fmt.Sprintf("%s%v", e.Op, e.Args)
}

// Effect operation names.
const (
	OpSetPage        = "set_page"
	OpPress          = "press"
	OpChangeField    = "change_field"
	OpAbortBank      = "abort_bank"
	OpAbortAll       = "abort_all"
	OpSetBrightness  = "set_brightness"
	OpLockout        = "lockout"
	OpUnlock         = "unlock"
	OpLockoutAll     = "lockout_all"
	OpUnlockAll      = "unlock_all"
	OpRescan         = "rescan"
	OpRecompute      = "recompute"
	OpRecomputeTypes = "recompute_types"
	OpSetCustom      = "set_custom_variable"
	OpSetExpression  = "set_custom_expression"
	OpInstanceEnable = "instance_enable"
	OpAppExit        = "app_exit"
	OpAppRestart     = "app_restart"
)

// DefaultEffectLimit bounds the recorded effect log.
const DefaultEffectLimit = 1000

// HostConfig seeds a Host.
type HostConfig struct {
	Pages        int
	Banks        int
	Surfaces     []domain.SurfaceID
	StartPage    domain.PageRef
	PinEnabled   bool
	LinkLockouts bool
	EffectLimit  int

	// OnExit and OnRestart are called after app_exit and app_restart are
	// recorded. Without OnRestart the host cannot restart.
	OnExit    func()
	OnRestart func()
}

// Host is an in-memory implementation of ports.Host.
// Every side effect is applied to its own state where that makes sense
// (pages, fields, custom variables) and recorded in an effect log.
// Safe for concurrent use.
type Host struct {
	*Variables

	mu           sync.Mutex
	pageCount    int
	bankCount    int
	surfaces     []domain.SurfaceID
	pages        map[domain.SurfaceID]domain.PageRef
	banks        map[domain.BankKey]domain.Style
	overrides    map[domain.BankKey]domain.Style
	pushed       map[domain.BankKey]bool
	expressions  map[string]string
	pinEnabled   bool
	linkLockouts bool
	effects      []Effect
	effectLimit  int
	disabled     map[string]bool
	onExit       func()
	onRestart    func()
}

// NewHost creates a host with cfg.Pages pages of cfg.Banks buttons.
// Every surface starts on cfg.StartPage (default "1").
func NewHost(cfg HostConfig) *Host {
	start := cfg.StartPage
	if start == "" {
		start = "1"
	}
	limit := cfg.EffectLimit
	if limit <= 0 {
		limit = DefaultEffectLimit
	}

	h := &Host{
		Variables:    NewVariables(),
		pageCount:    cfg.Pages,
		bankCount:    cfg.Banks,
		surfaces:     append([]domain.SurfaceID(nil), cfg.Surfaces...),
		pages:        make(map[domain.SurfaceID]domain.PageRef),
		banks:        make(map[domain.BankKey]domain.Style),
		overrides:    make(map[domain.BankKey]domain.Style),
		pushed:       make(map[domain.BankKey]bool),
		expressions:  make(map[string]string),
		pinEnabled:   cfg.PinEnabled,
		linkLockouts: cfg.LinkLockouts,
		effectLimit:  limit,
		disabled:     make(map[string]bool),
		onExit:       cfg.OnExit,
		onRestart:    cfg.OnRestart,
	}
	for _, s := range h.surfaces {
		h.pages[s] = start
	}
	return h
}

func (h *Host) record(op string, args ...any) {
	h.effects = append(h.effects, Effect{Op: op, Args: args})
	if over := len(h.effects) - h.effectLimit; over > 0 {
		h.effects = append([]Effect(nil), h.effects[over:]...)
	}
}

// Effects returns a copy of the recorded effect log.
func (h *Host) Effects() []Effect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Effect(nil), h.effects...)
}

// EffectsOf returns the recorded effects with the given op.
func (h *Host) EffectsOf(op string) []Effect {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Effect
	for _, e := range h.effects {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// ResetEffects clears the effect log.
func (h *Host) ResetEffects() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.effects = nil
}

// SetBase stores the base record of a button. The host keeps the given map.
func (h *Host) SetBase(key domain.BankKey, style domain.Style) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.banks[key] = style
}

// SetOverride stores the feedback override of a button; nil clears it.
func (h *Host) SetOverride(key domain.BankKey, style domain.Style) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if style == nil {
		delete(h.overrides, key)
		return
	}
	h.overrides[key] = style
}

// SetPushed marks a button as pushed or latched.
func (h *Host) SetPushed(key domain.BankKey, pushed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushed[key] = pushed
}

// AddSurface connects a surface showing page.
func (h *Host) AddSurface(surface domain.SurfaceID, page domain.PageRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pages[surface]; !ok {
		h.surfaces = append(h.surfaces, surface)
	}
	h.pages[surface] = page
}

// Page implements ports.PageAssignment.
func (h *Host) Page(ctx context.Context, surface domain.SurfaceID) (domain.PageRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	page, ok := h.pages[surface]
	if !ok {
		return "", fmt.Errorf("unknown surface %q", surface)
	}
	return page, nil
}

// SetPage implements ports.PageAssignment.
func (h *Host) SetPage(ctx context.Context, surface domain.SurfaceID, page domain.PageRef) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pages[surface]; !ok {
		h.surfaces = append(h.surfaces, surface)
	}
	h.pages[surface] = page
	h.record(OpSetPage, surface, page)
	return nil
}

// List implements ports.SurfaceControl.
func (h *Host) List(ctx context.Context) ([]domain.SurfaceID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.SurfaceID(nil), h.surfaces...), nil
}

func (h *Host) SetBrightness(ctx context.Context, surface domain.SurfaceID, brightness int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpSetBrightness, surface, brightness)
	return nil
}

func (h *Host) Lockout(ctx context.Context, surface domain.SurfaceID, page string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpLockout, surface, page)
	return nil
}

func (h *Host) Unlock(ctx context.Context, surface domain.SurfaceID, page string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpUnlock, surface, page)
	return nil
}

func (h *Host) LockoutAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpLockoutAll)
	return nil
}

func (h *Host) UnlockAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpUnlockAll)
	return nil
}

func (h *Host) Rescan(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpRescan)
	return nil
}

// PinEnabled implements ports.UserConfig.
func (h *Host) PinEnabled(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pinEnabled
}

// LinkLockouts implements ports.UserConfig.
func (h *Host) LinkLockouts(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.linkLockouts
}

// Pages implements ports.ChoiceSets.
func (h *Host) Pages(ctx context.Context) ([]string, error) {
	return numbered(h.pageCount), nil
}

// Banks implements ports.ChoiceSets.
func (h *Host) Banks(ctx context.Context) ([]string, error) {
	return numbered(h.bankCount), nil
}

// Controllers implements ports.ChoiceSets.
func (h *Host) Controllers(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.surfaces))
	for i, s := range h.surfaces {
		out[i] = string(s)
	}
	return out, nil
}

func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

// Base implements ports.BankStore.
func (h *Host) Base(ctx context.Context, key domain.BankKey) (domain.Style, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	style, ok := h.banks[key]
	return style, ok, nil
}

// All implements ports.BankStore.
func (h *Host) All(ctx context.Context) (map[domain.BankKey]domain.Style, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[domain.BankKey]domain.Style, len(h.banks))
	for k, v := range h.banks {
		out[k] = v
	}
	return out, nil
}

// Override implements ports.StyleOverrides.
func (h *Host) Override(ctx context.Context, key domain.BankKey) (domain.Style, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overrides[key], nil
}

// Press implements ports.ButtonControl.
func (h *Host) Press(ctx context.Context, key domain.BankKey, pressed bool, surface domain.SurfaceID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushed[key] = pressed
	h.record(OpPress, key, pressed, surface)
	return nil
}

// ChangeField implements ports.ButtonControl by writing into the base record.
func (h *Host) ChangeField(ctx context.Context, key domain.BankKey, field string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Replace rather than mutate: engine copies taken earlier stay valid.
	next := domain.Style{}
	for k, v := range h.banks[key] {
		next[k] = v
	}
	next[field] = value
	h.banks[key] = next
	h.record(OpChangeField, key, field, value)
	return nil
}

func (h *Host) AbortBank(ctx context.Context, key domain.BankKey, unlatch bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpAbortBank, key, unlatch)
	return nil
}

func (h *Host) AbortAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpAbortAll)
	return nil
}

// IsPushed implements ports.ButtonControl.
func (h *Host) IsPushed(ctx context.Context, key domain.BankKey) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushed[key], nil
}

// Recompute implements ports.FeedbackEngine by recording the request.
func (h *Host) Recompute(ctx context.Context, ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	h.record(OpRecompute, sorted)
	return nil
}

// RecomputeTypes implements ports.FeedbackEngine by recording the request.
func (h *Host) RecomputeTypes(ctx context.Context, types ...domain.FeedbackType) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(OpRecomputeTypes, append([]domain.FeedbackType(nil), types...))
	return nil
}

// SetValue implements ports.CustomVariables. Custom variables live in the
// internal namespace under a "custom_" prefix.
func (h *Host) SetValue(ctx context.Context, name, value string) error {
	h.Variables.Set(customRef(name), value)

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.expressions, name)
	h.record(OpSetCustom, name, value)
	return nil
}

// SetExpression implements ports.CustomVariables. The expression is a
// template expanded immediately and on every call to Refresh.
func (h *Host) SetExpression(ctx context.Context, name, expression string) error {
	value, err := h.Variables.ParseTemplate(ctx, expression)
	if err != nil {
		return err
	}
	h.Variables.Set(customRef(name), value)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.expressions[name] = expression
	h.record(OpSetExpression, name, expression)
	return nil
}

// Refresh re-evaluates every custom variable expression and returns the
// names of the variables whose value changed.
func (h *Host) Refresh(ctx context.Context) ([]domain.VariableRef, error) {
	h.mu.Lock()
	exprs := make(map[string]string, len(h.expressions))
	for k, v := range h.expressions {
		exprs[k] = v
	}
	h.mu.Unlock()

	var changed []domain.VariableRef
	for name, expr := range exprs {
		value, err := h.Variables.ParseTemplate(ctx, expr)
		if err != nil {
			return changed, err
		}
		ref := customRef(name)
		if old, _ := h.Variables.Lookup(ref); old != value {
			h.Variables.Set(ref, value)
			changed = append(changed, ref)
		}
	}
	return changed, nil
}

func customRef(name string) domain.VariableRef {
	return domain.VariableRef{Namespace: domain.InternalNamespace, Name: "custom_" + name}
}

// SetInstanceEnabled implements ports.InstanceControl.
func (h *Host) SetInstanceEnabled(ctx context.Context, id string, enabled bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if enabled {
		delete(h.disabled, id)
	} else {
		h.disabled[id] = true
	}
	h.record(OpInstanceEnable, id, enabled)
	return nil
}

// InstanceEnabled reports whether an instance was left enabled.
func (h *Host) InstanceEnabled(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.disabled[id]
}

// Exit implements ports.AppControl.
func (h *Host) Exit(ctx context.Context) error {
	h.mu.Lock()
	h.record(OpAppExit)
	fn := h.onExit
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Restart implements ports.AppControl.
func (h *Host) Restart(ctx context.Context) error {
	h.mu.Lock()
	fn := h.onRestart
	if fn == nil {
		h.mu.Unlock()
		return fmt.Errorf("%w: restart", domain.ErrUnsupported)
	}
	h.record(OpAppRestart)
	h.mu.Unlock()

	fn()
	return nil
}
