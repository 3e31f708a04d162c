package shortcut

import (
	"sort"
	"sync"
)

// Target describes the element that had focus when the key event occurred.
// Dispatch skips shortcuts while a plain text input or editable surface is
// focused, unless the shortcut opts in or the target matches its allowlist.
type Target struct {
	// Name identifies the focused element (for allowlist predicates).
	Name string
	// IsTextInput is true for plain text entry fields.
	IsTextInput bool
	// IsEditable is true for rich editable surfaces (the note editor).
	IsEditable bool
}

// Event is one key event presented to the dispatcher.
type Event struct {
	Chord  Chord
	Target Target
}

// Outcome reports how an event was handled.
type Outcome struct {
	Handled         bool
	HandledBy       string
	PreventDefault  bool
	StopPropagation bool
}

// Spec registers one shortcut. Re-registering the same ID replaces the
// prior registration.
type Spec struct {
	ID       string
	Matchers []Chord
	Priority int
	Scope    string

	// When gates dispatch dynamically; nil means always eligible.
	When func() bool

	// AllowInInputs/AllowInEditable opt in to firing while a text input or
	// editable surface is focused. InputAllowlist, when set, admits
	// specific targets even without the blanket opt-in.
	AllowInInputs   bool
	AllowInEditable bool
	InputAllowlist  func(Target) bool

	PreventDefault  bool
	StopPropagation bool

	// Consume, when nil, defaults to true: a handled event stops further
	// shortcut evaluation.
	Consume *bool

	// Handler returns true when it actually handled the event.
	Handler func(Event) bool
}

type registration struct {
	spec     Spec
	order    int
	disabled bool
}

// Dispatcher is the global chord registry.
type Dispatcher struct {
	mu             sync.Mutex
	items          []*registration
	byID           map[string]*registration
	disabledScopes map[string]bool
	nextOrder      int

	// modalGate, when it returns true, suppresses all shortcut dispatch.
	// Modal/overlay surfaces manage their own key handling.
	modalGate func() bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		byID:           make(map[string]*registration),
		disabledScopes: make(map[string]bool),
	}
}

// SetModalGate installs the global suppression gate.
func (d *Dispatcher) SetModalGate(gate func() bool) {
	d.mu.Lock()
	d.modalGate = gate
	d.mu.Unlock()
}

// Register adds or replaces a shortcut and returns its unregister function.
// The list is re-sorted on every membership change.
func (d *Dispatcher) Register(spec Spec) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byID[spec.ID]; ok {
		// Replacement keeps the original registration order so priority
		// ties stay stable across re-registration.
		old.spec = spec
		old.disabled = false
		d.resortLocked()
		return d.unregisterFn(spec.ID)
	}

	reg := &registration{spec: spec, order: d.nextOrder}
	d.nextOrder++
	d.items = append(d.items, reg)
	d.byID[spec.ID] = reg
	d.resortLocked()
	return d.unregisterFn(spec.ID)
}

func (d *Dispatcher) unregisterFn(id string) func() {
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		reg, ok := d.byID[id]
		if !ok {
			return
		}
		delete(d.byID, id)
		for i, r := range d.items {
			if r == reg {
				d.items = append(d.items[:i], d.items[i+1:]...)
				break
			}
		}
		d.resortLocked()
	}
}

// resortLocked re-sorts by (priority desc, registration order asc). Must be
// called with d.mu held.
func (d *Dispatcher) resortLocked() {
	sort.SliceStable(d.items, func(i, j int) bool {
		a, b := d.items[i], d.items[j]
		if a.spec.Priority != b.spec.Priority {
			return a.spec.Priority > b.spec.Priority
		}
		return a.order < b.order
	})
}

// SetEnabled enables or disables a single shortcut by ID.
func (d *Dispatcher) SetEnabled(id string, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if reg, ok := d.byID[id]; ok {
		reg.disabled = !enabled
	}
}

// SetScopeEnabled enables or disables every shortcut in a scope.
func (d *Dispatcher) SetScopeEnabled(scope string, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if enabled {
		delete(d.disabledScopes, scope)
	} else {
		d.disabledScopes[scope] = true
	}
}

// Bindings returns the registered chords per shortcut ID, for help overlays.
func (d *Dispatcher) Bindings() map[string][]Chord {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string][]Chord, len(d.byID))
	for id, reg := range d.byID {
		chords := append([]Chord(nil), reg.spec.Matchers...)
		sortChords(chords)
		out[id] = chords
	}
	return out
}

// Dispatch evaluates an event against the registry in precedence order.
func (d *Dispatcher) Dispatch(ev Event) Outcome {
	d.mu.Lock()
	if d.modalGate != nil && d.modalGate() {
		d.mu.Unlock()
		return Outcome{}
	}
	// Snapshot under lock; handlers run without it and may re-register.
	eligible := make([]*registration, len(d.items))
	copy(eligible, d.items)
	disabledScopes := make(map[string]bool, len(d.disabledScopes))
	for s := range d.disabledScopes {
		disabledScopes[s] = true
	}
	d.mu.Unlock()

	for _, reg := range eligible {
		spec := reg.spec
		if reg.disabled || disabledScopes[spec.Scope] {
			continue
		}
		if spec.When != nil && !spec.When() {
			continue
		}
		if !matchesAny(spec.Matchers, ev.Chord) {
			continue
		}
		if !allowedForTarget(spec, ev.Target) {
			continue
		}
		if spec.Handler == nil || !spec.Handler(ev) {
			continue
		}

		out := Outcome{
			Handled:         true,
			HandledBy:       spec.ID,
			PreventDefault:  spec.PreventDefault,
			StopPropagation: spec.StopPropagation,
		}
		if spec.Consume == nil || *spec.Consume {
			return out
		}
		// Non-consuming shortcut: keep evaluating. HandledBy stays the
		// first hit; later handlers only accumulate flags.
		rest := d.dispatchRemaining(eligible, reg, ev, disabledScopes)
		out.PreventDefault = out.PreventDefault || rest.PreventDefault
		out.StopPropagation = out.StopPropagation || rest.StopPropagation
		return out
	}
	return Outcome{}
}

// dispatchRemaining continues evaluation past a non-consuming hit.
func (d *Dispatcher) dispatchRemaining(eligible []*registration, after *registration, ev Event, disabledScopes map[string]bool) Outcome {
	seen := false
	for _, reg := range eligible {
		if reg == after {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		spec := reg.spec
		if reg.disabled || disabledScopes[spec.Scope] {
			continue
		}
		if spec.When != nil && !spec.When() {
			continue
		}
		if !matchesAny(spec.Matchers, ev.Chord) {
			continue
		}
		if !allowedForTarget(spec, ev.Target) {
			continue
		}
		if spec.Handler == nil || !spec.Handler(ev) {
			continue
		}
		out := Outcome{
			Handled:         true,
			HandledBy:       spec.ID,
			PreventDefault:  spec.PreventDefault,
			StopPropagation: spec.StopPropagation,
		}
		if spec.Consume == nil || *spec.Consume {
			return out
		}
	}
	return Outcome{}
}

func matchesAny(matchers []Chord, chord Chord) bool {
	for _, m := range matchers {
		if m.Matches(chord) {
			return true
		}
	}
	return false
}

func allowedForTarget(spec Spec, t Target) bool {
	if t.IsTextInput && !spec.AllowInInputs {
		if spec.InputAllowlist != nil && spec.InputAllowlist(t) {
			return true
		}
		return false
	}
	if t.IsEditable && !spec.AllowInEditable {
		if spec.InputAllowlist != nil && spec.InputAllowlist(t) {
			return true
		}
		return false
	}
	return true
}

// BoolPtr is a convenience for Spec.Consume.
func BoolPtr(b bool) *bool { return &b }
