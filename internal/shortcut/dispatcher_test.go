package shortcut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChord(t *testing.T) {
	c, err := ParseChord("ctrl+shift+K")
	require.NoError(t, err)
	assert.Equal(t, Chord{Key: "k", Ctrl: true, Shift: true}, c)

	c, err = ParseChord("alt+enter")
	require.NoError(t, err)
	assert.Equal(t, Chord{Key: "enter", Alt: true}, c)

	c, err = ParseChord("g")
	require.NoError(t, err)
	assert.Equal(t, Chord{Key: "g"}, c)

	_, err = ParseChord("bogus+x")
	assert.Error(t, err)
	_, err = ParseChord("ctrl+")
	assert.Error(t, err)
}

func TestChord_ExactModifierMatch(t *testing.T) {
	ctrlK := MustChord("ctrl+k")
	assert.True(t, ctrlK.Matches(Chord{Key: "k", Ctrl: true}))
	// Subset/superset modifier sets never match.
	assert.False(t, ctrlK.Matches(MustChord("ctrl+shift+k")))
	assert.False(t, ctrlK.Matches(Chord{Key: "k"}))
}

func handled(ids *[]string, id string) func(Event) bool {
	return func(Event) bool {
		*ids = append(*ids, id)
		return true
	}
}

func TestDispatch_PriorityThenRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "low", Matchers: []Chord{MustChord("ctrl+k")}, Priority: 1, Handler: handled(&fired, "low")})
	d.Register(Spec{ID: "high", Matchers: []Chord{MustChord("ctrl+k")}, Priority: 10, Handler: handled(&fired, "high")})

	out := d.Dispatch(Event{Chord: MustChord("ctrl+k")})
	assert.True(t, out.Handled)
	assert.Equal(t, "high", out.HandledBy)
	assert.Equal(t, []string{"high"}, fired, "consume default stops evaluation")
}

func TestDispatch_RegistrationOrderBreaksTies(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "first", Matchers: []Chord{MustChord("x")}, Priority: 5, Handler: handled(&fired, "first")})
	d.Register(Spec{ID: "second", Matchers: []Chord{MustChord("x")}, Priority: 5, Handler: handled(&fired, "second")})

	out := d.Dispatch(Event{Chord: MustChord("x")})
	assert.Equal(t, "first", out.HandledBy)
}

func TestDispatch_ReRegisterReplaces(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "s", Matchers: []Chord{MustChord("a")}, Handler: handled(&fired, "v1")})
	d.Register(Spec{ID: "s", Matchers: []Chord{MustChord("b")}, Handler: handled(&fired, "v2")})

	assert.False(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
	assert.True(t, d.Dispatch(Event{Chord: MustChord("b")}).Handled)
	assert.Equal(t, []string{"v2"}, fired)
}

func TestDispatch_Unregister(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	unregister := d.Register(Spec{ID: "s", Matchers: []Chord{MustChord("a")}, Handler: handled(&fired, "s")})
	unregister()

	assert.False(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
}

func TestDispatch_WhenPredicate(t *testing.T) {
	d := NewDispatcher()
	enabled := false
	var fired []string

	d.Register(Spec{
		ID:       "cond",
		Matchers: []Chord{MustChord("a")},
		When:     func() bool { return enabled },
		Handler:  handled(&fired, "cond"),
	})

	assert.False(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
	enabled = true
	assert.True(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
}

func TestDispatch_InputExclusion(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "plain", Matchers: []Chord{MustChord("j")}, Handler: handled(&fired, "plain")})
	d.Register(Spec{ID: "escape", Matchers: []Chord{MustChord("escape")}, AllowInInputs: true, Handler: handled(&fired, "escape")})

	input := Target{Name: "search", IsTextInput: true}
	assert.False(t, d.Dispatch(Event{Chord: MustChord("j"), Target: input}).Handled,
		"plain shortcuts must not fire while typing")
	assert.True(t, d.Dispatch(Event{Chord: MustChord("escape"), Target: input}).Handled)

	// No input focused: plain shortcut fires.
	assert.True(t, d.Dispatch(Event{Chord: MustChord("j")}).Handled)
}

func TestDispatch_InputAllowlist(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{
		ID:             "palette-nav",
		Matchers:       []Chord{MustChord("down")},
		InputAllowlist: func(t Target) bool { return t.Name == "palette" },
		Handler:        handled(&fired, "palette-nav"),
	})

	assert.True(t, d.Dispatch(Event{Chord: MustChord("down"), Target: Target{Name: "palette", IsTextInput: true}}).Handled)
	assert.False(t, d.Dispatch(Event{Chord: MustChord("down"), Target: Target{Name: "search", IsTextInput: true}}).Handled)
}

func TestDispatch_EditableExclusion(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "nav", Matchers: []Chord{MustChord("tab")}, Handler: handled(&fired, "nav")})
	d.Register(Spec{ID: "save", Matchers: []Chord{MustChord("ctrl+s")}, AllowInEditable: true, Handler: handled(&fired, "save")})

	editor := Target{Name: "note", IsEditable: true}
	assert.False(t, d.Dispatch(Event{Chord: MustChord("tab"), Target: editor}).Handled)
	assert.True(t, d.Dispatch(Event{Chord: MustChord("ctrl+s"), Target: editor}).Handled)
}

func TestDispatch_ModalGateSuppressesAll(t *testing.T) {
	d := NewDispatcher()
	var fired []string
	modalOpen := false
	d.SetModalGate(func() bool { return modalOpen })

	d.Register(Spec{ID: "s", Matchers: []Chord{MustChord("a")}, AllowInInputs: true, Handler: handled(&fired, "s")})

	modalOpen = true
	assert.False(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
	modalOpen = false
	assert.True(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
}

func TestDispatch_ScopeDisable(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "s", Scope: "deck", Matchers: []Chord{MustChord("a")}, Handler: handled(&fired, "s")})

	d.SetScopeEnabled("deck", false)
	assert.False(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
	d.SetScopeEnabled("deck", true)
	assert.True(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
}

func TestDispatch_DisableSingle(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{ID: "s", Matchers: []Chord{MustChord("a")}, Handler: handled(&fired, "s")})
	d.SetEnabled("s", false)
	assert.False(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
	d.SetEnabled("s", true)
	assert.True(t, d.Dispatch(Event{Chord: MustChord("a")}).Handled)
}

func TestDispatch_NonConsumingContinues(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{
		ID: "tap", Matchers: []Chord{MustChord("a")}, Priority: 10,
		Consume: BoolPtr(false), Handler: handled(&fired, "tap"),
	})
	d.Register(Spec{ID: "main", Matchers: []Chord{MustChord("a")}, Handler: handled(&fired, "main")})

	out := d.Dispatch(Event{Chord: MustChord("a")})
	assert.True(t, out.Handled)
	assert.Equal(t, []string{"tap", "main"}, fired, "non-consuming hit must not stop evaluation")
	assert.Equal(t, "tap", out.HandledBy, "first hit keeps attribution")
}

func TestDispatch_NonConsumingAccumulatesFlags(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{
		ID: "tap", Matchers: []Chord{MustChord("a")}, Priority: 10,
		Consume: BoolPtr(false), Handler: handled(&fired, "tap"),
	})
	d.Register(Spec{
		ID: "main", Matchers: []Chord{MustChord("a")},
		PreventDefault: true, StopPropagation: true, Handler: handled(&fired, "main"),
	})

	out := d.Dispatch(Event{Chord: MustChord("a")})
	assert.Equal(t, "tap", out.HandledBy)
	assert.True(t, out.PreventDefault)
	assert.True(t, out.StopPropagation)
}

func TestDispatch_HandlerReturningFalseFallsThrough(t *testing.T) {
	d := NewDispatcher()
	var fired []string

	d.Register(Spec{
		ID: "picky", Matchers: []Chord{MustChord("a")}, Priority: 10,
		Handler: func(Event) bool { return false },
	})
	d.Register(Spec{ID: "fallback", Matchers: []Chord{MustChord("a")}, Handler: handled(&fired, "fallback")})

	out := d.Dispatch(Event{Chord: MustChord("a")})
	assert.Equal(t, "fallback", out.HandledBy)
}

func TestBindings(t *testing.T) {
	d := NewDispatcher()
	d.Register(Spec{ID: "s", Matchers: []Chord{MustChord("ctrl+b"), MustChord("ctrl+a")}})

	b := d.Bindings()
	require.Contains(t, b, "s")
	assert.Equal(t, "ctrl+a", b["s"][0].String())
	assert.Equal(t, "ctrl+b", b["s"][1].String())
}
