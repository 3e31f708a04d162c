package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureView_LazySessionAdmission(t *testing.T) {
	r := NewRegistry(nil)

	// Creating a view for an unknown session is not an error; the set is
	// initialized transparently.
	v := r.EnsureView("s1", KindTerminal, Spec{Title: "Terminal"})
	assert.Equal(t, IDTerminal, v.ID)
	assert.True(t, r.HasSession("s1"))
}

func TestEnsureView_IdempotentByIdentity(t *testing.T) {
	r := NewRegistry(nil)

	first := r.EnsureView("s1", KindContainerShell, Spec{ChildSessionID: "c1", Title: "Shell"})
	second := r.EnsureView("s1", KindContainerShell, Spec{ChildSessionID: "c1", Title: "Shell 1"})

	assert.Equal(t, first.ID, second.ID, "same child session must map to the same view")
	assert.Equal(t, "Shell 1", second.Title, "update path must refresh the title")
	assert.Len(t, r.Views("s1"), 1)
}

func TestEnsureView_UpdatePreservesLifecycleState(t *testing.T) {
	r := NewRegistry(nil)

	v := r.EnsureView("s1", KindGeneratedLink, Spec{LinkRef: "doc-1", Title: "Doc"})
	token, ok := r.BeginGeneration("s1", v.ID)
	require.True(t, ok)
	require.True(t, r.FinishGeneration("s1", v.ID, token, true))

	again := r.EnsureView("s1", KindGeneratedLink, Spec{LinkRef: "doc-1", Title: "Doc v2"})
	assert.True(t, again.HasGeneratedOnce, "ensure must not reset generation state")
	assert.Equal(t, token, again.GenerationToken)
}

func TestCloseableByKind(t *testing.T) {
	r := NewRegistry(nil)

	assert.False(t, r.EnsureView("s", KindTerminal, Spec{}).Closeable)
	assert.False(t, r.EnsureView("s", KindContainerShell, Spec{ChildSessionID: "c"}).Closeable)
	assert.False(t, r.EnsureView("s", KindFileBrowser, Spec{}).Closeable)
	assert.False(t, r.EnsureView("s", KindNote, Spec{}).Closeable)
	assert.True(t, r.EnsureView("s", KindCommand, Spec{Command: "make"}).Closeable)
	assert.True(t, r.EnsureView("s", KindGeneratedLink, Spec{LinkRef: "x"}).Closeable)
}

func TestRemoveView_SignalsChildTermination(t *testing.T) {
	var terminated []string
	r := NewRegistry(func(childID string) { terminated = append(terminated, childID) })

	cmd := r.EnsureView("s1", KindCommand, Spec{Command: "ls"})
	require.True(t, r.Mutate("s1", cmd.ID, func(v *View) { v.ChildSessionID = "child-9" }))

	require.NoError(t, r.RemoveView("s1", cmd.ID))
	assert.Equal(t, []string{"child-9"}, terminated)
	assert.False(t, r.Has("s1", cmd.ID))
}

func TestRemoveView_UnknownIsError(t *testing.T) {
	r := NewRegistry(nil)
	assert.Error(t, r.RemoveView("s1", "nope"))
}

func TestGenerationTokenGuard(t *testing.T) {
	r := NewRegistry(nil)
	v := r.EnsureView("s1", KindGeneratedLink, Spec{LinkRef: "d"})

	t1, ok := r.BeginGeneration("s1", v.ID)
	require.True(t, ok)
	t2, ok := r.BeginGeneration("s1", v.ID)
	require.True(t, ok)
	require.Greater(t, t2, t1)

	// The older in-flight request completes after the newer one was issued:
	// its outcome must be discarded.
	assert.False(t, r.FinishGeneration("s1", v.ID, t1, true))
	got, _ := r.View("s1", v.ID)
	assert.False(t, got.HasGeneratedOnce)
	assert.True(t, got.IsGenerating)

	assert.True(t, r.FinishGeneration("s1", v.ID, t2, true))
	got, _ = r.View("s1", v.ID)
	assert.True(t, got.HasGeneratedOnce)
	assert.False(t, got.IsGenerating)
}

func TestDropSession(t *testing.T) {
	r := NewRegistry(nil)
	r.EnsureView("s1", KindTerminal, Spec{})
	r.DropSession("s1")
	assert.False(t, r.HasSession("s1"))
	assert.Empty(t, r.Views("s1"))
}
