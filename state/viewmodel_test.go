package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	for _, v := range []int{-1000, -1, 0, 1, 128, 254, 255, 256, 1 << 20} {
		got := Clamp(v)
		assert.GreaterOrEqual(t, got, 0, "Clamp(%d)", v)
		assert.LessOrEqual(t, got, 255, "Clamp(%d)", v)
	}
	assert.Equal(t, 0, Clamp(-5))
	assert.Equal(t, 255, Clamp(300))
	assert.Equal(t, 42, Clamp(42))
}

func TestColorWith(t *testing.T) {
	c := Color{R: 1, G: 2, B: 3}
	assert.Equal(t, Color{R: 255, G: 2, B: 3}, c.With(Red, 999))
	assert.Equal(t, Color{R: 1, G: 0, B: 3}, c.With(Green, -4))
	assert.Equal(t, Color{R: 1, G: 2, B: 77}, c.With(Blue, 77))
}

func TestViewModelDefaults(t *testing.T) {
	vm := NewViewModel(PanelLogs)
	assert.Equal(t, White, vm.Color())
	assert.Equal(t, PanelLogs, vm.Panel())
	assert.Equal(t, StatusPending, vm.Conversations().Status)
	assert.Equal(t, "—", vm.Session().ShortID())
}

func TestViewModelSnapshotIsACopy(t *testing.T) {
	vm := NewViewModel(PanelExpressions)
	vm.SetPlaying("nod", true)

	snap := vm.Snapshot()
	snap.Playing["shy"] = true
	vm.SetPlaying("nod", false)

	assert.True(t, snap.Playing["nod"])
	assert.False(t, vm.IsPlaying("shy"))
	assert.False(t, vm.IsPlaying("nod"))
}

func TestListingStates(t *testing.T) {
	empty := Loaded[string](nil)
	failed := Failed[string](errors.New("boom"))

	assert.True(t, empty.Empty())
	assert.False(t, failed.Empty())
	assert.Equal(t, StatusFailed, failed.Status)
	assert.False(t, Loaded([]string{"nod"}).Empty())
}

func TestParsePanelAndChannel(t *testing.T) {
	p, err := ParsePanel("conversations")
	require.NoError(t, err)
	assert.Equal(t, PanelConversations, p)
	_, err = ParsePanel("settings")
	assert.Error(t, err)

	ch, err := ParseChannel("g")
	require.NoError(t, err)
	assert.Equal(t, Green, ch)
	_, err = ParseChannel("alpha")
	assert.Error(t, err)
}

func TestSessionShortID(t *testing.T) {
	assert.Equal(t, "12345678", SessionInfo{SessionID: "1234567890"}.ShortID())
	assert.Equal(t, "abc", SessionInfo{SessionID: "abc"}.ShortID())
}
