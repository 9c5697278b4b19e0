package reconcile

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/sink/sinktest"
	"github.com/room4-2/lelamp-dashboard/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommander struct {
	mu        sync.Mutex
	colors    []state.Color
	plays     []string
	chats     []string
	colorErr  error
	playErr   error
	chatReply messages.ChatResponse
	chatErr   error
}

func (f *fakeCommander) SetSolidColor(_ context.Context, r, g, b int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.colors = append(f.colors, state.Color{R: r, G: g, B: b})
	return f.colorErr
}

func (f *fakeCommander) PlayRecording(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, name)
	return f.playErr
}

func (f *fakeCommander) Chat(_ context.Context, message string) (messages.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, message)
	return f.chatReply, f.chatErr
}

type fixture struct {
	vm    *state.ViewModel
	sink  *sinktest.Recorder
	cmd   *fakeCommander
	clock *clock.Fake
	rec   *Reconciler
}

func newFixture() *fixture {
	vm := state.NewViewModel(state.PanelExpressions)
	s := &sinktest.Recorder{}
	cmd := &fakeCommander{}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return &fixture{
		vm:    vm,
		sink:  s,
		cmd:   cmd,
		clock: clk,
		rec:   New(vm, s, cmd, clk, 3*time.Second),
	}
}

func TestApplyLocalColorEditClampsAndRendersSynchronously(t *testing.T) {
	f := newFixture()

	for _, v := range []int{-1000, -1, 0, 17, 255, 256, 1 << 20} {
		c := f.rec.ApplyLocalColorEdit(state.Green, v)
		assert.GreaterOrEqual(t, c.G, 0)
		assert.LessOrEqual(t, c.G, 255)
		assert.Equal(t, c, f.vm.Color())

		rendered, ok := f.sink.LastColor()
		require.True(t, ok)
		assert.Equal(t, c, rendered)
	}
	assert.Equal(t, 255, f.vm.Color().G)
	assert.Empty(t, f.cmd.colors, "local edits must not issue commands")
}

func TestPushWinsOverLocalEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	channels := []state.Channel{state.Red, state.Green, state.Blue}

	for run := 0; run < 200; run++ {
		f := newFixture()
		expected := f.vm.Color()

		for step := 0; step < 20; step++ {
			if rng.Intn(2) == 0 {
				rgb := messages.RGB{R: rng.Intn(256), G: rng.Intn(256), B: rng.Intn(256)}
				f.rec.ApplyPushColor(rgb)
				expected = state.ColorFromRGB(rgb)
			} else {
				ch := channels[rng.Intn(3)]
				v := rng.Intn(600) - 200
				f.rec.ApplyLocalColorEdit(ch, v)
				expected = expected.With(ch, v)
			}
		}

		rendered, ok := f.sink.LastColor()
		require.True(t, ok)
		assert.Equal(t, expected, rendered)
		assert.Equal(t, expected, f.vm.Color())
	}
}

func TestCommitColorSwallowsFailures(t *testing.T) {
	f := newFixture()
	f.cmd.colorErr = errors.New("connection refused")

	f.rec.ApplyLocalColorEdit(state.Red, 10)
	f.rec.CommitColor(context.Background())

	assert.Equal(t, []state.Color{{R: 10, G: 255, B: 255}}, f.cmd.colors)
	assert.Equal(t, state.Color{R: 10, G: 255, B: 255}, f.vm.Color(), "optimistic color stands")
}

func TestApplyPresetByName(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.rec.ApplyPresetByName(context.Background(), "Purple"))
	assert.Equal(t, Presets["purple"], f.vm.Color())
	assert.Equal(t, []state.Color{Presets["purple"]}, f.cmd.colors)

	assert.Error(t, f.rec.ApplyPresetByName(context.Background(), "chartreuse"))
	assert.Len(t, f.cmd.colors, 1)
}

func TestApplySession(t *testing.T) {
	f := newFixture()

	f.rec.ApplySession(messages.InitEvent{
		SessionID: "abcdef0123456789",
		Hardware:  true,
		Color:     &messages.RGB{R: 1, G: 2, B: 3},
	})

	assert.Equal(t, state.SessionInfo{SessionID: "abcdef0123456789", HardwarePresent: true}, f.vm.Session())
	assert.Equal(t, []bool{true}, f.sink.Hardware)
	assert.Equal(t, state.Color{R: 1, G: 2, B: 3}, f.vm.Color())

	f.rec.ApplySession(messages.InitEvent{SessionID: "next"})
	assert.Equal(t, state.Color{R: 1, G: 2, B: 3}, f.vm.Color(), "init without rgb keeps the color")
	assert.Equal(t, []bool{true, false}, f.sink.Hardware)
}

func TestRecordConversationReplacesSlot(t *testing.T) {
	f := newFixture()

	f.rec.RecordConversation("a", "b")
	f.rec.RecordConversation("hi", "hello")

	assert.Equal(t, state.Exchange{UserInput: "hi", AIResponse: "hello"}, f.vm.LastConversation())
	last, ok := f.sink.LastExchange()
	require.True(t, ok)
	assert.Equal(t, state.Exchange{UserInput: "hi", AIResponse: "hello"}, last)
}

func TestPlayExpressionClearsAfterDuration(t *testing.T) {
	f := newFixture()
	f.cmd.playErr = errors.New("no such recording")

	f.rec.PlayExpression(context.Background(), "nod")
	assert.True(t, f.vm.IsPlaying("nod"))
	assert.Equal(t, []string{"nod"}, f.cmd.plays)

	f.clock.Advance(2999 * time.Millisecond)
	assert.True(t, f.vm.IsPlaying("nod"))

	f.clock.Advance(time.Millisecond)
	assert.False(t, f.vm.IsPlaying("nod"))
	assert.Equal(t, []sinktest.Playing{{Name: "nod", Playing: true}, {Name: "nod", Playing: false}}, f.sink.PlayingHistory())
}

func TestPlayExpressionAgainRestartsDuration(t *testing.T) {
	f := newFixture()

	f.rec.PlayExpression(context.Background(), "nod")
	f.clock.Advance(2 * time.Second)
	f.rec.PlayExpression(context.Background(), "nod")

	f.clock.Advance(2 * time.Second)
	assert.True(t, f.vm.IsPlaying("nod"))

	f.clock.Advance(time.Second)
	assert.False(t, f.vm.IsPlaying("nod"))
	assert.Equal(t, 0, f.clock.Pending())
}

func TestSendChat(t *testing.T) {
	f := newFixture()
	triggered := 0
	f.rec.OnConversation = func() { triggered++ }
	f.cmd.chatReply = messages.ChatResponse{UserInput: "hi", AIResponse: "hello"}

	f.rec.SendChat(context.Background(), "   ")
	assert.Empty(t, f.cmd.chats)

	f.rec.SendChat(context.Background(), "  hi  ")
	assert.Equal(t, []string{"hi"}, f.cmd.chats)
	assert.Equal(t, state.Exchange{UserInput: "hi", AIResponse: "hello"}, f.vm.LastConversation())
	assert.Equal(t, 1, triggered)
}

func TestSendChatIgnoresIncompleteAndFailedReplies(t *testing.T) {
	f := newFixture()
	triggered := 0
	f.rec.OnConversation = func() { triggered++ }

	f.cmd.chatReply = messages.ChatResponse{UserInput: "hi"}
	f.rec.SendChat(context.Background(), "hi")

	f.cmd.chatErr = errors.New("timeout")
	f.rec.SendChat(context.Background(), "hi")

	assert.Len(t, f.cmd.chats, 2)
	assert.Equal(t, state.Exchange{}, f.vm.LastConversation())
	assert.Equal(t, 0, triggered)
}
