package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/config"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/sink"
	"github.com/room4-2/lelamp-dashboard/sink/sinktest"
	"github.com/room4-2/lelamp-dashboard/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakePuller struct {
	mu     sync.Mutex
	calls  map[Resource]int
	limits map[Resource][]int

	recordings    []string
	conversations []messages.Conversation
	logs          []messages.AuditLog
	err           error

	// conversationsFn overrides conversations when set; call counts from 1
	conversationsFn func(call int) ([]messages.Conversation, error)
}

func newFakePuller() *fakePuller {
	return &fakePuller{calls: make(map[Resource]int), limits: make(map[Resource][]int)}
}

func (p *fakePuller) record(r Resource, limit int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[r]++
	p.limits[r] = append(p.limits[r], limit)
	return p.calls[r]
}

func (p *fakePuller) Calls(r Resource) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[r]
}

func (p *fakePuller) Recordings(context.Context) ([]string, error) {
	p.record(Expressions, 0)
	return p.recordings, p.err
}

func (p *fakePuller) Conversations(_ context.Context, limit int) ([]messages.Conversation, error) {
	call := p.record(Conversations, limit)
	if p.conversationsFn != nil {
		return p.conversationsFn(call)
	}
	return p.conversations, p.err
}

func (p *fakePuller) AuditLogs(_ context.Context, limit int) ([]messages.AuditLog, error) {
	p.record(AuditLog, limit)
	return p.logs, p.err
}

type fixture struct {
	cfg    *config.Config
	vm     *state.ViewModel
	sink   *sinktest.Recorder
	puller *fakePuller
	clock  *clock.Fake
	coord  *Coordinator
}

func newFixture() *fixture {
	cfg := config.Default()
	vm := state.NewViewModel(state.PanelExpressions)
	s := &sinktest.Recorder{}
	p := newFakePuller()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return &fixture{
		cfg:    cfg,
		vm:     vm,
		sink:   s,
		puller: p,
		clock:  clk,
		coord:  NewCoordinator(cfg, vm, s, p, clk),
	}
}

func TestParseResource(t *testing.T) {
	for name, want := range map[string]Resource{
		"expressions":   Expressions,
		"conversations": Conversations,
		"logs":          AuditLog,
		"audit-logs":    AuditLog,
	} {
		got, err := ParseResource(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseResource("weather")
	assert.Error(t, err)
}

func TestPullUsesPageSizes(t *testing.T) {
	f := newFixture()

	f.coord.Pull(context.Background(), Conversations)
	f.coord.Pull(context.Background(), AuditLog)

	assert.Equal(t, []int{20}, f.puller.limits[Conversations])
	assert.Equal(t, []int{50}, f.puller.limits[AuditLog])
}

func TestPullKeepsSourceOrder(t *testing.T) {
	f := newFixture()
	newest := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	f.puller.conversations = []messages.Conversation{
		{Timestamp: newest, UserInput: "second"},
		{Timestamp: newest.Add(-time.Hour), UserInput: "first"},
	}

	f.coord.Pull(context.Background(), Conversations)

	got := f.vm.Conversations()
	assert.Equal(t, state.StatusLoaded, got.Status)
	assert.Equal(t, f.puller.conversations, got.Items)
}

func TestPullFailureIsDistinctFromEmpty(t *testing.T) {
	f := newFixture()

	f.puller.err = errors.New("connection refused")
	f.coord.Pull(context.Background(), Conversations)

	rendered, ok := f.sink.LastConversations()
	require.True(t, ok)
	assert.Equal(t, state.StatusFailed, rendered.Status)
	assert.Equal(t, sink.FailedToLoad, sink.ConversationsPlaceholder(rendered))

	f.puller.err = nil
	f.puller.conversations = []messages.Conversation{}
	f.coord.Pull(context.Background(), Conversations)

	rendered, ok = f.sink.LastConversations()
	require.True(t, ok)
	assert.Equal(t, sink.NoConversations, sink.ConversationsPlaceholder(rendered))
}

func TestPullFailureReplacesStaleItems(t *testing.T) {
	f := newFixture()
	f.puller.logs = []messages.AuditLog{{Endpoint: "/api/chat"}}
	f.coord.Pull(context.Background(), AuditLog)
	require.Len(t, f.vm.AuditLogs().Items, 1)

	f.puller.err = errors.New("boom")
	f.coord.Pull(context.Background(), AuditLog)

	assert.Equal(t, state.StatusFailed, f.vm.AuditLogs().Status)
	assert.Empty(t, f.vm.AuditLogs().Items)
}

func TestPullExpressionsPassesOnSelect(t *testing.T) {
	f := newFixture()
	f.puller.recordings = []string{"nod", "shy"}

	f.coord.Pull(context.Background(), Expressions)

	assert.Equal(t, state.Loaded([]string{"nod", "shy"}), f.vm.Expressions())
	e, _, _ := f.sink.Counts()
	assert.Equal(t, 1, e)
}

func TestTickOnlyPullsVisiblePanel(t *testing.T) {
	tests := []struct {
		panel         state.Panel
		conversations int
		logs          int
	}{
		{state.PanelExpressions, 0, 0},
		{state.PanelConversations, 1, 0},
		{state.PanelLogs, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.panel.String(), func(t *testing.T) {
			f := newFixture()
			f.vm.SetPanel(tt.panel)

			f.coord.Tick()
			f.coord.Wait()

			assert.Equal(t, tt.conversations, f.puller.Calls(Conversations))
			assert.Equal(t, tt.logs, f.puller.Calls(AuditLog))
			assert.Equal(t, 0, f.puller.Calls(Expressions))
		})
	}
}

func TestStartPollsVisiblePanelEveryInterval(t *testing.T) {
	f := newFixture()
	f.vm.SetPanel(state.PanelConversations)

	ctx, cancel := context.WithCancel(context.Background())
	f.coord.Start(ctx)
	t.Cleanup(func() {
		cancel()
		f.coord.Wait()
	})

	// Startup pulls every resource once, whatever is visible
	require.Eventually(t, func() bool {
		return f.puller.Calls(Expressions) == 1 && f.puller.Calls(Conversations) == 1 && f.puller.Calls(AuditLog) == 1
	}, waitFor, tick)

	f.clock.Advance(9999 * time.Millisecond)
	assert.Never(t, func() bool { return f.puller.Calls(Conversations) != 1 }, 50*time.Millisecond, tick)

	f.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return f.puller.Calls(Conversations) == 2 }, waitFor, tick)
	assert.Never(t, func() bool { return f.puller.Calls(AuditLog) != 1 }, 50*time.Millisecond, tick)
	assert.Equal(t, 1, f.puller.Calls(Expressions))
}

func TestPollingStopsWithContext(t *testing.T) {
	f := newFixture()
	f.vm.SetPanel(state.PanelLogs)

	ctx, cancel := context.WithCancel(context.Background())
	f.coord.Start(ctx)
	require.Eventually(t, func() bool { return f.puller.Calls(AuditLog) == 1 }, waitFor, tick)

	cancel()
	f.coord.Wait()

	f.clock.Advance(time.Minute)
	assert.Equal(t, 1, f.puller.Calls(AuditLog))
}

func TestSetPanelPullsImmediately(t *testing.T) {
	f := newFixture()

	f.coord.SetPanel(state.PanelLogs)
	f.coord.Wait()
	assert.Equal(t, 1, f.puller.Calls(AuditLog))
	assert.Equal(t, state.PanelLogs, f.vm.Panel())
	assert.Equal(t, []state.Panel{state.PanelLogs}, f.sink.Panels)

	f.coord.SetPanel(state.PanelExpressions)
	f.coord.Wait()
	assert.Equal(t, 1, f.puller.Calls(Expressions))
}

// overlapPulls runs two conversation pulls where the first one resolves
// after the second
func overlapPulls(f *fixture) {
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	f.puller.conversationsFn = func(call int) ([]messages.Conversation, error) {
		if call == 1 {
			close(firstStarted)
			<-release
			return []messages.Conversation{{UserInput: "old"}}, nil
		}
		return []messages.Conversation{{UserInput: "new"}}, nil
	}

	done := make(chan struct{})
	go func() {
		f.coord.Pull(context.Background(), Conversations)
		close(done)
	}()
	<-firstStarted

	f.coord.Pull(context.Background(), Conversations)
	close(release)
	<-done
}

func TestLastResponseToLandWinsByDefault(t *testing.T) {
	f := newFixture()
	require.False(t, f.cfg.DiscardStalePulls)

	overlapPulls(f)

	assert.Equal(t, "old", f.vm.Conversations().Items[0].UserInput)
	rendered, ok := f.sink.LastConversations()
	require.True(t, ok)
	assert.Equal(t, "old", rendered.Items[0].UserInput)
	_, conversations, _ := f.sink.Counts()
	assert.Equal(t, 2, conversations)
}

func TestStalePullIsDiscardedWhenGuardEnabled(t *testing.T) {
	f := newFixture()
	f.cfg.DiscardStalePulls = true
	f.coord = NewCoordinator(f.cfg, f.vm, f.sink, f.puller, f.clock)

	overlapPulls(f)

	assert.Equal(t, "new", f.vm.Conversations().Items[0].UserInput)
	_, conversations, _ := f.sink.Counts()
	assert.Equal(t, 1, conversations)
}

func TestTriggerNumbersPullsBeforeTheyRun(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	f.puller.conversationsFn = func(int) ([]messages.Conversation, error) {
		<-release
		return []messages.Conversation{}, nil
	}

	f.coord.Trigger(Conversations)
	f.coord.Trigger(Conversations)

	// Numbers are taken at trigger time, whatever the goroutines are doing
	f.coord.mu.Lock()
	issued := f.coord.issued[Conversations]
	f.coord.mu.Unlock()
	assert.Equal(t, uint64(2), issued)

	close(release)
	f.coord.Wait()
	assert.Equal(t, 2, f.puller.Calls(Conversations))
	assert.Equal(t, state.StatusLoaded, f.vm.Conversations().Status)
}
