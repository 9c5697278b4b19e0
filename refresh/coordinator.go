// Package refresh keeps the dashboard's pulled collections current: the
// expressions catalog, the conversation history and the audit log.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/config"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/sink"
	"github.com/room4-2/lelamp-dashboard/state"
)

// Resource is one pulled collection
type Resource int

const (
	Expressions Resource = iota
	Conversations
	AuditLog
	numResources
)

func (r Resource) String() string {
	switch r {
	case Expressions:
		return "expressions"
	case Conversations:
		return "conversations"
	case AuditLog:
		return "logs"
	default:
		return fmt.Sprintf("Resource(%d)", int(r))
	}
}

// ParseResource accepts the names used by the console and by panels
func ParseResource(s string) (Resource, error) {
	switch s {
	case "expressions", "recordings":
		return Expressions, nil
	case "conversations", "history":
		return Conversations, nil
	case "logs", "audit", "audit-logs":
		return AuditLog, nil
	default:
		return 0, fmt.Errorf("unknown resource %q", s)
	}
}

// ForPanel returns the resource a panel displays
func ForPanel(p state.Panel) Resource {
	switch p {
	case state.PanelConversations:
		return Conversations
	case state.PanelLogs:
		return AuditLog
	default:
		return Expressions
	}
}

// Puller reads the server's collections
type Puller interface {
	Recordings(ctx context.Context) ([]string, error)
	Conversations(ctx context.Context, limit int) ([]messages.Conversation, error)
	AuditLogs(ctx context.Context, limit int) ([]messages.AuditLog, error)
}

// Coordinator issues pulls and writes their results into the view model
type Coordinator struct {
	vm     *state.ViewModel
	sink   sink.Sink
	puller Puller
	clock  clock.Clock

	interval          time.Duration
	conversationLimit int
	auditLogLimit     int
	discardStale      bool

	// OnSelect is handed to the sink with the expressions catalog
	OnSelect func(name string)

	mu      sync.Mutex
	ctx     context.Context
	issued  [numResources]uint64
	applied [numResources]uint64
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator using cfg's page sizes, interval
// and stale pull policy
func NewCoordinator(cfg *config.Config, vm *state.ViewModel, s sink.Sink, p Puller, clk clock.Clock) *Coordinator {
	return &Coordinator{
		vm:                vm,
		sink:              s,
		puller:            p,
		clock:             clk,
		interval:          cfg.RefreshInterval,
		conversationLimit: cfg.ConversationLimit,
		auditLogLimit:     cfg.AuditLogLimit,
		discardStale:      cfg.DiscardStalePulls,
		ctx:               context.Background(),
	}
}

// Start pulls every resource once and starts the polling loop. Polling
// runs until ctx is done, whatever the push channel is doing.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	for r := Resource(0); r < numResources; r++ {
		c.Trigger(r)
	}

	ticker := c.clock.NewTicker(c.interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Tick()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Tick re-pulls the visible panel's history. The expressions catalog is
// never polled.
func (c *Coordinator) Tick() {
	switch c.vm.Panel() {
	case state.PanelConversations:
		c.Trigger(Conversations)
	case state.PanelLogs:
		c.Trigger(AuditLog)
	}
}

// Trigger pulls r in the background. The request is numbered here, in
// trigger order, not when the goroutine gets to run.
func (c *Coordinator) Trigger(r Resource) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	seq := c.next(r)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pull(ctx, r, seq)
	}()
}

// Refresh is a manual, out of cycle pull
func (c *Coordinator) Refresh(r Resource) {
	c.Trigger(r)
}

// SetPanel switches the visible panel and pulls what it shows
func (c *Coordinator) SetPanel(p state.Panel) {
	c.vm.SetPanel(p)
	c.sink.RenderPanel(p)
	c.Trigger(ForPanel(p))
}

// Wait blocks until every background pull and the polling loop returned
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Pull fetches r and replaces its listing wholesale. A failure replaces it
// with a Failed listing, never with stale items.
func (c *Coordinator) Pull(ctx context.Context, r Resource) {
	c.pull(ctx, r, c.next(r))
}

func (c *Coordinator) pull(ctx context.Context, r Resource, seq uint64) {
	switch r {
	case Expressions:
		items, err := c.puller.Recordings(ctx)
		listing := toListing(items, err)
		c.apply(r, seq, err, func() {
			c.vm.SetExpressions(listing)
			c.sink.RenderExpressionsCatalog(listing, c.OnSelect)
		})
	case Conversations:
		items, err := c.puller.Conversations(ctx, c.conversationLimit)
		listing := toListing(items, err)
		c.apply(r, seq, err, func() {
			c.vm.SetConversations(listing)
			c.sink.RenderConversations(listing)
		})
	case AuditLog:
		items, err := c.puller.AuditLogs(ctx, c.auditLogLimit)
		listing := toListing(items, err)
		c.apply(r, seq, err, func() {
			c.vm.SetAuditLogs(listing)
			c.sink.RenderAuditLog(listing)
		})
	}
}

func toListing[T any](items []T, err error) state.Listing[T] {
	if err != nil {
		return state.Failed[T](err)
	}
	return state.Loaded(items)
}

func (c *Coordinator) next(r Resource) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[r]++
	return c.issued[r]
}

// apply runs write. With the stale guard on, a response is dropped when a
// later-issued pull of the same resource already landed; otherwise the last
// response to land wins.
func (c *Coordinator) apply(r Resource, seq uint64, err error, write func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discardStale && seq < c.applied[r] {
		log.Printf("⏭️ Dropping stale %s pull #%d (already applied #%d)", r, seq, c.applied[r])
		return
	}
	if err != nil {
		log.Printf("⚠️ Failed to load %s: %v", r, err)
	}
	c.applied[r] = seq
	write()
}
