// Package dashboard wires the connection manager, the reconciler and the
// refresh coordinator around one view model, and routes push events
// through a single typed handler.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/room4-2/lelamp-dashboard/api"
	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/config"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/reconcile"
	"github.com/room4-2/lelamp-dashboard/refresh"
	"github.com/room4-2/lelamp-dashboard/session"
	"github.com/room4-2/lelamp-dashboard/sink"
	"github.com/room4-2/lelamp-dashboard/state"
)

// Dashboard is a running LeLamp dashboard
type Dashboard struct {
	ViewModel   *state.ViewModel
	Manager     *session.Manager
	Reconciler  *reconcile.Reconciler
	Coordinator *refresh.Coordinator

	sink sink.Sink

	mu  sync.RWMutex
	ctx context.Context
}

// New builds a dashboard for cfg that renders into s
func New(cfg *config.Config, s sink.Sink, clk clock.Clock) (*Dashboard, error) {
	panel, err := state.ParsePanel(cfg.InitialPanel)
	if err != nil {
		return nil, fmt.Errorf("initial panel: %w", err)
	}

	vm := state.NewViewModel(panel)
	client := api.NewClient(cfg.Origin, cfg.RequestTimeout)

	d := &Dashboard{
		ViewModel:   vm,
		Manager:     session.NewManager(cfg, clk),
		Reconciler:  reconcile.New(vm, s, client, clk, cfg.PlayingDuration),
		Coordinator: refresh.NewCoordinator(cfg, vm, s, client, clk),
		sink:        s,
		ctx:         context.Background(),
	}

	d.Manager.OnEvent = d.HandleEvent
	d.Manager.OnConnectionChange = d.handleConnectionChange
	d.Reconciler.OnConversation = func() { d.Coordinator.Trigger(refresh.Conversations) }
	d.Coordinator.OnSelect = func(name string) { d.Reconciler.PlayExpression(d.context(), name) }

	return d, nil
}

// Start renders the initial state, then opens the push channel and starts
// polling. Both stop when ctx is done.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	snap := d.ViewModel.Snapshot()
	d.sink.RenderConnection(false)
	d.sink.RenderSession(snap.Session)
	d.sink.RenderColor(snap.Color)
	d.sink.RenderPanel(snap.Panel)

	d.Coordinator.Start(ctx)
	d.Manager.Start(ctx)
}

// Shutdown closes the push channel and waits for outstanding pulls
func (d *Dashboard) Shutdown() {
	d.Manager.Shutdown()
	d.Coordinator.Wait()
}

// HandleEvent is the one place push events enter the view model
func (d *Dashboard) HandleEvent(ev messages.Event) {
	switch e := ev.(type) {
	case messages.InitEvent:
		log.Printf("📝 Session %s (hardware: %v)", e.SessionID, e.Hardware)
		d.Reconciler.ApplySession(e)
	case messages.RGBEvent:
		d.Reconciler.ApplyPushColor(e.Color)
	case messages.NewConversationEvent:
		d.Reconciler.RecordConversation(e.UserInput, e.AIResponse)
		d.Coordinator.Trigger(refresh.Conversations)
	default:
		log.Printf("⚠️ Unhandled event %s", ev.Kind())
	}
}

func (d *Dashboard) handleConnectionChange(connected bool) {
	d.sink.RenderConnection(connected)
}

func (d *Dashboard) context() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ctx
}
