// Package reconcile owns every write to the view model that comes from a
// user intent or a push frame. Local edits are applied optimistically;
// push frames always overwrite them.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/sink"
	"github.com/room4-2/lelamp-dashboard/state"
)

// Commander issues the dashboard's commands to the lamp server
type Commander interface {
	SetSolidColor(ctx context.Context, r, g, b int) error
	PlayRecording(ctx context.Context, name string) error
	Chat(ctx context.Context, message string) (messages.ChatResponse, error)
}

// Presets are the one-click colors of the dashboard
var Presets = map[string]state.Color{
	"red":    {R: 255, G: 0, B: 0},
	"green":  {R: 0, G: 255, B: 0},
	"blue":   {R: 0, G: 0, B: 255},
	"white":  state.White,
	"warm":   {R: 255, G: 180, B: 100},
	"purple": {R: 128, G: 0, B: 255},
	"off":    {R: 0, G: 0, B: 0},
}

// Reconciler applies intents and push events to the view model
type Reconciler struct {
	vm              *state.ViewModel
	sink            sink.Sink
	cmd             Commander
	clock           clock.Clock
	playingDuration time.Duration

	// OnConversation is called after a chat reply was recorded, the
	// conversation history is stale at that point
	OnConversation func()

	// colorMu keeps the rendered color equal to the stored one when a
	// push frame and a local edit race
	colorMu sync.Mutex

	playMu  sync.Mutex
	playing map[string]*clock.Timer
}

// New creates a reconciler writing to vm and rendering to s
func New(vm *state.ViewModel, s sink.Sink, cmd Commander, clk clock.Clock, playingDuration time.Duration) *Reconciler {
	return &Reconciler{
		vm:              vm,
		sink:            s,
		cmd:             cmd,
		clock:           clk,
		playingDuration: playingDuration,
		playing:         make(map[string]*clock.Timer),
	}
}

// ApplyLocalColorEdit sets one channel, clamped, and renders it right away.
// Nothing is sent to the server until CommitColor.
func (r *Reconciler) ApplyLocalColorEdit(ch state.Channel, value int) state.Color {
	r.colorMu.Lock()
	defer r.colorMu.Unlock()

	c := r.vm.UpdateColor(func(c state.Color) state.Color { return c.With(ch, value) })
	r.sink.RenderColor(c)
	return c
}

// SetLocalColor replaces all three channels, clamped, without committing
func (r *Reconciler) SetLocalColor(c state.Color) state.Color {
	r.colorMu.Lock()
	defer r.colorMu.Unlock()

	c = r.vm.SetColor(c)
	r.sink.RenderColor(c)
	return c
}

// CommitColor sends the current color to the lamp. Failures are logged and
// otherwise ignored; the optimistic color stays until a push replaces it.
func (r *Reconciler) CommitColor(ctx context.Context) {
	c := r.vm.Color()
	if err := r.cmd.SetSolidColor(ctx, c.R, c.G, c.B); err != nil {
		log.Printf("⚠️ Failed to set color %s: %v", c, err)
	}
}

// ApplyPreset sets a preset color and commits it
func (r *Reconciler) ApplyPreset(ctx context.Context, c state.Color) {
	r.SetLocalColor(c)
	r.CommitColor(ctx)
}

// ApplyPresetByName looks up one of Presets
func (r *Reconciler) ApplyPresetByName(ctx context.Context, name string) error {
	c, ok := Presets[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	r.ApplyPreset(ctx, c)
	return nil
}

// ApplyPushColor overwrites the color with the device's, whatever local
// edit may be in progress
func (r *Reconciler) ApplyPushColor(rgb messages.RGB) {
	r.colorMu.Lock()
	defer r.colorMu.Unlock()

	c := r.vm.SetColor(state.ColorFromRGB(rgb))
	r.sink.RenderColor(c)
}

// ApplySession handles the init frame of a fresh connection
func (r *Reconciler) ApplySession(ev messages.InitEvent) {
	info := state.SessionInfo{SessionID: ev.SessionID, HardwarePresent: ev.Hardware}
	r.vm.SetSession(info)
	r.sink.RenderSession(info)
	r.sink.RenderHardwareBadge(info.HardwarePresent)

	if ev.Color != nil {
		r.ApplyPushColor(*ev.Color)
	}
}

// RecordConversation replaces the last conversation slot
func (r *Reconciler) RecordConversation(user, ai string) {
	r.vm.SetLastConversation(state.Exchange{UserInput: user, AIResponse: ai})
	r.sink.RenderLastConversation(user, ai)
}

// PlayExpression marks name as playing, asks the lamp to play it and clears
// the mark after the playing duration. Playing the same expression again
// restarts the duration.
func (r *Reconciler) PlayExpression(ctx context.Context, name string) {
	r.setPlaying(name)

	if err := r.cmd.PlayRecording(ctx, name); err != nil {
		log.Printf("⚠️ Failed to play %s: %v", name, err)
	}
}

func (r *Reconciler) setPlaying(name string) {
	r.playMu.Lock()
	defer r.playMu.Unlock()

	if prev, ok := r.playing[name]; ok {
		prev.Stop()
	}

	r.vm.SetPlaying(name, true)
	r.sink.RenderExpressionPlaying(name, true)

	var timer *clock.Timer
	timer = r.clock.AfterFunc(r.playingDuration, func() {
		r.playMu.Lock()
		defer r.playMu.Unlock()
		if r.playing[name] != timer {
			return
		}
		delete(r.playing, name)
		r.vm.SetPlaying(name, false)
		r.sink.RenderExpressionPlaying(name, false)
	})
	r.playing[name] = timer
}

// SendChat posts a text message. Blank input is ignored. A reply carrying
// both sides of the exchange becomes the last conversation.
func (r *Reconciler) SendChat(ctx context.Context, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}

	resp, err := r.cmd.Chat(ctx, message)
	if err != nil {
		log.Printf("⚠️ Chat failed: %v", err)
		return
	}
	if resp.UserInput == "" || resp.AIResponse == "" {
		return
	}

	r.RecordConversation(resp.UserInput, resp.AIResponse)
	if r.OnConversation != nil {
		r.OnConversation()
	}
}
