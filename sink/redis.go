package sink

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/state"
)

const (
	redisQueueSize    = 64
	redisWriteTimeout = 2 * time.Second
	redisSnapshotTTL  = time.Hour
)

// RenderEvent is what the Redis sink publishes for every render call
type RenderEvent struct {
	Kind    string    `json:"kind"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Redis mirrors render calls onto a Redis channel and keeps the latest
// value per kind in a hash so late subscribers can catch up
type Redis struct {
	client  *redis.Client
	channel string
	now     func() time.Time

	queue     chan RenderEvent
	mu        sync.RWMutex
	closed    bool
	closeChan chan struct{}
	done      chan struct{}
}

// NewRedis connects to addr and starts the publisher. It fails when Redis
// does not answer a PING, callers are expected to carry on without it.
func NewRedis(ctx context.Context, addr, password, channel string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	r := &Redis{
		client:    client,
		channel:   channel,
		now:       time.Now,
		queue:     make(chan RenderEvent, redisQueueSize),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go r.publishPump()
	return r, nil
}

// SnapshotKey is the hash holding the latest payload per render kind
func (r *Redis) SnapshotKey() string {
	return r.channel + ":snapshot"
}

func (r *Redis) RenderConnection(connected bool) {
	r.enqueue("connection", map[string]bool{"connected": connected})
}

func (r *Redis) RenderHardwareBadge(hardware bool) {
	r.enqueue("hardware", map[string]bool{"hardware": hardware})
}

func (r *Redis) RenderSession(info state.SessionInfo) {
	r.enqueue("session", map[string]any{"session_id": info.SessionID, "hardware": info.HardwarePresent})
}

func (r *Redis) RenderColor(c state.Color) {
	r.enqueue("color", []int{c.R, c.G, c.B})
}

func (r *Redis) RenderPanel(p state.Panel) {
	r.enqueue("panel", p.String())
}

func (r *Redis) RenderExpressionsCatalog(l state.Listing[string], _ func(name string)) {
	r.enqueue("expressions", listingPayload(l, ExpressionsPlaceholder(l)))
}

func (r *Redis) RenderExpressionPlaying(name string, playing bool) {
	r.enqueue("playing", map[string]any{"name": name, "playing": playing})
}

func (r *Redis) RenderConversations(l state.Listing[messages.Conversation]) {
	r.enqueue("conversations", listingPayload(l, ConversationsPlaceholder(l)))
}

func (r *Redis) RenderAuditLog(l state.Listing[messages.AuditLog]) {
	r.enqueue("audit_logs", listingPayload(l, AuditLogPlaceholder(l)))
}

func (r *Redis) RenderLastConversation(user, ai string) {
	r.enqueue("last_conversation", map[string]string{"user_input": user, "ai_response": ai})
}

func listingPayload[T any](l state.Listing[T], placeholder string) map[string]any {
	payload := map[string]any{"status": l.Status.String()}
	if placeholder != "" {
		payload["placeholder"] = placeholder
	} else {
		payload["items"] = l.Items
	}
	return payload
}

// enqueue never blocks the caller; events are dropped when Redis falls behind
func (r *Redis) enqueue(kind string, payload any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- RenderEvent{Kind: kind, Payload: payload, At: r.now()}:
	default:
		log.Printf("⚠️ Redis sink queue full, dropping %s", kind)
	}
}

func (r *Redis) publishPump() {
	defer close(r.done)
	for {
		select {
		case ev := <-r.queue:
			r.publish(ev)
		case <-r.closeChan:
			return
		}
	}
}

func (r *Redis) publish(ev RenderEvent) {
	data, err := messages.Marshal(ev)
	if err != nil {
		log.Printf("❌ Redis sink encode %s: %v", ev.Kind, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisWriteTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Publish(ctx, r.channel, data)
	pipe.HSet(ctx, r.SnapshotKey(), ev.Kind, data)
	pipe.Expire(ctx, r.SnapshotKey(), redisSnapshotTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("❌ Redis sink publish %s: %v", ev.Kind, err)
	}
}

// Close stops the publisher and closes the Redis client
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closeChan)
	r.mu.Unlock()

	<-r.done
	return r.client.Close()
}
