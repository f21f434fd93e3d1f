package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/settings-management-service/internal/monitoring"
)

// EventSettingsUpdated announces a committed settings change.
const EventSettingsUpdated = "settings.updated"

// EventUserOffline announces that a user's last session disconnected.
const EventUserOffline = "user.offline"

// relayChannel is the pub/sub channel used to fan events out across
// instances.
const relayChannel = "settings:events"

// Event is a live-update notification. TenantID narrows delivery to that
// tenant's room, UserID to that user's sessions; both empty means platform
// wide. Delivery is at-most-once with no acknowledgment or replay.
type Event struct {
	Type         string    `json:"type"`
	SettingsType string    `json:"settings_type,omitempty"`
	Data         any       `json:"data,omitempty"`
	TenantID     string    `json:"tenant_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	At           time.Time `json:"at"`
}

// RelayClient is the subset of go-redis the cross-instance relay uses.
type RelayClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type subscriber struct {
	ch       chan Event
	userID   string
	tenantID string
}

// Hub fan-outs events to all subscribed sessions. With a relay configured,
// events travel through Redis pub/sub so subscribers on other instances
// receive them too.
type Hub struct {
	mu       sync.RWMutex
	subs     map[int]*subscriber
	next     int
	registry ConnectionRegistry

	relay  RelayClient
	cancel context.CancelFunc
}

// NewHub creates a Hub. relay may be nil, in which case delivery stays
// in-process.
func NewHub(registry ConnectionRegistry, relay RelayClient) *Hub {
	h := &Hub{
		subs:     make(map[int]*subscriber),
		registry: registry,
		relay:    relay,
	}
	if relay != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.relayLoop(ctx)
	}
	return h
}

// Close stops the relay loop if one is running.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Subscribe registers a session for the given identity and returns the event
// channel. The session joins the user room and, when tenantID is set, the
// tenant room. The channel closes when ctx ends; if it was the user's last
// session, a user.offline event is broadcast to the tenant room.
func (h *Hub) Subscribe(ctx context.Context, userID, tenantID string) <-chan Event {
	sub := &subscriber{
		ch:       make(chan Event, 16),
		userID:   userID,
		tenantID: tenantID,
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	connID := uuid.NewString()
	h.registry.Register(connID, userID, tenantID)
	monitoring.ActiveStreams.Inc()

	go func() {
		<-ctx.Done()

		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()

		monitoring.ActiveStreams.Dec()
		gone, tenant, wasLast := h.registry.Unregister(connID)
		if wasLast && tenant != "" {
			h.Publish(Event{
				Type:     EventUserOffline,
				Data:     map[string]any{"user_id": gone},
				TenantID: tenant,
				At:       time.Now().UTC(),
			})
		}
	}()

	return sub.ch
}

// Publish delivers evt to every matching session. With a relay configured the
// event goes through Redis so other instances see it as well; local delivery
// then happens in the relay loop.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	monitoring.BroadcastEvents.WithLabelValues(scopeLabel(evt)).Inc()

	if h.relay != nil {
		payload, err := json.Marshal(evt)
		if err != nil {
			log.Error().Err(err).Str("type", evt.Type).Msg("Failed to marshal broadcast event")
			return
		}
		if err := h.relay.Publish(context.Background(), relayChannel, payload).Err(); err != nil {
			// Best-effort: fall back to local delivery so at least this
			// instance's sessions are notified.
			log.Warn().Err(err).Str("type", evt.Type).Msg("Broadcast relay publish failed")
			h.deliver(evt)
		}
		return
	}

	h.deliver(evt)
}

// EmitSettingsUpdate pushes a committed settings change to live sessions,
// scoped to the tenant room when tenantID is set, otherwise platform wide.
func (h *Hub) EmitSettingsUpdate(settingsType string, data any, tenantID, userID string) {
	h.Publish(Event{
		Type:         EventSettingsUpdated,
		SettingsType: settingsType,
		Data:         data,
		TenantID:     tenantID,
		UserID:       userID,
		At:           time.Now().UTC(),
	})
}

// IsOnline reports whether the user has at least one live session.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

func (h *Hub) deliver(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !matches(sub, evt) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when the subscriber is slow; delivery is best-effort.
		}
	}
}

func (h *Hub) relayLoop(ctx context.Context) {
	pubsub := h.relay.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Warn().Err(err).Msg("Dropping malformed relayed event")
				continue
			}
			h.deliver(evt)
		}
	}
}

func matches(sub *subscriber, evt Event) bool {
	if evt.UserID != "" {
		return sub.userID == evt.UserID
	}
	if evt.TenantID != "" {
		return sub.tenantID == evt.TenantID
	}
	return true
}

func scopeLabel(evt Event) string {
	switch {
	case evt.UserID != "":
		return "user"
	case evt.TenantID != "":
		return "tenant"
	default:
		return "global"
	}
}
