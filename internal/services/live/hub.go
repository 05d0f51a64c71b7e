// Package live fans planner and notification changes out to browser
// websockets. Subscriptions are keyed by user, so a connection only ever
// receives events published for its own user.
package live

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Channel names accepted from clients.
const (
	ChannelPlanner       = "planner"
	ChannelNotifications = "notifications"
	listChannelPrefix    = "list:"
	dayChannelPrefix     = "day:"
)

const maxChannelsPerConn = 32

var listIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidChannel reports whether a client may subscribe to name.
func ValidChannel(name string) bool {
	switch name {
	case ChannelPlanner, ChannelNotifications:
		return true
	}
	if id, ok := strings.CutPrefix(name, listChannelPrefix); ok {
		return listIDPattern.MatchString(id)
	}
	if date, ok := strings.CutPrefix(name, dayChannelPrefix); ok {
		_, err := time.Parse(time.DateOnly, date)
		return err == nil
	}
	return false
}

// Observer receives connection and delivery counts.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	EventDelivered(event string)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()     {}
func (nopObserver) ConnectionClosed()     {}
func (nopObserver) EventDelivered(string) {}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithObserver attaches connection metrics.
func WithObserver(observer Observer) HubOption {
	return func(h *Hub) {
		if observer != nil {
			h.observer = observer
		}
	}
}

// WithLogger overrides the hub logger.
func WithLogger(logger *log.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Hub tracks per-user channel subscriptions.
type Hub struct {
	mu       sync.RWMutex
	users    map[string]map[string]map[*peer]struct{}
	observer Observer
	logger   *log.Logger
}

// NewHub builds an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		users:    make(map[string]map[string]map[*peer]struct{}),
		observer: nopObserver{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventPayload is the payload of a live.event frame.
type EventPayload struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Publish queues event on every connection of userID subscribed to
// channel. Slow connections whose queue is full are disconnected.
func (h *Hub) Publish(userID, channel, event string, data any) {
	if h == nil || userID == "" || channel == "" {
		return
	}
	h.mu.RLock()
	peers := make([]*peer, 0, len(h.users[userID][channel]))
	for p := range h.users[userID][channel] {
		peers = append(peers, p)
	}
	h.mu.RUnlock()
	if len(peers) == 0 {
		return
	}

	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			h.logger.Printf("live: marshal %s event: %v", event, err)
			return
		}
		raw = encoded
	}
	frame := Frame{Type: FrameEvent, Payload: mustJSON(EventPayload{Channel: channel, Event: event, Data: raw})}
	for _, p := range peers {
		if p.enqueue(frame) {
			h.observer.EventDelivered(event)
			continue
		}
		h.logger.Printf("live: dropping slow connection user=%s channel=%s", userID, channel)
		p.close()
	}
}

// Subscribers counts the connections of userID subscribed to channel.
func (h *Hub) Subscribers(userID, channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID][channel])
}

func (h *Hub) subscribe(p *peer, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := p.channels[channel]; ok {
		return true
	}
	if len(p.channels) >= maxChannelsPerConn {
		return false
	}
	channels, ok := h.users[p.userID]
	if !ok {
		channels = make(map[string]map[*peer]struct{})
		h.users[p.userID] = channels
	}
	peers, ok := channels[channel]
	if !ok {
		peers = make(map[*peer]struct{})
		channels[channel] = peers
	}
	peers[p] = struct{}{}
	p.channels[channel] = struct{}{}
	return true
}

func (h *Hub) unsubscribe(p *peer, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(p, channel)
}

func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel := range p.channels {
		h.removeLocked(p, channel)
	}
}

func (h *Hub) removeLocked(p *peer, channel string) {
	delete(p.channels, channel)
	channels := h.users[p.userID]
	peers := channels[channel]
	delete(peers, p)
	if len(peers) == 0 {
		delete(channels, channel)
	}
	if len(channels) == 0 {
		delete(h.users, p.userID)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("live: marshal frame payload: %v", err)
		return nil
	}
	return b
}
