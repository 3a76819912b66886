// Package fanout delivers order and menu events to live subscriber groups.
package fanout

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"mesa/internal/metrics"
)

// GroupKitchen receives every order event.
const GroupKitchen = "kitchen"

const tableGroupPrefix = "table:"

// Event names.
const (
	EventOrderNew       = "order:new"
	EventOrderConfirmed = "order:confirmed"
	EventOrderStatus    = "order:status"
	EventOrderUpdated   = "order:updated"
	EventProductUpdated = "product:updated"
	EventProductDeleted = "product:deleted"
	EventDataImported   = "data:imported"
	EventJoined         = "joined"
	EventError          = "error"
)

// TableGroup returns the group name for a table's customer sessions.
func TableGroup(code string) string {
	return tableGroupPrefix + strings.ToUpper(code)
}

// Subscriber is a live connection. Send must not block; it reports whether
// the message was queued.
type Subscriber interface {
	ID() string
	Send(msg []byte) bool
}

// Envelope is the wire form of every event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub tracks group membership. Publishing happens under the hub lock, which
// is the single dispatch point that keeps per-group delivery order.
type Hub struct {
	mu      sync.Mutex
	conns   map[string]Subscriber
	groups  map[string]map[string]Subscriber
	members map[string]map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:   make(map[string]Subscriber),
		groups:  make(map[string]map[string]Subscriber),
		members: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection that receives broadcasts.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.register(sub)
}

func (h *Hub) register(sub Subscriber) {
	if _, ok := h.conns[sub.ID()]; ok {
		return
	}
	h.conns[sub.ID()] = sub
	h.members[sub.ID()] = make(map[string]struct{})
	metrics.RealtimeConnections.Inc()
}

// JoinKitchen adds sub to the kitchen group.
func (h *Hub) JoinKitchen(sub Subscriber) {
	h.Join(sub, GroupKitchen)
}

// JoinTable adds sub to the group of table code.
func (h *Hub) JoinTable(sub Subscriber, code string) {
	h.Join(sub, TableGroup(code))
}

// Join adds sub to group. Joining twice is a no-op.
func (h *Hub) Join(sub Subscriber, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.register(sub)
	g, ok := h.groups[group]
	if !ok {
		g = make(map[string]Subscriber)
		h.groups[group] = g
	}
	g[sub.ID()] = sub
	h.members[sub.ID()][group] = struct{}{}

	log.Debug().Str("conn_id", sub.ID()).Str("group", group).Msg("Subscriber joined group")
}

// Leave removes sub from every group and from broadcasts.
func (h *Hub) Leave(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	groups, ok := h.members[sub.ID()]
	if !ok {
		return
	}
	for group := range groups {
		if g := h.groups[group]; g != nil {
			delete(g, sub.ID())
			if len(g) == 0 {
				delete(h.groups, group)
			}
		}
	}
	delete(h.members, sub.ID())
	delete(h.conns, sub.ID())
	metrics.RealtimeConnections.Dec()
}

// Publish sends event to the current members of group and returns how many
// accepted it. Subscribers with a full buffer miss the event.
func (h *Hub) Publish(group, event string, payload any) int {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deliver(h.groups[group], event, msg)
}

// Broadcast sends event to every registered connection.
func (h *Hub) Broadcast(event string, payload any) int {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deliver(h.conns, event, msg)
}

func (h *Hub) deliver(subs map[string]Subscriber, event string, msg []byte) int {
	metrics.RealtimeEventsTotal.WithLabelValues(event).Inc()

	delivered := 0
	for _, sub := range subs {
		if sub.Send(msg) {
			delivered++
			continue
		}
		metrics.RealtimeDroppedTotal.WithLabelValues(event).Inc()
		log.Warn().Str("conn_id", sub.ID()).Str("event", event).Msg("Subscriber buffer full, dropping event")
	}
	return delivered
}

// Members returns the number of subscribers in group.
func (h *Hub) Members(group string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[group])
}

// Groups returns the sorted groups sub belongs to.
func (h *Hub) Groups(sub Subscriber) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	groups := make([]string, 0, len(h.members[sub.ID()]))
	for g := range h.members[sub.ID()] {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
