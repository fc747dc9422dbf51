package dashboard

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rawblock/arb-engine/pkg/models"
)

// maxRecent bounds the in-memory fallback history used when no Postgres
// store is configured, so GET /api/v1/opportunities still returns
// something useful when persistence is unavailable.
const maxRecent = 200

// Feed is the single point every producer (the arbitrage searcher, the
// REST poller, the subscription manager's provider-failover events) calls
// to fan an event out to the dashboard: it appends to a bounded in-memory
// history and broadcasts the same payload over the websocket hub.
type Feed struct {
	hub *Hub

	mu     sync.Mutex
	recent []json.RawMessage
}

func NewFeed(hub *Hub) *Feed {
	return &Feed{hub: hub}
}

type envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// emit wraps v in an envelope carrying a fresh event id, so a dashboard
// client reconnecting mid-stream can de-duplicate against the fallback
// history returned by GET /api/v1/opportunities.
func (f *Feed) emit(eventType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Dashboard] failed to marshal %s event: %v", eventType, err)
		return
	}
	payload, err := json.Marshal(envelope{ID: uuid.NewString(), Type: eventType, Data: data})
	if err != nil {
		log.Printf("[Dashboard] failed to marshal %s envelope: %v", eventType, err)
		return
	}

	f.mu.Lock()
	f.recent = append(f.recent, payload)
	if len(f.recent) > maxRecent {
		f.recent = f.recent[len(f.recent)-maxRecent:]
	}
	f.mu.Unlock()

	if f.hub != nil {
		f.hub.Broadcast(payload)
	}
}

// RecordOnChain fans out one on-chain cycle opportunity.
func (f *Feed) RecordOnChain(o models.OnChainOpportunity) {
	f.emit("opportunity_onchain", o)
}

// RecordRest fans out one cross-DEX REST spread opportunity.
func (f *Feed) RecordRest(o models.RestOpportunity) {
	f.emit("opportunity_rest", o)
}

// FailoverEvent describes a subscription-provider switch, broadcast to the
// dashboard so operators see a reconnect happen without tailing logs.
type FailoverEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

func (f *Feed) RecordFailover(ev FailoverEvent) {
	f.emit("provider_failover", ev)
}

// Recent returns the most recent (oldest-first) buffered events, used by
// GET /api/v1/opportunities when no Postgres store is configured.
func (f *Feed) Recent(limit int) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.recent) {
		limit = len(f.recent)
	}
	out := make([]json.RawMessage, limit)
	copy(out, f.recent[len(f.recent)-limit:])
	return out
}
