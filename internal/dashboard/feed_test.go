package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/rawblock/arb-engine/pkg/models"
)

func TestRecordOnChainAppendsToRecentAndBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	f := NewFeed(hub)

	f.RecordOnChain(models.OnChainOpportunity{StartMint: "mintA", Kind: "onchain_cycle"})

	recent := f.Recent(10)
	if len(recent) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(recent))
	}
	var env envelope
	if err := json.Unmarshal(recent[0], &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	if env.Type != "opportunity_onchain" {
		t.Errorf("expected type opportunity_onchain, got %s", env.Type)
	}
}

func TestRecentCapsAtMaxRecent(t *testing.T) {
	f := NewFeed(nil)
	for i := 0; i < maxRecent+10; i++ {
		f.RecordRest(models.RestOpportunity{TokenSymbol: "SOL"})
	}
	if got := len(f.Recent(0)); got != maxRecent {
		t.Errorf("expected buffer capped at %d, got %d", maxRecent, got)
	}
}

func TestRecentRespectsRequestedLimit(t *testing.T) {
	f := NewFeed(nil)
	for i := 0; i < 5; i++ {
		f.RecordFailover(FailoverEvent{From: "a", To: "b"})
	}
	if got := len(f.Recent(2)); got != 2 {
		t.Errorf("expected 2 events, got %d", got)
	}
}
