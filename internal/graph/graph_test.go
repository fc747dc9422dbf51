package graph

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

func newTestPool(t *testing.T, name string, mintA, mintB solana.PublicKey) pool.Pool {
	t.Helper()
	return pool.NewCPMMPool(name, mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{Numerator: 30, Denominator: 10_000})
}

func TestAddPoolCreatesBothDirectedEdges(t *testing.T) {
	g := New()
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	p := newTestPool(t, "p1", mintA, mintB)
	g.AddPool(p)

	u, _ := g.MintIndex(mintA)
	v, _ := g.MintIndex(mintB)

	if len(g.Quotes(u, v)) != 1 || len(g.Quotes(v, u)) != 1 {
		t.Fatalf("expected both directed edges populated once each")
	}
	if g.Quotes(u, v)[0] != p || g.Quotes(v, u)[0] != p {
		t.Errorf("expected the same pool handle shared across both directions")
	}
}

func TestAddPoolMultigraphPreservesLoadOrder(t *testing.T) {
	g := New()
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	p1 := newTestPool(t, "p1", mintA, mintB)
	p2 := newTestPool(t, "p2", mintA, mintB)
	g.AddPool(p1)
	g.AddPool(p2)

	u, _ := g.MintIndex(mintA)
	v, _ := g.MintIndex(mintB)
	edges := g.Quotes(u, v)
	if len(edges) != 2 || edges[0] != p1 || edges[1] != p2 {
		t.Errorf("expected load order [p1, p2], got %v", edges)
	}
}

func TestNeighborsUndirectedAndDeduped(t *testing.T) {
	g := New()
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	g.AddPool(newTestPool(t, "p1", mintA, mintB))
	g.AddPool(newTestPool(t, "p2", mintA, mintB))

	u, _ := g.MintIndex(mintA)
	neighbors := g.Neighbors(u)
	if len(neighbors) != 1 {
		t.Errorf("expected a single deduped neighbor entry for a double-pooled edge, got %d", len(neighbors))
	}
}

func TestMintIndexAssignmentIsFrozen(t *testing.T) {
	g := New()
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	g.AddPool(newTestPool(t, "p1", mintA, mintB))

	first, _ := g.MintIndex(mintA)
	g.AddPool(newTestPool(t, "p2", mintA, mintB))
	second, _ := g.MintIndex(mintA)
	if first != second {
		t.Errorf("expected mint index to stay frozen across further AddPool calls")
	}
}
