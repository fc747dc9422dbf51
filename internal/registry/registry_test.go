package registry

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

func tokenAccountBytes(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := make([]byte, 165)
	copy(buf[0:32], mint[:])
	copy(buf[32:64], owner[:])
	binary.LittleEndian.PutUint64(buf[64:72], amount)
	return buf
}

func TestApplyRoutesToCorrectPool(t *testing.T) {
	r := New()
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	reserveA, reserveB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	p := pool.NewCPMMPool("p1", mintA, mintB, reserveA, reserveB,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{Numerator: 30, Denominator: 10_000})
	r.Register(p)

	accts := p.UpdateAccounts()
	r.Apply(accts[0], tokenAccountBytes(p.Mints()[0], p.Mints()[0], 500))
	r.Apply(accts[1], tokenAccountBytes(p.Mints()[1], p.Mints()[1], 700))

	if !p.CanTrade(p.Mints()[0], p.Mints()[1]) {
		t.Fatalf("expected pool to become tradeable after both accounts applied")
	}
}

func TestApplyDropsUnknownAddress(t *testing.T) {
	r := New()
	// No panic, no effect, for an address never registered.
	r.Apply(solana.NewWallet().PublicKey(), []byte{1, 2, 3})
}

func TestLookupInvariantMatchesUpdateAccounts(t *testing.T) {
	r := New()
	mintA, mintB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	p := pool.NewCPMMPool("p1", mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{})
	r.Register(p)

	for _, addr := range r.Addresses() {
		found, slot, ok := r.Lookup(addr)
		if !ok {
			t.Fatalf("expected %s to be routed", addr)
		}
		if found.UpdateAccounts()[slot] != addr {
			t.Errorf("routing invariant violated: update_accounts()[%d] = %s, want %s", slot, found.UpdateAccounts()[slot], addr)
		}
	}
}
