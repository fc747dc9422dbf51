package pool

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/pkg/models"
)

func tokenAccountBytes(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := make([]byte, 165)
	copy(buf[0:32], mint[:])
	copy(buf[32:64], owner[:])
	binary.LittleEndian.PutUint64(buf[64:72], amount)
	return buf
}

func twoMints() (solana.PublicKey, solana.PublicKey) {
	return solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
}

func TestCPMMPoolInactiveUntilBothReservesSet(t *testing.T) {
	mintA, mintB := twoMints()
	reserveA, reserveB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	p := NewCPMMPool("test", mintA, mintB, reserveA, reserveB,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{Numerator: 30, Denominator: 10_000})

	if p.CanTrade(mintA, mintB) {
		t.Errorf("expected CanTrade=false with no reserves loaded")
	}

	owner := solana.NewWallet().PublicKey()
	snapshot := [][]byte{
		tokenAccountBytes(p.Mints()[0], owner, 1_000_000),
		tokenAccountBytes(p.Mints()[1], owner, 1_000_000),
	}
	p.SetUpdateAccounts(snapshot)

	if !p.CanTrade(p.Mints()[0], p.Mints()[1]) {
		t.Fatalf("expected CanTrade=true after both reserves populated")
	}

	quote, ok := p.Quote(uint128.From64(1000), p.Mints()[0], p.Mints()[1])
	if !ok {
		t.Fatalf("expected quote ok=true")
	}
	if quote.IsZero() {
		t.Errorf("expected non-zero quote for a liquid pool")
	}
}

func TestCPMMPoolRejectsWrongLengthSnapshot(t *testing.T) {
	mintA, mintB := twoMints()
	p := NewCPMMPool("test", mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{})

	p.SetUpdateAccounts([][]byte{tokenAccountBytes(mintA, mintA, 5)})
	if p.CanTrade(p.Mints()[0], p.Mints()[1]) {
		t.Errorf("expected a one-element snapshot to be rejected wholesale")
	}
}

func TestCPMMPoolOneZeroReserveIsInactive(t *testing.T) {
	mintA, mintB := twoMints()
	p := NewCPMMPool("test", mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{})

	p.SetUpdateAccounts([][]byte{
		tokenAccountBytes(p.Mints()[0], p.Mints()[0], 0),
		tokenAccountBytes(p.Mints()[1], p.Mints()[1], 1000),
	})
	if p.CanTrade(p.Mints()[0], p.Mints()[1]) {
		t.Errorf("expected a zero reserve to make the pool inactive")
	}
	quote, ok := p.Quote(uint128.From64(10), p.Mints()[0], p.Mints()[1])
	if !ok || !quote.IsZero() {
		t.Errorf("expected zero quote for an inactive pool, got %s ok=%v", quote, ok)
	}
}

func TestStablePoolQuotesAfterReservesSet(t *testing.T) {
	mintA, mintB := twoMints()
	p := NewStablePool("stable-test", mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{Numerator: 4, Denominator: 10_000}, 100)

	p.SetUpdateAccounts([][]byte{
		tokenAccountBytes(p.Mints()[0], p.Mints()[0], 1_000_000),
		tokenAccountBytes(p.Mints()[1], p.Mints()[1], 1_000_000),
	})

	quote, ok := p.Quote(uint128.From64(10_000), p.Mints()[0], p.Mints()[1])
	if !ok {
		t.Fatalf("expected convergence")
	}
	if quote.IsZero() {
		t.Errorf("expected non-zero quote")
	}
}

func TestOrderBookPoolHasNoReserves(t *testing.T) {
	mintA, mintB := twoMints()
	p := NewOrderBookPool("serum-test", mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	_, _, ok := p.Reserves(p.Mints()[0], p.Mints()[1])
	if ok {
		t.Errorf("expected Reserves to report ok=false for an order-book venue")
	}
}
