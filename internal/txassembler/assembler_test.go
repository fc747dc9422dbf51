package txassembler

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

func twoHopCandidate(a0, minOut uint64) models.CycleCandidate {
	return models.CycleCandidate{
		StartAmt:  uint128.From64(a0),
		MinOutput: uint128.From64(minOut),
	}
}

func newCPMMPoolPair(t *testing.T, mintA, mintB, mintC solana.PublicKey) []pool.Pool {
	t.Helper()
	owner := solana.NewWallet().PublicKey()
	p1 := pool.NewCPMMPool("AB", mintA, mintB, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{Numerator: 30, Denominator: 10_000})
	p2 := pool.NewCPMMPool("BC", mintB, mintC, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		models.FeeFraction{Numerator: 30, Denominator: 10_000})
	// Load non-zero reserves: SwapInstruction only emits for a tradeable pool.
	for _, p := range []*pool.CPMMPool{p1, p2} {
		snapshot := make([][]byte, 2)
		for i, m := range p.Mints() {
			buf := make([]byte, 165)
			copy(buf[0:32], m[:])
			copy(buf[32:64], owner[:])
			binary.LittleEndian.PutUint64(buf[64:72], 1_000_000)
			snapshot[i] = buf
		}
		p.SetUpdateAccounts(snapshot)
	}
	return []pool.Pool{p1, p2}
}

func TestAssembleOrdersBeginSwapsCommit(t *testing.T) {
	mintA, mintB, mintC := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	pools := newCPMMPoolPair(t, mintA, mintB, mintC)
	owner := solana.NewWallet().PublicKey()
	programID := solana.NewWallet().PublicKey()

	a := New(nil, ClusterLocal, programID, owner)
	cand := twoHopCandidate(1_000_000, 990_000)

	instrs, err := a.Assemble(context.Background(), cand, pools, []solana.PublicKey{mintA, mintB, mintC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// begin + 2 swaps + commit = 4 instructions.
	if len(instrs) != 4 {
		t.Fatalf("expected 4 instructions (begin, 2 swaps, commit), got %d", len(instrs))
	}

	beginData, err := instrs[0].Data()
	if err != nil {
		t.Fatalf("begin instruction data: %v", err)
	}
	if beginData[0] != beginDiscriminant {
		t.Errorf("expected first instruction to carry the begin discriminant, got %d", beginData[0])
	}

	commitData, err := instrs[len(instrs)-1].Data()
	if err != nil {
		t.Fatalf("commit instruction data: %v", err)
	}
	if commitData[0] != commitDiscriminant {
		t.Errorf("expected last instruction to carry the commit discriminant, got %d", commitData[0])
	}
}

func TestAssembleRejectsMismatchedPoolAndMintPathLengths(t *testing.T) {
	mintA, mintB, mintC := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	pools := newCPMMPoolPair(t, mintA, mintB, mintC)
	owner := solana.NewWallet().PublicKey()
	programID := solana.NewWallet().PublicKey()

	a := New(nil, ClusterLocal, programID, owner)
	cand := twoHopCandidate(1_000_000, 990_000)

	// Only 2 mints supplied for a 2-pool path: needs 3.
	_, err := a.Assemble(context.Background(), cand, pools, []solana.PublicKey{mintA, mintB})
	if err == nil {
		t.Fatalf("expected an error for a mint path that doesn't align with the pool path")
	}
}

func TestBeginAndCommitInstructionDataRoundTrips(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	swapState := solana.NewWallet().PublicKey()
	programID := solana.NewWallet().PublicKey()

	begin := newBeginInstruction(programID, swapState, owner, uint128.From64(12345))
	data, err := begin.Data()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 1+8+8 {
		t.Fatalf("expected 17-byte begin payload, got %d", len(data))
	}

	commit := newCommitInstruction(programID, swapState, owner, uint128.From64(9999))
	data, err = commit.Data()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 1+8+8 {
		t.Fatalf("expected 17-byte commit payload, got %d", len(data))
	}
	if begin.ProgramID() != programID || commit.ProgramID() != programID {
		t.Errorf("expected both instructions to target the shared program id")
	}
}
