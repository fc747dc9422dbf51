// Package txassembler implements the transaction assembler: the
// begin -> swap x k -> commit instruction stream, signing, submission, and
// confirmation polling against a shared swap-state account.
package txassembler

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"lukechampine.com/uint128"

	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

// Cluster distinguishes the local-simulate-only policy from the live
// submit-and-confirm policy, selected by the `--cluster` flag.
type Cluster string

const (
	ClusterLocal Cluster = "local"
	ClusterMain  Cluster = "main"
)

const (
	beginDiscriminant  = uint8(0)
	commitDiscriminant = uint8(2)

	maxSendRetries      = 3
	confirmPollInterval = time.Second
	confirmPollTimeout  = 30 * time.Second
)

// Result describes the outcome of Assembler.Submit.
type Result struct {
	Signature solana.Signature
	Simulated bool
	Confirmed bool
	TimedOut  bool
}

// Assembler builds and submits the begin/swap/commit instruction stream for
// one cycle candidate.
type Assembler struct {
	rpcClient *rpc.Client
	cluster   Cluster
	programID solana.PublicKey
	owner     solana.PublicKey
}

func New(rpcClient *rpc.Client, cluster Cluster, programID, owner solana.PublicKey) *Assembler {
	return &Assembler{rpcClient: rpcClient, cluster: cluster, programID: programID, owner: owner}
}

// Assemble builds the ordered instruction stream for cand: begin(a0), one
// swap instruction per hop (emitted by that hop's own pool), then commit()
// which asserts final_balance >= min_output on-chain.
func (a *Assembler) Assemble(ctx context.Context, cand models.CycleCandidate, pools []pool.Pool, mints []solana.PublicKey) ([]solana.Instruction, error) {
	if len(pools) != len(mints)-1 {
		return nil, fmt.Errorf("txassembler: pool path length %d does not align with mint path length %d", len(pools), len(mints))
	}

	swapState, err := pool.SwapStatePDA(a.programID)
	if err != nil {
		return nil, fmt.Errorf("txassembler: derive swap state: %w", err)
	}

	instrs := []solana.Instruction{newBeginInstruction(a.programID, swapState, a.owner, cand.StartAmt)}

	for i, p := range pools {
		swapIxs, err := p.SwapInstruction(a.owner, mints[i], mints[i+1])
		if err != nil {
			return nil, fmt.Errorf("txassembler: pool %s: %w", p.Name(), err)
		}
		instrs = append(instrs, swapIxs...)
	}

	instrs = append(instrs, newCommitInstruction(a.programID, swapState, a.owner, cand.MinOutput))
	return instrs, nil
}

// Submit signs and submits the assembled transaction following the cluster
// policy: local clusters simulate only; live clusters submit with preflight
// skipped and up to 3 retries, then poll the signature status every second
// for up to 30 seconds.
func (a *Assembler) Submit(ctx context.Context, instrs []solana.Instruction, signer solana.PrivateKey) (Result, error) {
	recent, err := a.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return Result{}, fmt.Errorf("txassembler: get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instrs, recent.Value.Blockhash, solana.TransactionPayer(a.owner))
	if err != nil {
		return Result{}, fmt.Errorf("txassembler: build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	}); err != nil {
		return Result{}, fmt.Errorf("txassembler: sign transaction: %w", err)
	}

	if a.cluster == ClusterLocal {
		_, err := a.rpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			Commitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return Result{Simulated: true}, fmt.Errorf("txassembler: simulate: %w", err)
		}
		return Result{Simulated: true}, nil
	}

	var sig solana.Signature
	var sendErr error
	for attempt := 0; attempt < maxSendRetries; attempt++ {
		sig, sendErr = a.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{SkipPreflight: true})
		if sendErr == nil {
			break
		}
	}
	if sendErr != nil {
		return Result{}, fmt.Errorf("txassembler: send after %d attempts: %w", maxSendRetries, sendErr)
	}

	confirmed, timedOut := a.pollConfirmation(ctx, sig)
	return Result{Signature: sig, Confirmed: confirmed, TimedOut: timedOut}, nil
}

// pollConfirmation polls the signature status every second for up to 30
// seconds: a fixed poll loop, not generic exponential backoff.
func (a *Assembler) pollConfirmation(ctx context.Context, sig solana.Signature) (confirmed, timedOut bool) {
	deadline := time.Now().Add(confirmPollTimeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := a.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(statuses.Value) == 1 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return true, false
			}
		}
		if time.Now().After(deadline) {
			return false, true
		}
		select {
		case <-ctx.Done():
			return false, true
		case <-ticker.C:
		}
	}
}

// beginInstruction binds the reference input amount to the shared
// swap-state account, the first leg of the begin/swap/commit sequence.
type beginInstruction struct {
	programID solana.PublicKey
	accounts  solana.AccountMetaSlice
	amount    uint128.Uint128
}

func newBeginInstruction(programID, swapState, owner solana.PublicKey, amount uint128.Uint128) *beginInstruction {
	return &beginInstruction{
		programID: programID,
		amount:    amount,
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(swapState, true, false),
			solana.NewAccountMeta(owner, false, true),
		},
	}
}

func (i *beginInstruction) ProgramID() solana.PublicKey     { return i.programID }
func (i *beginInstruction) Accounts() []*solana.AccountMeta { return i.accounts }

func (i *beginInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(beginDiscriminant)
	lo, hi := splitUint128(i.amount)
	if err := binary.Write(buf, binary.LittleEndian, lo); err != nil {
		return nil, fmt.Errorf("begin instruction: encode amount lo: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, hi); err != nil {
		return nil, fmt.Errorf("begin instruction: encode amount hi: %w", err)
	}
	return buf.Bytes(), nil
}

// commitInstruction asserts final_balance >= min_output against the shared
// swap-state account and reverts the transaction otherwise.
type commitInstruction struct {
	programID solana.PublicKey
	accounts  solana.AccountMetaSlice
	minOutput uint128.Uint128
}

func newCommitInstruction(programID, swapState, owner solana.PublicKey, minOutput uint128.Uint128) *commitInstruction {
	return &commitInstruction{
		programID: programID,
		minOutput: minOutput,
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(swapState, true, false),
			solana.NewAccountMeta(owner, false, true),
		},
	}
}

func (i *commitInstruction) ProgramID() solana.PublicKey     { return i.programID }
func (i *commitInstruction) Accounts() []*solana.AccountMeta { return i.accounts }

func (i *commitInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(commitDiscriminant)
	lo, hi := splitUint128(i.minOutput)
	if err := binary.Write(buf, binary.LittleEndian, lo); err != nil {
		return nil, fmt.Errorf("commit instruction: encode min_output lo: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, hi); err != nil {
		return nil, fmt.Errorf("commit instruction: encode min_output hi: %w", err)
	}
	return buf.Bytes(), nil
}

func splitUint128(v uint128.Uint128) (lo, hi uint64) {
	return v.Lo, v.Hi
}
