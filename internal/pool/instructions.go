package pool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// swapInstructionDiscriminant is the on-chain opcode for the per-DEX Swap{}
// instruction.
const swapInstructionDiscriminant = uint8(1)

// SwapStatePDA derives the shared swap-state account the assembler's
// begin/swap/commit sequence threads through every instruction in the
// transaction.
func SwapStatePDA(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("swap_state")}, programID)
	return addr, err
}

// swapInstruction is a generic per-DEX Swap{} instruction. Every pool
// variant's SwapInstruction builds one of these bound to its own account
// layout: token-swap program, authority PDA, user src/dst, pool src/dst,
// pool mint (if any), fee account (if any), token program, DEX program, and
// the shared swap-state account. Grounded on the InSwapInstruction pattern
// in other_examples/SolRoute's Raydium pool (bin.BaseVariant +
// AccountMetaSlice + MarshalWithEncoder).
type swapInstruction struct {
	bin.BaseVariant
	dexProgram solana.PublicKey
	accounts   solana.AccountMetaSlice
}

func newSwapInstruction(dexProgram, poolAddress, authority, owner, userSrc, userDst solana.PublicKey) *swapInstruction {
	inst := &swapInstruction{
		dexProgram: dexProgram,
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(poolAddress, true, false),
			solana.NewAccountMeta(authority, false, false),
			solana.NewAccountMeta(userSrc, true, false),
			solana.NewAccountMeta(userDst, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
			solana.NewAccountMeta(owner, false, true),
		},
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}

func (s *swapInstruction) ProgramID() solana.PublicKey { return s.dexProgram }

func (s *swapInstruction) Accounts() []*solana.AccountMeta { return s.accounts }

func (s *swapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(s); err != nil {
		return nil, fmt.Errorf("swap instruction: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *swapInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint8(swapInstructionDiscriminant)
}
