// Package accountcodec decodes the wire format of SPL token accounts.
// The layout is a fixed 165-byte struct:
//
//	offset  size  field
//	0       32    mint
//	32      32    owner
//	64      8     amount (u64 LE)
//	72      36    delegate (COption<Pubkey>)
//	108     1     state
//	109     12    is_native (COption<u64>)
//	121     8     delegated_amount (u64 LE)
//	129     36    close_authority (COption<Pubkey>)
//
// Only mint/owner/amount are surfaced; the quote kernels and registry never
// need the rest.
package accountcodec

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/rawblock/arb-engine/pkg/models"
)

const TokenAccountSize = 165

const (
	mintOffset   = 0
	ownerOffset  = 32
	amountOffset = 64
)

// DecodeTokenAccount decodes a raw account payload into a TokenAccount.
// It never panics: any size mismatch yields IsValid=false rather than an
// index-out-of-range panic, so a malformed or unexpected account never
// takes down the caller's update loop.
func DecodeTokenAccount(data []byte) models.TokenAccount {
	if len(data) != TokenAccountSize {
		return models.TokenAccount{IsValid: false}
	}

	var mint, owner solana.PublicKey
	copy(mint[:], data[mintOffset:mintOffset+32])
	copy(owner[:], data[ownerOffset:ownerOffset+32])
	amount := binary.LittleEndian.Uint64(data[amountOffset : amountOffset+8])

	return models.TokenAccount{
		Mint:    mint,
		Owner:   owner,
		Amount:  amount,
		IsValid: true,
	}
}
