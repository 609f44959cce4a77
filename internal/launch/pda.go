package launch

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// DeriveAmmConfigAddress derives the fee-tier config account for an index.
func DeriveAmmConfigAddress(index uint16) solana.PublicKey {
	seed := make([]byte, 2)
	binary.BigEndian.PutUint16(seed, index)
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(seedAmmConfig), seed}, ClmmProgramID)
	return pub
}

// DerivePoolAddress derives the pool state account. The program requires
// mint0 to sort byte-wise before mint1; callers must have verified ordering.
func DerivePoolAddress(ammConfig, mint0, mint1 solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{
		[]byte(seedPool),
		ammConfig.Bytes(),
		mint0.Bytes(),
		mint1.Bytes(),
	}, ClmmProgramID)
	return pub
}

// DerivePoolVaultAddress derives the vault holding one side of the pool.
func DerivePoolVaultAddress(pool, mint solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{
		[]byte(seedPoolVault),
		pool.Bytes(),
		mint.Bytes(),
	}, ClmmProgramID)
	return pub
}

// DeriveObservationAddress derives the pool's price observation account.
func DeriveObservationAddress(pool solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(seedObservation), pool.Bytes()}, ClmmProgramID)
	return pub
}

// DeriveBitmapExtensionAddress derives the tick array bitmap extension.
func DeriveBitmapExtensionAddress(pool solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(seedBitmap), pool.Bytes()}, ClmmProgramID)
	return pub
}

// DerivePositionAddress derives the position state for a position NFT mint.
func DerivePositionAddress(positionNFTMint solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(seedPosition), positionNFTMint.Bytes()}, ClmmProgramID)
	return pub
}

// DeriveTickArrayAddress derives the tick array covering startIndex.
func DeriveTickArrayAddress(pool solana.PublicKey, startIndex int32) solana.PublicKey {
	seed := make([]byte, 4)
	binary.BigEndian.PutUint32(seed, uint32(startIndex))
	pub, _, _ := solana.FindProgramAddress([][]byte{
		[]byte(seedTickArray),
		pool.Bytes(),
		seed,
	}, ClmmProgramID)
	return pub
}

// DeriveLockedPositionAddress derives the lock record for a position NFT.
func DeriveLockedPositionAddress(positionNFTMint solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(seedLockedPos), positionNFTMint.Bytes()}, LockingProgramID)
	return pub
}

// DeriveLockAuthority derives the authority the locking program uses to
// custody locked position NFTs.
func DeriveLockAuthority() solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(seedAuthority)}, LockingProgramID)
	return pub
}

// DeriveMetadataAddress derives the token metadata account for a mint.
func DeriveMetadataAddress(mint solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{
		[]byte("metadata"),
		MetadataProgramID.Bytes(),
		mint.Bytes(),
	}, MetadataProgramID)
	return pub
}

// TickArrayStartIndex returns the start index of the tick array containing
// tick, given the pool's tick spacing.
func TickArrayStartIndex(tick, tickSpacing int32) int32 {
	span := tickSpacing * TickArraySize
	idx := tick / span
	if tick%span != 0 && tick < 0 {
		idx--
	}
	return idx * span
}
