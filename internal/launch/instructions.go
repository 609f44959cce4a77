package launch

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Little-endian fixed-width encoding helpers. Instruction data is a
// discriminator followed by packed arguments in program-defined order.

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func le128(v *big.Int) ([]byte, error) {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return nil, fmt.Errorf("value does not fit in u128: %s", v)
	}
	b := make([]byte, 16)
	uint128.FromBig(v).PutBytes(b)
	return b, nil
}

// borshString is a u32 length prefix followed by raw bytes.
func borshString(s string) []byte {
	out := le32(uint32(len(s)))
	return append(out, s...)
}

// cOptionKey is the token program's 1-byte-tagged optional public key.
func cOptionKey(key *solana.PublicKey) []byte {
	if key == nil {
		return []byte{0}
	}
	return append([]byte{1}, key.Bytes()...)
}

// buildInitializeTransferFeeConfigInstruction configures the transfer tax
// extension on the mint before the mint itself is initialized. The program
// rejects the extension afterwards, so ordering inside the mint transaction
// is load-bearing.
func buildInitializeTransferFeeConfigInstruction(mint, authority solana.PublicKey, feeBps uint16, maxFee uint64) solana.Instruction {
	data := []byte{tokenIxTransferFeeExtension, transferFeeIxInitializeConfig}
	data = append(data, cOptionKey(&authority)...)
	data = append(data, cOptionKey(&authority)...)
	data = append(data, le16(feeBps)...)
	data = append(data, le64(maxFee)...)

	return solana.NewInstruction(solana.Token2022ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, data)
}

func buildInitializeMint2Instruction(mint, mintAuthority solana.PublicKey, decimals uint8, tokenProgram solana.PublicKey) solana.Instruction {
	data := []byte{tokenIxInitializeMint2, decimals}
	data = append(data, mintAuthority.Bytes()...)
	data = append(data, cOptionKey(nil)...) // no freeze authority

	return solana.NewInstruction(tokenProgram, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, data)
}

func buildMintToInstruction(mint, dest, authority solana.PublicKey, amount uint64, tokenProgram solana.PublicKey) solana.Instruction {
	data := append([]byte{tokenIxMintTo}, le64(amount)...)

	return solana.NewInstruction(tokenProgram, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
		{PublicKey: dest, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
	}, data)
}

func buildSyncNativeInstruction(account solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
	}, []byte{tokenIxSyncNative})
}

func buildCloseAccountInstruction(account, dest, owner solana.PublicKey, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(tokenProgram, []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: dest, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}, []byte{tokenIxCloseAccount})
}

func buildCreateATAIdempotentInstruction(payer, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgram, IsSigner: false, IsWritable: false},
	}, []byte{1}) // create idempotent
}

// buildCreateMetadataInstruction writes the off-chain metadata pointer for
// the launched mint (CreateMetadataAccountV3 layout).
func buildCreateMetadataInstruction(mint, mintAuthority, payer solana.PublicKey, name, symbol, uri string) solana.Instruction {
	metadata := DeriveMetadataAddress(mint)

	data := []byte{33} // CreateMetadataAccountV3
	data = append(data, borshString(name)...)
	data = append(data, borshString(symbol)...)
	data = append(data, borshString(uri)...)
	data = append(data, le16(0)...)          // seller fee bps
	data = append(data, 0, 0, 0)             // no creators, collection, uses
	data = append(data, 1)                   // is mutable
	data = append(data, 0)                   // no collection details

	return solana.NewInstruction(MetadataProgramID, []*solana.AccountMeta{
		{PublicKey: metadata, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: mintAuthority, IsSigner: true, IsWritable: false},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: mintAuthority, IsSigner: true, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}, data)
}

// buildCreatePoolInstruction initializes the pool state at the derived
// addresses with the launch sqrt price.
func buildCreatePoolInstruction(
	creator, ammConfig, pool solana.PublicKey,
	mint0, mint1, vault0, vault1 solana.PublicKey,
	tokenProgram0, tokenProgram1 solana.PublicKey,
	sqrtPriceX64 *big.Int,
	openTime uint64,
) (solana.Instruction, error) {
	sqrtBytes, err := le128(sqrtPriceX64)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+16+8)
	data = append(data, createPoolDiscriminator...)
	data = append(data, sqrtBytes...)
	data = append(data, le64(openTime)...)

	accounts := []*solana.AccountMeta{
		{PublicKey: creator, IsSigner: true, IsWritable: true},
		{PublicKey: ammConfig, IsSigner: false, IsWritable: false},
		{PublicKey: pool, IsSigner: false, IsWritable: true},
		{PublicKey: mint0, IsSigner: false, IsWritable: false},
		{PublicKey: mint1, IsSigner: false, IsWritable: false},
		{PublicKey: vault0, IsSigner: false, IsWritable: true},
		{PublicKey: vault1, IsSigner: false, IsWritable: true},
		{PublicKey: DeriveObservationAddress(pool), IsSigner: false, IsWritable: true},
		{PublicKey: DeriveBitmapExtensionAddress(pool), IsSigner: false, IsWritable: true},
		{PublicKey: tokenProgram0, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgram1, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ClmmProgramID, accounts, data), nil
}

// buildOpenPositionInstruction opens the full-range-seeding position. The
// position NFT mint is a fresh keypair and must co-sign the transaction.
func buildOpenPositionInstruction(
	payer, positionNFTMint, pool solana.PublicKey,
	mint0, mint1, vault0, vault1 solana.PublicKey,
	userAccount0, userAccount1 solana.PublicKey,
	tickLower, tickUpper, tickSpacing int32,
	liquidity *big.Int,
	amount0Max, amount1Max uint64,
) (solana.Instruction, error) {
	liqBytes, err := le128(liquidity)
	if err != nil {
		return nil, err
	}

	arrayLower := TickArrayStartIndex(tickLower, tickSpacing)
	arrayUpper := TickArrayStartIndex(tickUpper, tickSpacing)

	data := make([]byte, 0, 8+4*4+16+8*8+2)
	data = append(data, openPositionDiscriminator...)
	data = append(data, le32(uint32(tickLower))...)
	data = append(data, le32(uint32(tickUpper))...)
	data = append(data, le32(uint32(arrayLower))...)
	data = append(data, le32(uint32(arrayUpper))...)
	data = append(data, liqBytes...)
	data = append(data, le64(amount0Max)...)
	data = append(data, le64(amount1Max)...)
	data = append(data, 0) // no NFT metadata
	data = append(data, 0) // base flag unset

	positionNFTAccount, _, _ := solana.FindAssociatedTokenAddress(payer, positionNFTMint)

	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: payer, IsSigner: false, IsWritable: false}, // position NFT owner
		{PublicKey: positionNFTMint, IsSigner: true, IsWritable: true},
		{PublicKey: positionNFTAccount, IsSigner: false, IsWritable: true},
		{PublicKey: pool, IsSigner: false, IsWritable: true},
		{PublicKey: DeriveTickArrayAddress(pool, arrayLower), IsSigner: false, IsWritable: true},
		{PublicKey: DeriveTickArrayAddress(pool, arrayUpper), IsSigner: false, IsWritable: true},
		{PublicKey: DerivePositionAddress(positionNFTMint), IsSigner: false, IsWritable: true},
		{PublicKey: userAccount0, IsSigner: false, IsWritable: true},
		{PublicKey: userAccount1, IsSigner: false, IsWritable: true},
		{PublicKey: vault0, IsSigner: false, IsWritable: true},
		{PublicKey: vault1, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.Token2022ProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: mint0, IsSigner: false, IsWritable: false},
		{PublicKey: mint1, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ClmmProgramID, accounts, data), nil
}

// buildLockPositionInstruction permanently locks the seeded position so the
// launcher cannot pull liquidity after trading starts.
func buildLockPositionInstruction(payer, positionNFTMint solana.PublicKey) solana.Instruction {
	lockAuthority := DeriveLockAuthority()
	positionNFTAccount, _, _ := solana.FindAssociatedTokenAddress(payer, positionNFTMint)
	lockedNFTAccount, _, _ := solana.FindAssociatedTokenAddress(lockAuthority, positionNFTMint)

	data := append([]byte{}, lockPositionDiscriminator...)
	data = append(data, 0) // no lock metadata

	accounts := []*solana.AccountMeta{
		{PublicKey: lockAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: payer, IsSigner: true, IsWritable: false}, // position NFT owner
		{PublicKey: positionNFTMint, IsSigner: false, IsWritable: false},
		{PublicKey: positionNFTAccount, IsSigner: false, IsWritable: true},
		{PublicKey: lockedNFTAccount, IsSigner: false, IsWritable: true},
		{PublicKey: DerivePositionAddress(positionNFTMint), IsSigner: false, IsWritable: false},
		{PublicKey: DeriveLockedPositionAddress(positionNFTMint), IsSigner: false, IsWritable: true},
		{PublicKey: solana.Token2022ProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(LockingProgramID, accounts, data)
}
