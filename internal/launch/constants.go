package launch

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// On-chain programs the pipeline talks to.
var (
	ClmmProgramID     = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	LockingProgramID  = solana.MustPublicKeyFromBase58("LockrWmn6K5twhz3y9w1dQERbmgSaRkfnTeTKbpofwE")
	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

	// Default relay tip destination. Overridable through config.
	DefaultTipAccount = solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")
)

// PDA seed tags. Every derived address is a pure mapping from
// (seed tag, input keys) and can be recomputed by any party.
const (
	seedAmmConfig   = "amm_config"
	seedPool        = "pool"
	seedPoolVault   = "pool_vault"
	seedObservation = "observation"
	seedBitmap      = "pool_tick_array_bitmap_extension"
	seedPosition    = "position"
	seedTickArray   = "tick_array"
	seedLockedPos   = "locked_position"
	seedAuthority   = "vault_and_lp_mint_auth_seed"
)

// TickArraySize is the number of ticks held by one tick array account.
const TickArraySize = 60

// MintAccountSpace is the size of the token-2022 mint the launcher
// creates: base mint layout plus account type, extension header and the
// transfer-fee config extension.
const MintAccountSpace = 278

// Token program instruction codes used by the mint transaction.
const (

	tokenIxInitializeMint2        = 20
	tokenIxMintTo                 = 7
	tokenIxSyncNative             = 17
	tokenIxCloseAccount           = 9
	tokenIxTransferFeeExtension   = 26
	transferFeeIxInitializeConfig = 0
)

// anchorDiscriminator derives the 8-byte instruction discriminator used by
// anchor-built programs.
func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

var (
	createPoolDiscriminator   = anchorDiscriminator("create_pool")
	openPositionDiscriminator = anchorDiscriminator("open_position_with_token22_nft")
	lockPositionDiscriminator = anchorDiscriminator("lock_position")
)
