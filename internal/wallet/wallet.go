package wallet

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is the signing capability handed to the deployment pipeline. The
// assembler and submitter only ever see the public key and the two sign
// methods; key material never leaves this package.
type Wallet struct {
	privateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	ataMu    sync.Mutex
	ataCache map[string]solana.PublicKey
}

// New creates a wallet from a base58-encoded private key.
func New(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		privateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// FromPrivateKey wraps an existing key, used by tests and for generated
// transaction-local keys.
func FromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}
}

// SignTransaction adds the wallet's signature to a transaction, leaving
// other required signatures untouched.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.privateKey
		}
		return nil
	})
	return err
}

// SignAllTransactions signs every transaction in order, one batch. The
// slice order is the bundle order; callers must not reorder afterwards.
func (w *Wallet) SignAllTransactions(txs []*solana.Transaction) error {
	for i, tx := range txs {
		if err := w.SignTransaction(tx); err != nil {
			return fmt.Errorf("failed to sign transaction %d: %w", i, err)
		}
	}
	return nil
}

// GetATA returns the wallet's associated token account for a mint, cached
// after the first derivation. Safe for concurrent use; the monitor and the
// deployment pipeline share one wallet.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()

	w.ataMu.Lock()
	ata, ok := w.ataCache[mintStr]
	w.ataMu.Unlock()
	if ok {
		return ata, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	w.ataMu.Lock()
	w.ataCache[mintStr] = ata
	w.ataMu.Unlock()
	return ata, nil
}

// Address returns the wallet public key.
func (w *Wallet) Address() solana.PublicKey {
	return w.PublicKey
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
