package client

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Wallet is the signing capability the completion step depends on. In the
// browser this is the connected wallet extension; in Go it's a local keypair.
// SignTransaction may suspend on user interaction and may return a rejection.
type Wallet interface {
	Address() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// LocalWallet signs with a keypair held in memory.
type LocalWallet struct {
	key solana.PrivateKey
}

// NewLocalWallet wraps a private key as a Wallet.
func NewLocalWallet(key solana.PrivateKey) *LocalWallet {
	return &LocalWallet{key: key}
}

// LocalWalletFromFile loads a solana-keygen JSON keypair file.
func LocalWalletFromFile(path string) (*LocalWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return &LocalWallet{key: key}, nil
}

// Address returns the wallet's public key.
func (w *LocalWallet) Address() solana.PublicKey {
	return w.key.PublicKey()
}

// SignTransaction adds this wallet's signature, leaving any other signature
// slots (the treasury's, already filled server-side) untouched.
func (w *LocalWallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	return err
}
