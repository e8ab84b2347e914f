package client

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWalletFromFile(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	// solana-keygen stores the key as a JSON byte array
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	wallet, err := LocalWalletFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), wallet.Address())
}

func TestLocalWalletFromFile_Missing(t *testing.T) {
	_, err := LocalWalletFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLocalWallet_SignTransaction_FillsOwnSlotOnly(t *testing.T) {
	wallet := testWallet(t)
	treasury, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	artifact := buildArtifact(t, wallet.Address(), treasury)
	composer := NewComposer(nil, &mockChain{submitSig: solana.Signature{1}}, wallet, testParams(), nil, testLogger())

	_, err = composer.Complete(context.Background(), artifact)
	require.NoError(t, err)
}
