package crypto

import (
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLoadFilePV(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "priv_validator_key.json")
	key := ed25519.GenPrivKey()
	privval.NewFilePV(key, keyFile, filepath.Join(dir, "priv_validator_state.json")).Save()

	pv, err := LoadFilePV(keyFile)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Bytes(), pv.PublicKey())
	require.Equal(t, common.BytesToAddress(key.PubKey().Address()), pv.Address())

	msg := []byte("guild")
	sig, err := pv.Sign(msg)
	require.NoError(t, err)
	require.True(t, key.PubKey().VerifySignature(msg, sig))
}

func TestLoadFilePVMissing(t *testing.T) {
	_, err := LoadFilePV(filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
}

func TestNewPV(t *testing.T) {
	key := ed25519.GenPrivKey()
	pv := NewPV(key)
	require.Equal(t, key, pv.PrivKey())
	require.Equal(t, NewPV(key).Address(), pv.Address())
}
