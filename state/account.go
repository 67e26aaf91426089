package state

import (
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

// Account is the signing identity of a caller: the ed25519 key registered
// by its first transaction and the next expected nonce.
type Account struct {
	PubKey []byte
	Nonce  uint64
}

func (a *Account) Clone() *Account {
	return &Account{PubKey: append([]byte(nil), a.PubKey...), Nonce: a.Nonce}
}

func (a *Account) SetPubKey(pkey []byte) {
	a.PubKey = make([]byte, len(pkey))
	copy(a.PubKey, pkey)
}

func (a *Account) Address() common.Address {
	return common.BytesToAddress(ed25519.PubKey(a.PubKey).Address())
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 || len(a.PubKey) != ed25519.PubKeySize {
		return false
	}
	pk := ed25519.PubKey(a.PubKey)
	return pk.VerifySignature(msg, sigs[0])
}
