package crypto

import (
	"fmt"
	"os"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
)

// PV signs guild transactions with a CometBFT private validator key file.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		return nil, fmt.Errorf("error reading PrivValidator key from %v: %w", keyFilePath, err)
	}

	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}, nil
}

func NewPV(key crypto.PrivKey) *PV {
	return &PV{privateKey: key, publicKey: key.PubKey()}
}

func (k *PV) PrivKey() crypto.PrivKey {
	return k.privateKey
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

// Address is the ledger account controlled by this key.
func (k *PV) Address() common.Address {
	return common.BytesToAddress(k.publicKey.Address())
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}
