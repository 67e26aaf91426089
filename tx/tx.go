package tx

import (
	"encoding/json"

	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

// GuildTx is the signed envelope of every guild call. The caller is the
// address of PubKey; Sig signs the JSON of the envelope with Sig replaced by
// the chain id.
type GuildTx struct {
	Version uint8       `json:"version"`
	Type    GuildTxType `json:"type"`
	Nonce   uint64      `json:"nonce"`
	PubKey  []byte      `json:"pubKey"`
	Tx      any         `json:"tx"`
	Sig     [][]byte    `json:"sig"`
}

type InitTx struct{}

type ProposeTx struct {
	Applicant       common.Address `json:"applicant"`
	SharesRequested uint32         `json:"sharesRequested"`
	TokenTribute    uint64         `json:"tokenTribute"`
}

type VoteTx struct {
	Proposal common.Hash `json:"proposal"`
	Approve  bool        `json:"approve"`
}

type ProcessTx struct {
	Proposal common.Hash `json:"proposal"`
}

type RageQuitTx struct{}

type TransferTx struct {
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

type guildTxTmpl[Tx any] struct {
	Version uint8       `json:"version"`
	Type    GuildTxType `json:"type"`
	Nonce   uint64      `json:"nonce"`
	PubKey  []byte      `json:"pubKey"`
	Tx      Tx          `json:"tx"`
	Sig     [][]byte    `json:"sig"`
}

// AddressFromPubKey derives the ledger address of an ed25519 public key.
func AddressFromPubKey(pubKey []byte) common.Address {
	return common.BytesToAddress(ed25519.PubKey(pubKey).Address())
}

func (tx *GuildTx) Sender() (common.Address, error) {
	if len(tx.PubKey) != ed25519.PubKeySize {
		return common.Address{}, ErrMissingPubKey
	}
	return AddressFromPubKey(tx.PubKey), nil
}

func (tx *GuildTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

// Sign sets the envelope public key from key and signs it for chainID.
func (tx *GuildTx) Sign(key cmtcrypto.PrivKey, chainID string) error {
	tx.PubKey = key.PubKey().Bytes()
	dat, err := tx.SigData([]byte(chainID))
	if err != nil {
		return err
	}
	sig, err := key.Sign(dat)
	if err != nil {
		return err
	}
	tx.Sig = [][]byte{sig}
	return nil
}

func parseGuildTxType(dat []byte) GuildTxType {
	var tx struct {
		Type GuildTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GuildTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGuildTx[Tx any](dat []byte) (btx *GuildTx, err error) {
	var txt guildTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != GuildTxVersion0 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(GuildTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.PubKey = txt.PubKey
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalGuildTx(dat []byte) (btx *GuildTx, err error) {
	tp := parseGuildTxType(dat)
	switch tp {
	case GuildTxTypeInit:
		return unmarshalGuildTx[InitTx](dat)
	case GuildTxTypePropose:
		return unmarshalGuildTx[ProposeTx](dat)
	case GuildTxTypeVote:
		return unmarshalGuildTx[VoteTx](dat)
	case GuildTxTypeProcess:
		return unmarshalGuildTx[ProcessTx](dat)
	case GuildTxTypeRageQuit:
		return unmarshalGuildTx[RageQuitTx](dat)
	case GuildTxTypeTransfer:
		return unmarshalGuildTx[TransferTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalGuildTx(btx *GuildTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
