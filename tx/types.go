package tx

import (
	"errors"
)

type GuildTxType uint8

const (
	GuildTxTypeUnknown  GuildTxType = 0
	GuildTxTypeInit     GuildTxType = 1
	GuildTxTypePropose  GuildTxType = 2
	GuildTxTypeVote     GuildTxType = 3
	GuildTxTypeProcess  GuildTxType = 4
	GuildTxTypeRageQuit GuildTxType = 5
	GuildTxTypeTransfer GuildTxType = 6
)

func (t GuildTxType) String() string {
	switch t {
	case GuildTxTypeInit:
		return "init"
	case GuildTxTypePropose:
		return "propose"
	case GuildTxTypeVote:
		return "vote"
	case GuildTxTypeProcess:
		return "process"
	case GuildTxTypeRageQuit:
		return "rage_quit"
	case GuildTxTypeTransfer:
		return "transfer"
	}
	return "unknown"
}

const (
	GuildTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrMissingPubKey        = errors.New("missing pubkey")
)
