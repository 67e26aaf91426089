package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/calehh/guild-app/guild"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

// Query codes.
const (
	CodeQueryBadRequest uint32 = 1
	CodeQueryInternal   uint32 = 2
	CodeQueryNotFound   uint32 = 404
)

var errBadQueryData = errors.New("bad query data")

func (app *GuildApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeQueryNotFound
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

type queryFunc func(st *state.State, data []byte) (any, error)

// StateQuerier answers one query path from the last committed state.
type StateQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	fn     queryFunc
}

func NewStateQuerier(db *state.StateDB, logger cmtlog.Logger, fn queryFunc) (q *StateQuerier) {
	q = &StateQuerier{
		db:     db,
		logger: logger,
		fn:     fn,
	}
	return
}

func (q *StateQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st, err := q.db.Snapshot()
	if err != nil {
		q.logger.Error("query snapshot fail", "path", req.Path, "err", err)
		res.Code = CodeQueryInternal
		res.Log = err.Error()
		return res, nil
	}
	res.Height = int64(st.Height())
	v, err := q.fn(st, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, errBadQueryData):
			res.Code = CodeQueryBadRequest
		case errors.Is(err, guild.ErrProposalNotFound):
			res.Code = CodeQueryNotFound
		default:
			res.Code = CodeQueryInternal
		}
		res.Log = err.Error()
		return res, nil
	}
	res.Value, err = json.Marshal(v)
	if err != nil {
		res.Code = CodeQueryInternal
		res.Log = err.Error()
	}
	return res, nil
}

type MemberResponse struct {
	Address              common.Address `json:"address"`
	Exists               bool           `json:"exists"`
	Shares               uint64         `json:"shares"`
	HighestApprovedIndex uint32         `json:"highest_approved_index"`
	JoinedAt             uint32         `json:"joined_at"`
	Balance              uint64         `json:"balance"`
}

type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

type SupplyResponse struct {
	TotalSupply uint64 `json:"total_supply"`
	TotalShares uint64 `json:"total_shares"`
	Members     int    `json:"members"`
	Initialized bool   `json:"initialized"`
}

// ProposalResponse is a stored proposal with its lifecycle phase.
type ProposalResponse struct {
	*types.Proposal
	Phase string `json:"phase"`
}

type CountResponse struct {
	Count uint32 `json:"count"`
}

type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

func addressData(data []byte) (common.Address, error) {
	if len(data) != common.AddressLength {
		return common.Address{}, errBadQueryData
	}
	return common.BytesToAddress(data), nil
}

func hashData(data []byte) (common.Hash, error) {
	if len(data) != common.HashLength {
		return common.Hash{}, errBadQueryData
	}
	return common.BytesToHash(data), nil
}

func (app *GuildApp) registerQuerier() {
	m := app.machine
	reg := func(path string, fn queryFunc) {
		app.queriers[path] = NewStateQuerier(app.db, app.logger, fn)
	}
	reg("/member/", func(st *state.State, data []byte) (any, error) {
		addr, err := addressData(data)
		if err != nil {
			return nil, err
		}
		member, err := m.Member(st, addr)
		if err != nil {
			return nil, err
		}
		balance, err := m.BalanceOf(st, addr)
		if err != nil {
			return nil, err
		}
		return &MemberResponse{
			Address:              addr,
			Exists:               member.Exists,
			Shares:               member.Shares,
			HighestApprovedIndex: member.HighestApprovedIndex,
			JoinedAt:             member.JoinedAt,
			Balance:              balance,
		}, nil
	})
	reg("/balance/", func(st *state.State, data []byte) (any, error) {
		addr, err := addressData(data)
		if err != nil {
			return nil, err
		}
		balance, err := m.BalanceOf(st, addr)
		if err != nil {
			return nil, err
		}
		return &BalanceResponse{Address: addr, Balance: balance}, nil
	})
	reg("/proposal/", func(st *state.State, data []byte) (any, error) {
		hash, err := hashData(data)
		if err != nil {
			return nil, err
		}
		p, err := m.Proposal(st, hash)
		if err != nil {
			return nil, err
		}
		return &ProposalResponse{Proposal: p, Phase: p.Phase().String()}, nil
	})
	reg("/proposals_for/", func(st *state.State, data []byte) (any, error) {
		addr, err := addressData(data)
		if err != nil {
			return nil, err
		}
		hashes, err := m.ProposalsFor(st, addr)
		if hashes == nil {
			hashes = []common.Hash{}
		}
		return hashes, err
	})
	reg("/voters_for/", func(st *state.State, data []byte) (any, error) {
		hash, err := hashData(data)
		if err != nil {
			return nil, err
		}
		voters, err := m.VotersFor(st, hash)
		if voters == nil {
			voters = []common.Address{}
		}
		return voters, err
	})
	reg("/supply/", func(st *state.State, _ []byte) (any, error) {
		shares, err := m.TotalShares(st)
		if err != nil {
			return nil, err
		}
		members, err := m.MemberCount(st)
		if err != nil {
			return nil, err
		}
		initialized, err := m.Initialized(st)
		if err != nil {
			return nil, err
		}
		return &SupplyResponse{
			TotalSupply: m.TotalSupply(),
			TotalShares: shares,
			Members:     members,
			Initialized: initialized,
		}, nil
	})
	reg("/proposal_count/", func(st *state.State, _ []byte) (any, error) {
		count, err := m.ProposalCount(st)
		if err != nil {
			return nil, err
		}
		return &CountResponse{Count: count}, nil
	})
	reg("/params/", func(_ *state.State, _ []byte) (any, error) {
		return m.Params(), nil
	})
	reg("/nonce/", func(st *state.State, data []byte) (any, error) {
		addr, err := addressData(data)
		if err != nil {
			return nil, err
		}
		acnt, err := st.GetAccount(addr)
		if err != nil {
			return nil, err
		}
		res := &NonceResponse{Address: addr}
		if acnt != nil {
			res.Nonce = acnt.Nonce
		}
		return res, nil
	})
}
