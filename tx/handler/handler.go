package handler

import (
	"context"

	"github.com/calehh/guild-app/guild"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GuildTx, env guild.Env) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.GuildTx, env guild.Env) (res *abcitypes.ExecTxResult, err error)
}

type applyFunc func(st *state.State, btx *tx.GuildTx, env guild.Env) (data []byte, events []types.Event, err error)

type baseHandler struct {
	logger  cmtlog.Logger
	machine *guild.Machine
	apply   applyFunc
}

// Check runs the call against a throwaway copy of st.
func (h *baseHandler) Check(ctx context.Context, st *state.State, btx *tx.GuildTx, env guild.Env) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, _, err1 := h.apply(st.Clone(), btx, env)
	if err1 != nil {
		h.logger.Info("CheckTx fail", "type", btx.Type, "err", err1)
		res.Code = guild.ErrorCode(err1)
		res.Log = err1.Error()
	}
	return
}

// Process applies the call to st. On error st holds partial writes and must
// be discarded by the caller.
func (h *baseHandler) Process(ctx context.Context, st *state.State, btx *tx.GuildTx, env guild.Env) (res *abcitypes.ExecTxResult, err error) {
	data, events, err := h.apply(st, btx, env)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Data:   data,
		Events: types.EncodeEvents(events),
	}
	return
}

// NewTxHandlers binds every tx type to its machine call.
func NewTxHandlers(machine *guild.Machine, logger cmtlog.Logger) map[tx.GuildTxType]TxHandler {
	return map[tx.GuildTxType]TxHandler{
		tx.GuildTxTypeInit:     NewInitTxHandler(machine, logger),
		tx.GuildTxTypePropose:  NewProposeTxHandler(machine, logger),
		tx.GuildTxTypeVote:     NewVoteTxHandler(machine, logger),
		tx.GuildTxTypeProcess:  NewProcessTxHandler(machine, logger),
		tx.GuildTxTypeRageQuit: NewRageQuitTxHandler(machine, logger),
		tx.GuildTxTypeTransfer: NewTransferTxHandler(machine, logger),
	}
}
