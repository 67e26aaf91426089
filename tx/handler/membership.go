package handler

import (
	"github.com/calehh/guild-app/guild"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type InitTxHandler struct {
	baseHandler
}

func NewInitTxHandler(machine *guild.Machine, logger cmtlog.Logger) (h *InitTxHandler) {
	h = &InitTxHandler{baseHandler{logger: logger.With("module", "initTx"), machine: machine}}
	h.apply = h.handle
	return
}

func (h *InitTxHandler) handle(st *state.State, btx *tx.GuildTx, env guild.Env) ([]byte, []types.Event, error) {
	if _, ok := btx.Tx.(*tx.InitTx); !ok {
		return nil, nil, tx.ErrInvalidTx
	}
	events, err := h.machine.Init(st, env)
	return nil, events, err
}

type RageQuitTxHandler struct {
	baseHandler
}

func NewRageQuitTxHandler(machine *guild.Machine, logger cmtlog.Logger) (h *RageQuitTxHandler) {
	h = &RageQuitTxHandler{baseHandler{logger: logger.With("module", "rageQuitTx"), machine: machine}}
	h.apply = h.handle
	return
}

func (h *RageQuitTxHandler) handle(st *state.State, btx *tx.GuildTx, env guild.Env) ([]byte, []types.Event, error) {
	if _, ok := btx.Tx.(*tx.RageQuitTx); !ok {
		return nil, nil, tx.ErrInvalidTx
	}
	events, err := h.machine.RageQuit(st, env)
	return nil, events, err
}

type TransferTxHandler struct {
	baseHandler
}

func NewTransferTxHandler(machine *guild.Machine, logger cmtlog.Logger) (h *TransferTxHandler) {
	h = &TransferTxHandler{baseHandler{logger: logger.With("module", "transferTx"), machine: machine}}
	h.apply = h.handle
	return
}

func (h *TransferTxHandler) handle(st *state.State, btx *tx.GuildTx, env guild.Env) ([]byte, []types.Event, error) {
	wtx, ok := btx.Tx.(*tx.TransferTx)
	if !ok {
		return nil, nil, tx.ErrInvalidTx
	}
	events, err := h.machine.Transfer(st, env, wtx.To, wtx.Amount)
	return nil, events, err
}
