package handler

import (
	"github.com/calehh/guild-app/guild"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ProposeTxHandler struct {
	baseHandler
}

func NewProposeTxHandler(machine *guild.Machine, logger cmtlog.Logger) (h *ProposeTxHandler) {
	h = &ProposeTxHandler{baseHandler{logger: logger.With("module", "proposeTx"), machine: machine}}
	h.apply = h.handle
	return
}

// handle returns the proposal hash as result data.
func (h *ProposeTxHandler) handle(st *state.State, btx *tx.GuildTx, env guild.Env) ([]byte, []types.Event, error) {
	wtx, ok := btx.Tx.(*tx.ProposeTx)
	if !ok {
		return nil, nil, tx.ErrInvalidTx
	}
	hash, events, err := h.machine.Propose(st, env, wtx.Applicant, wtx.SharesRequested, wtx.TokenTribute)
	if err != nil {
		return nil, nil, err
	}
	return hash.Bytes(), events, nil
}

type VoteTxHandler struct {
	baseHandler
}

func NewVoteTxHandler(machine *guild.Machine, logger cmtlog.Logger) (h *VoteTxHandler) {
	h = &VoteTxHandler{baseHandler{logger: logger.With("module", "voteTx"), machine: machine}}
	h.apply = h.handle
	return
}

func (h *VoteTxHandler) handle(st *state.State, btx *tx.GuildTx, env guild.Env) ([]byte, []types.Event, error) {
	wtx, ok := btx.Tx.(*tx.VoteTx)
	if !ok {
		return nil, nil, tx.ErrInvalidTx
	}
	events, err := h.machine.Vote(st, env, wtx.Proposal, wtx.Approve)
	return nil, events, err
}

type ProcessTxHandler struct {
	baseHandler
}

func NewProcessTxHandler(machine *guild.Machine, logger cmtlog.Logger) (h *ProcessTxHandler) {
	h = &ProcessTxHandler{baseHandler{logger: logger.With("module", "processTx"), machine: machine}}
	h.apply = h.handle
	return
}

// handle returns the phase the proposal ended in as result data.
func (h *ProcessTxHandler) handle(st *state.State, btx *tx.GuildTx, env guild.Env) ([]byte, []types.Event, error) {
	wtx, ok := btx.Tx.(*tx.ProcessTx)
	if !ok {
		return nil, nil, tx.ErrInvalidTx
	}
	phase, events, err := h.machine.Process(st, env, wtx.Proposal)
	if err != nil {
		return nil, nil, err
	}
	return []byte(phase.String()), events, nil
}
