package app

import (
	"context"
	"errors"

	"github.com/calehh/guild-app/guild"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// Result codes for transactions rejected before reaching the ledger. Ledger
// errors use guild.ErrorCode.
const (
	CodeTxParse       uint32 = 20
	CodeTxSigInvalid  uint32 = 21
	CodeTxNonce       uint32 = 22
	CodeTxUnsupported uint32 = 23
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

func (app *GuildApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

// invalidCode reports codes of transactions a proposer must not include.
func invalidCode(code uint32) bool {
	return code >= CodeTxParse && code <= CodeTxUnsupported
}

func verifyCode(err error) uint32 {
	switch {
	case errors.Is(err, state.ErrTxNonceInvalid):
		return CodeTxNonce
	case errors.Is(err, state.ErrTxSigInvalid), errors.Is(err, tx.ErrMissingPubKey):
		return CodeTxSigInvalid
	}
	return CodeTxParse
}

func (app *GuildApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.GuildTx, acnt *state.Account, code uint32, err error) {
	btx, err = tx.UnmarshalGuildTx(txDat)
	if err != nil {
		if errors.Is(err, tx.ErrUnsupportedTxType) {
			return nil, nil, CodeTxUnsupported, err
		}
		return nil, nil, CodeTxParse, err
	}
	acnt, err = st.Verify(btx, allowNonceGap)
	if err != nil {
		return nil, nil, verifyCode(err), err
	}
	return btx, acnt, 0, nil
}

// deliverTx executes one transaction on top of st and returns the state the
// next transaction sees. A verified sender's nonce is consumed even when the
// ledger rejects the call; the ledger's writes are kept only on success.
func (app *GuildApp) deliverTx(ctx context.Context, st *state.State, stx []byte, height uint64) (*state.State, *abcitypes.ExecTxResult, tx.GuildTxType) {
	btx, acnt, code, err := app.parseTx(st, stx, false)
	if err != nil {
		app.logger.Info("reject tx", "code", code, "err", err)
		return st, &abcitypes.ExecTxResult{Code: code, Log: err.Error()}, tx.GuildTxTypeUnknown
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return st, &abcitypes.ExecTxResult{Code: CodeTxUnsupported, Log: tx.ErrUnsupportedTxType.Error()}, btx.Type
	}

	next := st.Clone()
	env := guild.NewCallEnv(height, acnt.Address())
	res, txErr := h.Process(ctx, next, btx, env)
	if txErr != nil {
		code = guild.ErrorCode(txErr)
		app.logger.Info("tx failed", "type", btx.Type, "sender", acnt.Address(), "code", code, "err", txErr)
		if err = st.IncNonce(acnt); err != nil {
			app.logger.Error("consume nonce fail", "err", err)
		}
		return st, &abcitypes.ExecTxResult{Code: code, Log: txErr.Error()}, btx.Type
	}
	if err = next.IncNonce(acnt); err != nil {
		app.logger.Error("consume nonce fail", "err", err)
		return st, &abcitypes.ExecTxResult{Code: guild.CodeInternal, Log: err.Error()}, btx.Type
	}
	return next, res, btx.Type
}

func (app *GuildApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	st := app.db.NewState()
	btx, acnt, code, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("check tx parse fail", "err", err)
		res.Code = code
		res.Log = err.Error()
		err = nil
		return
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		res.Code = CodeTxUnsupported
		res.Log = tx.ErrUnsupportedTxType.Error()
		return
	}
	env := guild.NewCallEnv(st.Height(), acnt.Address())
	res, err = h.Check(ctx, st, btx, env)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: guild.CodeInternal, Log: err.Error()}
		err = nil
	}
	return
}

// PrepareProposal drops transactions that cannot be verified in block order
// and keeps the rest within the byte limit.
func (app *GuildApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	st := app.db.NewState()
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		next, result, _ := app.deliverTx(ctx, st, stx, uint64(proposal.Height))
		if invalidCode(result.Code) {
			app.logger.Info("PrepareProposal drop tx", "code", result.Code, "log", result.Log)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *GuildApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.db.NewState()
	for _, stx := range proposal.Txs {
		var result *abcitypes.ExecTxResult
		st, result, _ = app.deliverTx(ctx, st, stx, uint64(proposal.Height))
		if invalidCode(result.Code) {
			app.logger.Error("ProcessProposal invalid tx", "height", proposal.Height, "code", result.Code, "log", result.Log)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *GuildApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	st := app.getState()
	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		var tp tx.GuildTxType
		st, results[i], tp = app.deliverTx(ctx, st, stx, uint64(req.Height))
		app.metrics.observeTx(tp, results[i].Code)
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	app.metrics.observeBlock(req.Height, len(req.Txs))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: results,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *GuildApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrUnexpectedTxProcess
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit")
	return &abcitypes.ResponseCommit{}, nil
}
