package app

import (
	"context"

	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/guild"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/tx/handler"
	"github.com/calehh/guild-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
)

var _ abcitypes.Application = &GuildApp{}

type GuildApp struct {
	cfg    *config.GuildAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	machine  *guild.Machine
	txHdlrs  map[tx.GuildTxType]handler.TxHandler
	queriers map[string]Querier
	metrics  *Metrics

	st *state.State
}

func NewGuildApp(cfg *config.GuildAppConfig, logger cmtlog.Logger, registry prometheus.Registerer) (app *GuildApp, err error) {
	db, err := state.NewStateDB(cfg.DataDir(), logger)
	if err != nil {
		return nil, err
	}
	return NewGuildAppWithDB(cfg, db, logger, registry)
}

// NewGuildAppWithDB builds the app over an opened StateDB. Params stored by a
// previous InitChain take precedence over the defaults.
func NewGuildAppWithDB(cfg *config.GuildAppConfig, db *state.StateDB, logger cmtlog.Logger, registry prometheus.Registerer) (app *GuildApp, err error) {
	logger = logger.With("module", "app")
	app = &GuildApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		queriers: make(map[string]Querier),
		metrics:  NewMetrics(registry),
	}
	snapshot, err := db.Snapshot()
	if err != nil {
		return nil, err
	}
	params, found, err := guild.LoadParams(snapshot)
	if err != nil {
		return nil, err
	}
	if !found {
		params = types.DefaultParams()
	}
	if err = app.setMachine(params); err != nil {
		return nil, err
	}
	return app, nil
}

func (app *GuildApp) setMachine(params types.Params) error {
	machine, err := guild.NewMachine(params, app.logger)
	if err != nil {
		return err
	}
	app.machine = machine
	app.registerTxHandler()
	app.registerQuerier()
	return nil
}

func (app *GuildApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("guild app stopped")
}

func (app *GuildApp) registerTxHandler() {
	app.txHdlrs = handler.NewTxHandlers(app.machine, app.logger)
}

func (app *GuildApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	params, err := types.ParseGuildGenesis(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	if err = guild.SaveParams(st, params); err != nil {
		app.logger.Error("InitChain save params fail", "err", err)
		return nil, err
	}
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err := app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	if err = app.setMachine(params); err != nil {
		return nil, err
	}
	app.logger.Info("InitChain", "chainId", chain.ChainId, "supply", params.TotalSupply, "votingPeriod", params.VotingPeriod, "gracePeriod", params.GracePeriod)
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *GuildApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *GuildApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *GuildApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *GuildApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *GuildApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *GuildApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *GuildApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
