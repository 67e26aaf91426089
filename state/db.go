package state

import (
	"sync"

	cosmoslog "cosmossdk.io/log"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

const treeCacheSize = 128

// StateDB owns the IAVL tree and the last committed State.
type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "guilddb")
	ldb, err := dbm.NewDB("guild", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return openStateDB(ldb, dir, logger)
}

// NewMemStateDB keeps the tree in memory. Used by tests and tooling.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return openStateDB(dbm.NewMemDB(), "", logger.With("module", "guilddb"))
}

func openStateDB(ldb dbm.DB, dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	tdb := iavl.NewMutableTree(ldb, treeCacheSize, true, iavlLogger{logger: logger})
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from guilddb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	return
}

// Close releases the tree and its backing store. The tree does not close
// the store itself.
func (db *StateDB) Close() (err error) {
	if err = db.db.Close(); err != nil {
		return
	}
	err = db.ldb.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

// NewState opens the working state of the next block.
func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// SetState commits st as a new tree version. st must have been Updated.
func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// Snapshot returns a read-only view of the last committed version that stays
// valid while later blocks commit.
func (db *StateDB) Snapshot() (st *State, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	var tree treeReader
	if db.state.dbVer == 0 {
		tree = iavl.NewImmutableTree(dbm.NewMemDB(), 0, true, iavlLogger{logger: db.logger})
	} else {
		tree, err = db.db.GetImmutable(db.state.dbVer)
		if err != nil {
			return nil, err
		}
	}
	return &State{
		logger: db.logger,
		tree:   tree,
		dbVer:  db.state.dbVer,
		header: db.state.header.Clone(),
		dirty:  make(map[string]entry),
	}, nil
}

// iavlLogger adapts the CometBFT logger to the cosmos logger IAVL expects.
type iavlLogger struct {
	logger cmtlog.Logger
}

var _ cosmoslog.Logger = iavlLogger{}

func (l iavlLogger) Info(msg string, keyVals ...any) {
	l.logger.Info(msg, keyVals...)
}

func (l iavlLogger) Warn(msg string, keyVals ...any) {
	l.logger.Info(msg, keyVals...)
}

func (l iavlLogger) Error(msg string, keyVals ...any) {
	l.logger.Error(msg, keyVals...)
}

func (l iavlLogger) Debug(msg string, keyVals ...any) {
	l.logger.Debug(msg, keyVals...)
}

func (l iavlLogger) With(keyVals ...any) cosmoslog.Logger {
	return iavlLogger{l.logger.With(keyVals...)}
}

func (l iavlLogger) Impl() any {
	return l.logger
}
