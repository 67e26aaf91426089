package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
)

const GuildModuleName = "guild"
const DefaultPower = 1000

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// GuildGenesisState is the app_state section of the genesis document.
type GuildGenesisState struct {
	Params Params `json:"params"`
}

func DefaultGuildGenesisState() GuildGenesisState {
	return GuildGenesisState{Params: DefaultParams()}
}

// ParseGuildGenesis reads ledger params from app_state. An empty app_state
// yields the defaults.
func ParseGuildGenesis(appState []byte) (params Params, err error) {
	if len(appState) == 0 || string(appState) == "null" {
		return DefaultParams(), nil
	}
	gs := DefaultGuildGenesisState()
	if err = json.Unmarshal(appState, &gs); err != nil {
		return params, fmt.Errorf("decode app_state: %w", err)
	}
	if err = gs.Params.Validate(); err != nil {
		return params, fmt.Errorf("invalid guild params: %w", err)
	}
	return gs.Params, nil
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if _, err := ParseGuildGenesis(ag.AppState); err != nil {
		return err
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}
