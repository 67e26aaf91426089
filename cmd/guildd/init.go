package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/crypto"
	"github.com/calehh/guild-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Address    string          `json:"address" yaml:"address"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

const (
	flagTotalSupply    = "total-supply"
	flagVotingPeriod   = "voting-period"
	flagGracePeriod    = "grace-period"
	flagStartingPeriod = "starting-period"
	flagProposalBond   = "proposal-bond"
	flagProposalFee    = "proposal-fee"
	flagQuorumPercent  = "quorum-percent"
	flagInitialShares  = "initial-shares"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long:  `Initialize validators's and node's configuration files.`,
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(types.FlagHome, "", "node home directory")

	def := types.DefaultParams()
	initCmd.Flags().Uint64(flagTotalSupply, def.TotalSupply, "token supply minted to the first member")
	initCmd.Flags().Uint64(flagVotingPeriod, def.VotingPeriod, "voting period in blocks")
	initCmd.Flags().Uint64(flagGracePeriod, def.GracePeriod, "grace period in blocks")
	initCmd.Flags().Uint64(flagStartingPeriod, def.StartingPeriod, "blocks between proposal and voting start")
	initCmd.Flags().Uint64(flagProposalBond, def.ProposalBond, "refundable proposal deposit")
	initCmd.Flags().Uint64(flagProposalFee, def.ProposalFee, "non-refundable proposal fee")
	initCmd.Flags().Uint64(flagQuorumPercent, def.QuorumPercent, "minimum turnout in percent of voting weight")
	initCmd.Flags().Uint64(flagInitialShares, def.InitialShares, "shares granted to the first member")
}

func paramsFromFlags(cmd *cobra.Command) (types.Params, error) {
	var p types.Params
	fields := []struct {
		flag string
		dst  *uint64
	}{
		{flagTotalSupply, &p.TotalSupply},
		{flagVotingPeriod, &p.VotingPeriod},
		{flagGracePeriod, &p.GracePeriod},
		{flagStartingPeriod, &p.StartingPeriod},
		{flagProposalBond, &p.ProposalBond},
		{flagProposalFee, &p.ProposalFee},
		{flagQuorumPercent, &p.QuorumPercent},
		{flagInitialShares, &p.InitialShares},
	}
	for _, f := range fields {
		v, err := cmd.Flags().GetUint64(f.flag)
		if err != nil {
			return p, err
		}
		*f.dst = v
	}
	return p, p.Validate()
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	chainID, _ := cmd.Flags().GetString(types.FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)

	if chainID == "" {
		chainID = fmt.Sprintf("guild-chain-%v", rand.Uint64())
	}
	params, err := paramsFromFlags(cmd)
	if err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	appState, err := json.Marshal(types.GuildGenesisState{Params: params})
	if err != nil {
		return err
	}

	appConfig := config.NewGuildConfig(home)
	genFile := appConfig.GenesisFile()
	if !overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis.json file already exists: %v", genFile)
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	vals := []types.GenesisValidator{
		{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower},
	}
	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	pv, err := crypto.LoadFilePV(appConfig.PrivValidatorKeyFile())
	if err != nil {
		return err
	}
	return displayInfo(printInfo{
		Moniker:    appConfig.Moniker,
		ChainID:    chainID,
		NodeID:     nodeID,
		Address:    pv.Address().Hex(),
		AppMessage: appGenesis.AppState,
	})
}
