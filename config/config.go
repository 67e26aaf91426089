package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultIndexerListenAddr   = "127.0.0.1:8081"
	DefaultIndexerPollInterval = 2 * time.Second
	DefaultIndexerDBName       = "indexer.db"
)

type IndexerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DBName       string        `mapstructure:"db_name"`
}

type GuildAppConfig struct {
	Home string `mapstructure:"-"`

	Indexer IndexerConfig `mapstructure:"indexer"`
}

func DefaultGuildAppConfig(home string) *GuildAppConfig {
	return &GuildAppConfig{
		Home: home,
		Indexer: IndexerConfig{
			Enabled:      true,
			ListenAddr:   DefaultIndexerListenAddr,
			PollInterval: DefaultIndexerPollInterval,
			DBName:       DefaultIndexerDBName,
		},
	}
}

func (c *GuildAppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

func (c *GuildAppConfig) IndexerDBPath() string {
	return filepath.Join(c.Home, c.Indexer.DBName)
}

func (c *GuildAppConfig) ValidateBasic() error {
	if c.Indexer.Enabled {
		if c.Indexer.ListenAddr == "" {
			return errors.New("indexer.listen_addr is empty")
		}
		if c.Indexer.PollInterval <= 0 {
			return fmt.Errorf("indexer.poll_interval must be positive (got %v)", c.Indexer.PollInterval)
		}
		if c.Indexer.DBName == "" {
			return errors.New("indexer.db_name is empty")
		}
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *GuildAppConfig `mapstructure:"app"`
}

func DefaultHomeDir() string {
	return os.ExpandEnv("$HOME/.guild")
}

// NewGuildConfig returns the default node configuration rooted at home and
// makes sure its config directory exists.
func NewGuildConfig(home string) *Config {
	if len(home) == 0 {
		home = DefaultHomeDir()
	}
	_ = os.MkdirAll(filepath.Join(home, "config"), 0755)
	cfg := &Config{
		DefaultGuildCometConfig(),
		DefaultGuildAppConfig(home),
	}
	cfg.SetRoot(home)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	if c.App == nil {
		return errors.New("missing [app] section")
	}
	return c.App.ValidateBasic()
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

// DefaultGuildCometConfig shortens block time so grace and voting periods,
// which count blocks, pass at a useful pace.
func DefaultGuildCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1000
	return cometConfig
}
