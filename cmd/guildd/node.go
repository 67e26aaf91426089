package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calehh/guild-app/app"
	app_config "github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/indexer"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "guildd",
	Short: "guildd runs a guild governance ledger",
	Long: `A member-governed token ledger replicated with CometBFT.
Members sponsor applicants, vote with their shares and may rage-quit.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func loadConfig(home string) (*app_config.Config, error) {
	appConfig := app_config.NewGuildConfig(home)
	viper.SetConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"))
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := viper.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	appConfig.App.Home = appConfig.RootDir
	if err := appConfig.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return appConfig, nil
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = app_config.DefaultHomeDir()
	}
	appConfig, err := loadConfig(homeDir)
	if err != nil {
		log.Fatal(err)
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	app, err := app.NewGuildApp(appConfig.App, logger, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	err = node.Start()
	if err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	var svc *indexer.Service
	if appConfig.App.Indexer.Enabled {
		svc, err = startIndexer(ctx, appConfig, logger)
		if err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut down...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if svc != nil {
				if err := svc.Shutdown(context.Background()); err != nil {
					logger.Error("indexer service shutdown fail", "err", err)
				}
			}
			err = node.Stop()
			if err != nil {
				logger.Error("stop comet node fail", "err", err)
			}
			node.Wait()
			app.Stop()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// startIndexer follows the local node over its RPC listener and serves the
// indexed data.
func startIndexer(ctx context.Context, appConfig *app_config.Config, logger cmtlog.Logger) (*indexer.Service, error) {
	rpcUrl, err := url.Parse(appConfig.RPC.ListenAddress)
	if err != nil {
		return nil, err
	}
	rpcUrl.Scheme = "http"
	idx, err := indexer.NewChainIndexer(logger, appConfig.App.IndexerDBPath(), rpcUrl.String(), appConfig.App.Indexer.PollInterval)
	if err != nil {
		return nil, err
	}
	go func() {
		idx.Start(ctx)
		if err := idx.Close(); err != nil {
			logger.Error("close indexer db fail", "err", err)
		}
	}()
	svc := indexer.NewService(appConfig.App.Indexer.ListenAddr, idx)
	go func() {
		if err := svc.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("indexer service fail", "err", err)
		}
	}()
	return svc, nil
}
