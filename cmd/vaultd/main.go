package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"orbitalvault/config"
	"orbitalvault/core"
	"orbitalvault/core/events"
	"orbitalvault/core/state"
	"orbitalvault/core/types"
	"orbitalvault/native/pool"
	"orbitalvault/native/rewards"
	"orbitalvault/native/stake"
	"orbitalvault/observability/logging"
	"orbitalvault/rpc"
	"orbitalvault/services/auditd"
	auditstore "orbitalvault/services/auditd/storage"
	"orbitalvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memFlag := flag.Bool("mem", false, "DEV ONLY: run on an in-memory database")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("VAULT_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("vaultd", env, logging.ParseLevel(cfg.LogLevel))

	var db storage.Database
	if *memFlag {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "vault"))
		if err != nil {
			panic(fmt.Sprintf("Failed to open database: %v", err))
		}
		db = ldb
	}
	defer db.Close()

	vaultCfg, err := coreConfig(cfg)
	if err != nil {
		logger.Error("Failed to build vault config", slog.Any("error", err))
		os.Exit(1)
	}
	vault, err := core.NewVault(db, vaultCfg)
	if err != nil {
		logger.Error("Failed to create vault", slog.Any("error", err))
		os.Exit(1)
	}

	authToken := cfg.ResolveAuthToken()
	if authToken == "" {
		logger.Warn("no RPC auth token configured, mutating methods are disabled")
	} else {
		logger.Info("RPC auth enabled", logging.MaskSecret("token", authToken))
	}
	server := rpc.NewServer(vault, rpc.Options{
		AuthToken:       authToken,
		RateLimitPerSec: cfg.RateLimitPerSec,
		RateBurst:       cfg.RateBurst,
		Logger:          logger,
	})

	sinks := events.Fanout{server.Events()}
	if cfg.Audit.Enabled {
		store, err := auditstore.Open(cfg.Audit.Path)
		if err != nil {
			logger.Error("Failed to open audit trail", slog.Any("error", err))
			os.Exit(1)
		}
		defer store.Close()
		recorder := auditd.NewRecorder(store, logger)
		defer recorder.Close()
		sinks = append(sinks, recorder)
		logger.Info("audit trail enabled", slog.String("path", cfg.Audit.Path))
	}
	vault.SetEmitter(sinks)

	initialized, err := vault.Initialized()
	if err != nil {
		logger.Error("Failed to read vault state", slog.Any("error", err))
		os.Exit(1)
	}
	if !initialized {
		if err := vault.Initialize(); err != nil {
			logger.Error("Failed to initialise vault state", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("vault state initialised",
			slog.String("identity", vaultCfg.Identity.String()),
			slog.String("token", vaultCfg.Token.Symbol))
	}

	rpcErrCh := make(chan error, 1)
	go func() {
		err := server.Start(cfg.ListenAddress)
		rpcErrCh <- err
		close(rpcErrCh)
	}()

	if err := waitForRPCStartup(cfg.ListenAddress, rpcErrCh, 5*time.Second); err != nil {
		logger.Error("RPC server failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("vault node initialised and running", slog.String("listen", cfg.ListenAddress))

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("RPC shutdown failed", slog.Any("error", err))
		}
	case err, ok := <-rpcErrCh:
		if ok && err != nil {
			logger.Error("RPC server terminated", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// coreConfig maps the file configuration onto the vault's engine config.
func coreConfig(cfg *config.Config) (core.Config, error) {
	identity, err := types.ParseAssetID(cfg.Ledger.Identity)
	if err != nil {
		return core.Config{}, fmt.Errorf("parse ledger identity: %w", err)
	}
	members := make([]*big.Int, 0, len(cfg.Collection.Members))
	for _, member := range cfg.Collection.Members {
		members = append(members, big.NewInt(member))
	}
	return core.Config{
		Identity:          identity,
		Token:             state.TokenMetadata{Name: cfg.Token.Name, Symbol: cfg.Token.Symbol},
		CollectionBlock:   big.NewInt(cfg.Collection.Block),
		CollectionMembers: members,
		Policy: stake.Policy{
			ValuePerStake: big.NewInt(cfg.Policy.ValuePerStake),
			Timelock: stake.TimelockPolicy{
				Enabled:       cfg.Policy.TimelockEnabled,
				MinHeightDiff: cfg.Policy.MinLockBlocks,
			},
			Receipts: stake.ReceiptPolicy{
				Enabled:      cfg.Policy.ReceiptsEnabled,
				MaxInstances: cfg.Policy.MaxReceiptInstances,
			},
		},
		Rewards: rewards.Params{
			ClaimCap:  big.NewInt(cfg.Token.ClaimCap),
			MaxSupply: big.NewInt(cfg.Token.MaxSupply),
		},
		Pool: pool.Params{
			ExchangeRate: big.NewInt(cfg.Token.ExchangeRate),
			MaxSupply:    big.NewInt(cfg.Token.MaxSupply),
		},
		QueryFuel: cfg.Ledger.QueryFuel,
	}, nil
}

func waitForRPCStartup(addr string, errCh <-chan error, timeout time.Duration) error {
	dialAddr := dialAddressFor(addr)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				return fmt.Errorf("RPC server terminated before startup confirmation")
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("RPC server exited before startup confirmation")
		default:
		}

		conn, err := net.DialTimeout("tcp", dialAddr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case err, ok := <-errCh:
			if !ok {
				return fmt.Errorf("RPC server terminated before startup confirmation")
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("RPC server exited before startup confirmation")
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for RPC server to start on %s", addr)
		}
	}
}

func dialAddressFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
