// Package node wires configuration, the registry store and the RPC server
// into a runnable daemon that can be embedded in any binary.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingscan/config"
	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/registry"
	"github.com/Klingon-tech/klingscan/internal/rpc"
	"github.com/Klingon-tech/klingscan/internal/storage"
)

// Node is a fully-initialized klingscan daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db       storage.DB
	registry *registry.Registry

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a Node. It sets up the logger, storage,
// registry and RPC server but does not start listening. Call Start for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" && !cfg.Registry.InMemory {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "klingscan.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	logger.Info().
		Str("network", string(cfg.Network)).
		Int("ss58_prefix", cfg.Codec.SS58Prefix).
		Bool("inmemory", cfg.Registry.InMemory).
		Msg("Starting Klingscan")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Registry.InMemory {
		logger.Info().Msg("Registry kept in memory")
	} else {
		logger.Info().Str("path", cfg.RegistryDir()).Msg("Database opened")
	}

	// ── 3. Registry ─────────────────────────────────────────────────
	reg := registry.New(db)
	if cfg.Registry.Seed || cfg.Registry.Reseed {
		if err := reg.Seed(cfg.Registry.Reseed); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed registry: %w", err)
		}
	}
	networks, accounts, err := reg.Snapshot()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read registry: %w", err)
	}
	logger.Info().
		Int("networks", len(networks)).
		Int("accounts", len(accounts)).
		Msg("Registry ready")

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: reg,
		ctx:      ctx,
		cancel:   cancel,
	}

	// ── 4. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCEndpoint(), reg, cfg.RPC)
		n.rpcServer.SetCodecDefaults(uint16(cfg.Codec.SS58Prefix), cfg.BitcoinNetwork())
	}

	return n, nil
}

// Start binds the RPC listener.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	}

	n.logger.Info().Bool("rpc", n.rpcServer != nil).Msg("Node started successfully")
	return nil
}

// Stop shuts down the RPC server and closes storage.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Database close")
		}
	}

	n.logger.Info().Msg("Goodbye!")
}

// Done is closed once Stop has been called.
func (n *Node) Done() <-chan struct{} {
	return n.ctx.Done()
}

// RPCAddr returns the RPC listen address, or "" when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Registry returns the node's network and account registry.
func (n *Node) Registry() *registry.Registry {
	return n.registry
}
