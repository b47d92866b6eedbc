package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"xinbound/internal/config"
	"xinbound/internal/db"
	"xinbound/internal/form"
	"xinbound/internal/keygen"
	"xinbound/internal/logger"
	"xinbound/internal/session"
	"xinbound/internal/store"
)

var cfgFile string
var verbose bool
var logFile string

var rootCmd = &cobra.Command{
	Use:           "xinbound",
	Short:         "Manage xray inbounds: edit, store, render and share them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose, logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (overwrites file)")
}

// app is what most commands need: the loaded config and an open store.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	store *store.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, db: database, store: store.New(database)}, nil
}

func (a *app) Close() {
	db.Close(a.db)
}

// keySource returns the panel endpoint when one is configured, else local
// derivation.
func (a *app) keySource() keygen.Source {
	k := a.cfg.Keygen
	if k.Endpoint == "" {
		return keygen.LocalSource{}
	}
	return keygen.NewRemoteSource(k.Endpoint, k.Timeout, k.Retries, k.Token)
}

func (a *app) editor() *session.Editor {
	return session.NewEditor(a.store, a.keySource(), form.Env{})
}

// serverAddress is the host placed in share links: the flag when given,
// the configured address otherwise.
func (a *app) serverAddress(override string) (string, error) {
	addr := override
	if addr == "" {
		addr = a.cfg.Server.Address
	}
	if addr == "" {
		return "", fmt.Errorf("no server address: set server.address or pass --address")
	}
	return config.NormalizeAddress(addr)
}

// applyParams overlays --param values on a plugin's params, turning numeric
// strings into ints.
func applyParams(params map[string]interface{}, overrides map[string]string) map[string]interface{} {
	if params == nil {
		params = make(map[string]interface{})
	}
	for k, v := range overrides {
		if intVal, err := strconv.Atoi(v); err == nil {
			params[k] = intVal
		} else if b, err := strconv.ParseBool(v); err == nil {
			params[k] = b
		} else {
			params[k] = v
		}
	}
	return params
}
