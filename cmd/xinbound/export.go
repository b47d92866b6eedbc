package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"xinbound/internal/inbound"
	"xinbound/internal/logger"
	"xinbound/internal/xray"
)

var exportOut string

func (a *app) render(cmd *cobra.Command) (*xray.ServerConfig, []*inbound.Record, error) {
	recs, err := a.store.List(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	cfg := xray.Render(recs, xray.ServerOptions{
		LogDir:  a.cfg.Server.LogDir,
		APIPort: a.cfg.Server.APIPort,
	})
	return cfg, recs, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the xray server config for the enabled inbounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, _, err := a.render(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.JSON()
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = a.cfg.Server.ConfigPath
		}
		if out == "-" {
			_, err := os.Stdout.Write(append(data, '\n'))
			return err
		}

		if dir := a.cfg.Server.LogDir; dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create log dir: %w", err)
			}
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logger.Log.Infof("💾 Wrote %d inbounds to %s", len(cfg.Inbounds)-1, out)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that xray-core accepts every stored inbound",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, recs, err := a.render(cmd)
		if err != nil {
			return err
		}

		errs := xray.CheckRecords(recs)
		for _, e := range errs {
			logger.Log.Errorf("❌ %v", e)
		}
		if err := xray.Verify(cfg); err != nil {
			return fmt.Errorf("server config rejected: %w", err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d inbounds rejected", len(errs), len(recs))
		}
		logger.Log.Infof("✅ %d inbounds accepted by xray-core.", len(recs))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run xray-core in-process with the enabled inbounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		cfg, _, err := a.render(cmd)
		logDir := a.cfg.Server.LogDir
		a.Close()
		if err != nil {
			return err
		}
		if logDir != "" {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return fmt.Errorf("failed to create log dir: %w", err)
			}
		}

		instance, err := xray.Start(cfg)
		if err != nil {
			return fmt.Errorf("failed to start xray: %w", err)
		}
		defer instance.Close()

		logger.Log.Infof("🚀 Serving %d inbounds. Press Ctrl+C to stop.", len(cfg.Inbounds)-1)
		<-cmd.Context().Done()
		logger.Log.Info("Shutting down...")
		return nil
	},
}

func jsonIndent(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path, - for stdout (default server.config_path)")
	rootCmd.AddCommand(exportCmd, verifyCmd, serveCmd)
}
