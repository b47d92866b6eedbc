package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"xinbound/internal/collectors"
	"xinbound/internal/form"
	"xinbound/internal/keygen"
	"xinbound/internal/logger"
	"xinbound/internal/metrics"
	"xinbound/internal/store"
	"xinbound/internal/xray/sharelink"
)

var (
	importParams   map[string]string
	importDisabled bool
)

var importCmd = &cobra.Command{
	Use:   "import [collector_names...]",
	Short: "Import inbounds from share-link sources",
	Long:  `Run all collectors defined in config, or specific ones by name, and store every new vless or trojan link as an inbound. Use --param to override collector parameters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) > 0 {
			a.cfg.FilterCollectors(args)
		}
		if len(a.cfg.Collectors) == 0 {
			logger.Log.Warn("No collectors matched the provided names.")
			return nil
		}

		hashes, err := a.store.Hashes(ctx)
		if err != nil {
			return err
		}
		report := metrics.New()

		for _, cCfg := range a.cfg.Collectors {
			logger.Log.Infof("🏃 Running collector: %s (%s)...", cCfg.Name, cCfg.Type)

			collector, err := collectors.Get(cCfg.Type)
			if err != nil {
				logger.Log.Warnf("Skipping: %v", err)
				continue
			}
			links, err := collector.Collect(ctx, applyParams(cCfg.Params, importParams))
			if err != nil {
				logger.Log.Errorf("Error running collector: %v", err)
				continue
			}

			bar := newBar(len(links), "[cyan]Importing...[reset]")
			for _, raw := range links {
				importLink(cmd, a, report, hashes, cCfg.Name, raw)
				bar.Add(1)
			}
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}

		report.PrintReport(os.Stdout)
		logger.Log.Infof("✅ Imported %d inbounds.", report.Count(metrics.Imported))
		return nil
	},
}

func importLink(cmd *cobra.Command, a *app, report *metrics.Collector, hashes map[string]bool, source, raw string) {
	rec, _, err := sharelink.Decode(raw)
	if err != nil {
		logger.Log.Debugf("Skipping link from %s: %v", source, err)
		report.RecordError(source, err)
		return
	}

	id, err := keygen.NewUUID(rand.Reader)
	if err != nil {
		report.RecordError(source, metrics.StorageError(err))
		return
	}
	rec.ID = id
	rec.Enable = !importDisabled
	if rec.Remark == "" {
		rec.Remark = fmt.Sprintf("%s-%d", source, rec.Port)
	}

	if err := form.Validate(form.FromRecord(rec, form.Env{})); err != nil {
		report.RecordError(source, err)
		return
	}

	h := store.Identity(rec)
	if hashes[h] {
		report.Record(source, metrics.Duplicate)
		return
	}

	if err := a.store.CreateFrom(cmd.Context(), rec, source); err != nil {
		if !errors.Is(err, store.ErrPortInUse) {
			err = metrics.StorageError(err)
		}
		report.RecordError(source, err)
		return
	}
	hashes[h] = true
	report.Record(source, metrics.Imported)
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func init() {
	importCmd.Flags().StringToStringVarP(&importParams, "param", "p", nil, "Override collector params")
	importCmd.Flags().BoolVar(&importDisabled, "disabled", false, "Store imported inbounds disabled")
	rootCmd.AddCommand(importCmd)
}
