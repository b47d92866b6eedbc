package main

import (
	"github.com/spf13/cobra"

	"xinbound/internal/logger"
	"xinbound/internal/publishers"
)

var publishParams map[string]string

var publishCmd = &cobra.Command{
	Use:   "publish [publisher_names...]",
	Short: "Publish a subscription of the enabled inbounds",
	Long:  `Run all publishers or specific ones. Use --param to override publisher configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) > 0 {
			a.cfg.FilterPublishers(args)
		}
		if len(a.cfg.Publishers) == 0 {
			logger.Log.Warn("No publishers matched.")
			return nil
		}

		addr, err := a.serverAddress("")
		if err != nil {
			return err
		}
		recs, err := a.store.List(ctx)
		if err != nil {
			return err
		}

		for _, pubCfg := range a.cfg.Publishers {
			logger.Log.Infof("📨 Running Publisher: %s (%s)...", pubCfg.Name, pubCfg.Type)

			plugin, err := publishers.Get(pubCfg.Type)
			if err != nil {
				logger.Log.Warnf("Plugin not found: %v", err)
				continue
			}

			params := applyParams(pubCfg.Params, publishParams)
			params[publishers.AddressKey] = addr

			if err := plugin.Publish(ctx, publishers.FilterProtocols(recs, pubCfg.Protocols), params); err != nil {
				logger.Log.Errorf("Publish failed: %v", err)
			} else {
				logger.Log.Info("✅ Published successfully.")
			}
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().StringToStringVarP(&publishParams, "param", "p", nil, "Override publisher params (e.g. -p output=sub.txt)")
	rootCmd.AddCommand(publishCmd)
}
