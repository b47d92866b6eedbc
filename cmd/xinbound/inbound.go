package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"xinbound/internal/form"
	"xinbound/internal/inbound"
	"xinbound/internal/logger"
	"xinbound/internal/session"
	"xinbound/internal/xray"
	"xinbound/internal/xray/sharelink"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an inbound",
	Long:  `Create an inbound from flags. Unset fields take editor defaults: vless over tcp, a random port and a fresh client id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return submit(cmd, a, a.editor().Create())
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an inbound",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return submit(cmd, a, a.editor().Edit(rec))
	},
}

func submit(cmd *cobra.Command, a *app, s *session.Session) error {
	ctx := cmd.Context()

	s.Update(func(fm *form.FieldModel) { applyFieldFlags(cmd, fm) })

	kind, ok, err := securityFlag(cmd)
	if err != nil {
		return err
	}
	if ok {
		if err := s.SetSecurity(kind); err != nil {
			return err
		}
	}
	if regen, _ := cmd.Flags().GetBool("regen-keys"); regen {
		if err := s.RegenerateKeys(ctx); err != nil {
			return err
		}
	}

	fm := s.Model()
	if port, err := strconv.Atoi(fm.Port); err == nil {
		if err := xray.CheckPortFree(fm.Listen, port); err != nil {
			logger.Log.Warnf("Port %d looks busy on this host: %v", port, err)
		}
	}

	rec, err := s.Submit(ctx)
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid %s: %s", ve.Field, ve.Message)
		}
		return err
	}

	fmt.Println(rec.ID)
	if addr, err := a.serverAddress(""); err == nil {
		if link, err := sharelink.Encode(rec, addr); err == nil {
			fmt.Println(link)
		}
	}
	return nil
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored inbounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.store.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tREMARK\tPROTOCOL\tPORT\tTRANSPORT\tENABLED\tTRAFFIC\tEXPIRY")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s+%s\t%t\t%s\t%s\n",
				rec.ID, rec.Remark, rec.Protocol(), rec.Port,
				rec.Stream.Network(), rec.Stream.SecurityKind(), rec.Enable,
				traffic(rec), expiry(rec))
		}
		return w.Flush()
	},
}

func traffic(rec *inbound.Record) string {
	used := formatBytes(rec.Up + rec.Down)
	if rec.Total == 0 {
		return used + " / ∞"
	}
	return used + " / " + formatBytes(rec.Total)
}

func expiry(rec *inbound.Record) string {
	if rec.Expiry == 0 {
		return "never"
	}
	return time.UnixMilli(rec.Expiry).UTC().Format("2006-01-02")
}

func toggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Set enable=%t on an inbound", enabled),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.editor().Toggle(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			logger.Log.Infof("Inbound %s enable=%t", args[0], enabled)
			return nil
		},
	}
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an inbound",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.editor().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Log.Infof("🗑️  Deleted inbound %s", args[0])
		return nil
	},
}

func init() {
	addFieldFlags(addCmd)
	addFieldFlags(editCmd)
	rootCmd.AddCommand(addCmd, editCmd, listCmd, deleteCmd,
		toggleCmd("enable", true), toggleCmd("disable", false))
}
