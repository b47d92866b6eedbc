package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"xinbound/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database statistics",
	Long:  `Displays a dashboard of the stored inbounds: counts, file sizes and protocol, transport and security breakdowns.`,
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
		sum := store.Summarize(recs)

		dbSize := getFileSize(a.cfg.Database.Path)
		walSize := getFileSize(a.cfg.Database.Path + "-wal")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		fmt.Println("\n📊 \033[1mXINBOUND STATUS DASHBOARD\033[0m")
		fmt.Println("────────────────────────────────────────")

		fmt.Fprintln(w, "\033[1;36m[ SYSTEM ]\033[0m\t")
		fmt.Fprintf(w, "  Database Path:\t%s\n", a.cfg.Database.Path)
		fmt.Fprintf(w, "  DB Size:\t%s\n", formatBytes(dbSize))
		if walSize > 0 {
			fmt.Fprintf(w, "  WAL Size:\t%s (pending checkpoint)\n", formatBytes(walSize))
		}
		fmt.Fprintf(w, "  Server Address:\t%s\n", orDash(a.cfg.Server.Address))
		fmt.Fprintf(w, "  Inbounds:\t%d (%d enabled)\n", sum.Total, sum.Enabled)
		fmt.Fprintln(w, "\t")

		section(w, "PROTOCOLS", sum.ByProtocol)
		section(w, "TRANSPORTS", sum.ByNetwork)
		section(w, "SECURITY", sum.BySecurity)

		w.Flush()
		fmt.Println("")
		return nil
	},
}

func section[K ~string](w *tabwriter.Writer, title string, counts map[K]int) {
	fmt.Fprintf(w, "\033[1;36m[ %s ]\033[0m\t\n", title)
	if len(counts) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s:\t%d\n", k, counts[K(k)])
	}
	fmt.Fprintln(w, "\t")
}

// Helpers

func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
