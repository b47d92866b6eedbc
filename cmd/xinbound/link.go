package main

import (
	"fmt"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"xinbound/internal/xray/sharelink"
)

var (
	linkAddress string
	linkQR      bool
	linkQRFile  string
)

var linkCmd = &cobra.Command{
	Use:   "link <id>",
	Short: "Print the share link of an inbound",
	Long:  `Print the client share link. vless and trojan inbounds only; --qr draws it in the terminal, --qr-file writes a PNG.`,
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
		addr, err := a.serverAddress(linkAddress)
		if err != nil {
			return err
		}
		link, err := sharelink.Encode(rec, addr)
		if err != nil {
			return err
		}
		fmt.Println(link)

		if linkQR {
			qr, err := qrcode.New(link, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("failed to render QR code: %w", err)
			}
			fmt.Print(qr.ToSmallString(false))
		}
		if linkQRFile != "" {
			if err := qrcode.WriteFile(link, qrcode.Medium, 256, linkQRFile); err != nil {
				return fmt.Errorf("failed to write QR code: %w", err)
			}
		}
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <link>",
	Short: "Show the inbound a share link describes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, addr, err := sharelink.Decode(args[0])
		if err != nil {
			return err
		}
		out, err := jsonIndent(rec)
		if err != nil {
			return err
		}
		fmt.Printf("# server %s\n%s\n", addr, out)
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkAddress, "address", "", "Server address (default server.address)")
	linkCmd.Flags().BoolVar(&linkQR, "qr", false, "Draw a QR code in the terminal")
	linkCmd.Flags().StringVar(&linkQRFile, "qr-file", "", "Write a QR code PNG to this path")
	rootCmd.AddCommand(linkCmd, decodeCmd)
}
