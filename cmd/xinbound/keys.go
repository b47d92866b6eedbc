package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"xinbound/internal/keygen"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a reality key pair, short id and client uuid",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		kp, err := a.keySource().GenerateKeyPair(cmd.Context())
		if err != nil {
			return err
		}
		sid, err := keygen.NewShortID(rand.Reader)
		if err != nil {
			return err
		}
		id, err := keygen.NewUUID(rand.Reader)
		if err != nil {
			return err
		}

		fmt.Printf("Private key: %s\n", kp.PrivateKey)
		fmt.Printf("Public key:  %s\n", kp.PublicKey)
		fmt.Printf("Short id:    %s\n", sid)
		fmt.Printf("UUID:        %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
