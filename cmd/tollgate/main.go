package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("tollgate: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	serve := newServeCmd(&envFile)

	rootCmd := &cobra.Command{
		Use:           "tollgate",
		Short:         "Multi-tenant token issuance and verification service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "dotenv file overlaid on the environment")

	rootCmd.AddCommand(
		serve,
		newSeedCmd(&envFile),
		newEncryptSecretCmd(&envFile),
		newClientSecretCmd(),
		newKeygenCmd(),
	)
	return rootCmd
}
