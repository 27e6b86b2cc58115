package main

import (
	"log"

	"github.com/aussiebroadwan/tollgate/internal/gateway/app"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Edge gateway that authorizes requests against tollgate",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(envFile)
			if err != nil {
				return err
			}

			application, err := app.New(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "dotenv file overlaid on the environment")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}
