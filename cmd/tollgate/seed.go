package main

import (
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/tollgate/app"
	"github.com/spf13/cobra"
)

func newSeedCmd(envFile *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert clients and principals from a YAML file",
		Long: "Reads clients and principals from YAML and upserts them into the store.\n" +
			"Client secrets and passwords are hashed; signature secrets are stored as written,\n" +
			"so {cipher} values from encrypt-secret stay encrypted at rest.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*envFile)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.ClientsFile
			}

			doc, found, err := app.ReadClientsFile(file)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("clients file %s does not exist", file)
			}

			if err := app.ConfigureSecrets(cfg); err != nil {
				return err
			}
			st, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := app.Seed(cmd.Context(), st, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d clients and %d principals into %s\n",
				res.Clients, res.Principals, cfg.DatabaseFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file to seed from (default $TOLLGATE_CLIENTS_FILE)")
	return cmd
}
