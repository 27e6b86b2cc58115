package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/tollgate/app"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/spf13/cobra"
)

func newEncryptSecretCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt-secret",
		Short: "Encrypt a secret read from stdin with the master key",
		Long: "Prints the {cipher} form of the secret on stdin. Paste the output into the\n" +
			"signature_secret or encryption_secret of a client.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*envFile)
			if err != nil {
				return err
			}
			if err := app.ConfigureSecrets(cfg); err != nil {
				return err
			}
			// A key that dies with this process would make the output useless.
			cryptox.AllowEphemeralMasterKey(false)

			return encryptSecret(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func encryptSecret(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	// PEM keys keep their inner newlines, only the trailing one goes.
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return errors.New("empty secret on stdin")
	}

	sealed, err := cryptox.SealSecret([]byte(secret))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sealed)
	return err
}

func newClientSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "client-secret",
		Short: "Generate a random secret for a confidential client",
		Long: "Prints a 256-bit base64url secret. Put it in the client_secret of a client;\n" +
			"seed stores only its hash.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientSecret(cmd.OutOrStdout())
		},
	}
}

func clientSecret(out io.Writer) error {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, secret)
	return err
}
