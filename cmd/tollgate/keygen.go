package main

import (
	"crypto/elliptic"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var (
		alg     string
		rsaBits int
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate signature key material for a client",
		Long: "Prints a PEM private key for the RS, ES and EdDSA families, or a random\n" +
			"base64url secret for the HS family.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return keygen(cmd.OutOrStdout(), alg, rsaBits)
		},
	}
	cmd.Flags().StringVar(&alg, "alg", string(jwtx.ES256), "signature algorithm")
	cmd.Flags().IntVar(&rsaBits, "rsa-bits", 2048, "RSA modulus size")
	return cmd
}

func keygen(out io.Writer, name string, rsaBits int) error {
	alg, err := jwtx.ParseAlgorithm(name)
	if err != nil {
		return err
	}

	var key []byte
	switch alg {
	case jwtx.HS256, jwtx.HS384, jwtx.HS512:
		secret, err := cryptox.GenerateHMACSecret(64)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, base64.RawURLEncoding.EncodeToString(secret))
		return err
	case jwtx.RS256, jwtx.RS384, jwtx.RS512:
		key, err = cryptox.GenerateRSAKey(rsaBits)
	case jwtx.ES256:
		key, err = cryptox.GenerateECDSAKey(elliptic.P256())
	case jwtx.ES384:
		key, err = cryptox.GenerateECDSAKey(elliptic.P384())
	case jwtx.ES512:
		key, err = cryptox.GenerateECDSAKey(elliptic.P521())
	case jwtx.EdDSA:
		key, err = cryptox.GenerateEd25519Key()
	default:
		return fmt.Errorf("%w: %s", jwtx.ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return err
	}
	_, err = out.Write(key)
	return err
}
