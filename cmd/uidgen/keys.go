package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/haukened/uidgen/internal/cryptobox"
	"github.com/spf13/cobra"
)

// openBox loads (or, when create is set, creates) the cipher key.
func openBox(path string, create bool, stderr io.Writer) (*cryptobox.Box, error) {
	var (
		key []byte
		err error
	)
	if create {
		var created bool
		key, created, err = cryptobox.EnsureKey(path)
		if created {
			fmt.Fprintf(stderr, "created cipher key %s\n", path)
		}
	} else {
		key, err = cryptobox.LoadKey(path)
	}
	if err != nil {
		return nil, withExit(exitCredentials, err)
	}
	box, err := cryptobox.New(key)
	if err != nil {
		return nil, withExit(exitCredentials, err)
	}
	return box, nil
}

func newEncryptCmd(resolve configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <text>",
		Short: "Encrypt a clear text token for the credentials file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve()
			if err != nil {
				return err
			}
			box, err := openBox(cfg.KeyFile, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ct, err := box.Encrypt(args[0])
			if err != nil {
				return withExit(exitCredentials, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", args[0], ct)
			return nil
		},
	}
}

func newGenerateCmd(resolve configFunc) *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new random bearer token and its encrypted form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve()
			if err != nil {
				return err
			}
			box, err := openBox(cfg.KeyFile, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			token, err := cryptobox.GenerateToken(length)
			if err != nil {
				return err
			}
			ct, err := box.Encrypt(token)
			if err != nil {
				return withExit(exitCredentials, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%q = %q\n", token, ct)
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", cryptobox.DefaultTokenLength, "token length in characters")
	return cmd
}

func newInitKeyCmd(resolve configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "init-key",
		Short: "Create the cipher key file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve()
			if err != nil {
				return err
			}
			_, created, err := cryptobox.EnsureKey(cfg.KeyFile)
			if err != nil {
				return withExit(exitCredentials, err)
			}
			if created {
				slog.Info("initialized cipher key", "domain", "cryptobox", "path", cfg.KeyFile)
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", cfg.KeyFile)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", cfg.KeyFile)
			return nil
		},
	}
}
