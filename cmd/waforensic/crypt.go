package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/matheus3301/waforensic/internal/crypt"
	"github.com/matheus3301/waforensic/internal/integrity"
	"github.com/matheus3301/waforensic/internal/keyfile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func detectCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Print the container type of backup files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, arg := range args {
				if _, err := os.Stat(arg); err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", arg, crypt.Detect(arg))
			}
			return tw.Flush()
		},
	}
}

func decryptCommand(g *globalFlags) *cobra.Command {
	var input, keyPath, output string
	decryptCmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a crypt12/14/15 backup into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.consoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var key keyfile.Key
			if crypt.Detect(input) != crypt.Unencrypted {
				if keyPath == "" {
					return errors.New("--key is required for encrypted backups")
				}
				if key, err = keyfile.Load(keyPath); err != nil {
					return err
				}
			}
			res, err := crypt.New(key, logger).Decrypt(input, output)
			if err != nil {
				return err
			}
			d, err := integrity.HashFile(res.OutputPath)
			if err != nil {
				return err
			}
			logger.Info("plaintext database written",
				zap.String("path", res.OutputPath),
				zap.String("type", string(res.Type)),
				zap.String("sha256", d.SHA256))
			fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
			return nil
		},
	}
	decryptCmd.Flags().StringVarP(&input, "input", "i", "", "encrypted backup file")
	decryptCmd.Flags().StringVarP(&keyPath, "key", "k", "", "key file")
	decryptCmd.Flags().StringVarP(&output, "output", "o", "", "output database (default next to the input)")
	_ = decryptCmd.MarkFlagRequired("input")
	return decryptCmd
}

func reencryptCommand(g *globalFlags) *cobra.Command {
	var input, keyPath, reference, output string
	reencryptCmd := &cobra.Command{
		Use:   "reencrypt",
		Short: "Encrypt a plaintext database into a crypt12 backup framed like a reference backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.consoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			key, err := keyfile.Load(keyPath)
			if err != nil {
				return err
			}
			if err := crypt.New(key, logger).EncryptLike(input, output, reference); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	f := reencryptCmd.Flags()
	f.StringVarP(&input, "input", "i", "", "plaintext database")
	f.StringVarP(&keyPath, "key", "k", "", "key file")
	f.StringVar(&reference, "reference", "", "crypt12 backup whose header is reused")
	f.StringVarP(&output, "output", "o", "", "crypt12 file to write")
	for _, name := range []string{"input", "key", "reference", "output"} {
		_ = reencryptCmd.MarkFlagRequired(name)
	}
	return reencryptCmd
}
