// Command waforensic decrypts and analyses WhatsApp message database backups.
//
//	waforensic detect msgstore.db.crypt14
//	waforensic decrypt --input msgstore.db.crypt14 --key key
//	waforensic hash msgstore.db
//	waforensic parse --msgstore msgstore.db --wa wa.db --format html,json
//	waforensic full --source file --input /sdcard/WhatsApp --key key
//	waforensic full --source adb
//	waforensic search --case case-20240101-120000 "meeting"
//	waforensic verify --case case-20240101-120000
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "waforensic",
		Short:         "Decrypt and analyse WhatsApp backups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.register(rootCmd)
	rootCmd.AddCommand(
		detectCommand(g),
		decryptCommand(g),
		reencryptCommand(g),
		hashCommand(),
		parseCommand(g),
		fullCommand(g),
		searchCommand(g),
		verifyCommand(g),
		configCommand(g),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
