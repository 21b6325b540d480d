package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/waforensic/internal/acquire"
	"github.com/matheus3301/waforensic/internal/config"
	"github.com/matheus3301/waforensic/internal/msgstore"
	"github.com/matheus3301/waforensic/internal/pipeline"
	"github.com/matheus3301/waforensic/internal/store"
	"github.com/matheus3301/waforensic/internal/workspace"
	"github.com/spf13/cobra"
)

// extractFlags bound a parse.
type extractFlags struct {
	formats      []string
	chatLimit    int
	messageLimit int
}

func (e *extractFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&e.formats, "format", nil, "report formats: html, json, csv or all (default from config)")
	f.IntVar(&e.chatLimit, "chat-limit", -1, "maximum chats to extract, 0 for all (default from config)")
	f.IntVar(&e.messageLimit, "message-limit", -1, "maximum messages per chat, 0 for all (default from config)")
}

// apply writes the flags over cfg.
func (e *extractFlags) apply(cfg *config.Config) {
	cfg.Formats = formatFlag(e.formats, cfg.Formats)
	if e.chatLimit >= 0 {
		cfg.Parse.ChatLimit = e.chatLimit
	}
	if e.messageLimit >= 0 {
		cfg.Parse.MessageLimit = e.messageLimit
	}
}

func extractOptions(cfg *config.Config) msgstore.ExtractOptions {
	return msgstore.ExtractOptions{ChatLimit: cfg.Parse.ChatLimit, MessageLimit: cfg.Parse.MessageLimit}
}

func parseCommand(g *globalFlags) *cobra.Command {
	var msgstorePath, waPath string
	var ef extractFlags
	var mf metadataFlags
	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a plaintext message database into the case archive and reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			ef.apply(cfg)
			return withCase(cmd.Context(), g, cfg, func(env *caseEnv) error {
				meta := mf.metadata(cfg, env.cas.ID)
				res, err := env.runner.Parse(cmd.Context(), pipeline.ParseOptions{
					Database: msgstorePath,
					Contacts: waPath,
					Formats:  cfg.Formats,
					Meta:     meta,
					Extract:  extractOptions(cfg),
					Actor:    meta.Examiner,
				})
				if res != nil {
					printResult(cmd.OutOrStdout(), env.cas, res)
				}
				return err
			})
		},
	}
	parseCmd.Flags().StringVarP(&msgstorePath, "msgstore", "m", "", "plaintext msgstore.db")
	parseCmd.Flags().StringVarP(&waPath, "wa", "w", "", "contacts database (wa.db)")
	_ = parseCmd.MarkFlagRequired("msgstore")
	ef.register(parseCmd)
	mf.register(parseCmd)
	return parseCmd
}

func fullCommand(g *globalFlags) *cobra.Command {
	var source, input, keyPath, waPath string
	var ef extractFlags
	var mf metadataFlags
	fullCmd := &cobra.Command{
		Use:   "full",
		Short: "Acquire, decrypt, parse, archive and report in one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != acquire.SourceFile && source != acquire.SourceADB {
				return fmt.Errorf("--source must be %s or %s", acquire.SourceFile, acquire.SourceADB)
			}
			if source == acquire.SourceFile && input == "" {
				return errors.New("--input is required with --source file")
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			ef.apply(cfg)
			return withCase(cmd.Context(), g, cfg, func(env *caseEnv) error {
				meta := mf.metadata(cfg, env.cas.ID)
				res, err := env.runner.Run(cmd.Context(), pipeline.Options{
					Source:   source,
					Input:    input,
					Key:      keyPath,
					Contacts: waPath,
					Formats:  cfg.Formats,
					Meta:     meta,
					Extract:  extractOptions(cfg),
					Actor:    meta.Examiner,
				})
				if res != nil {
					printResult(cmd.OutOrStdout(), env.cas, res)
				}
				return err
			})
		},
	}
	f := fullCmd.Flags()
	f.StringVarP(&source, "source", "s", acquire.SourceFile, "acquisition source: file or adb")
	f.StringVarP(&input, "input", "i", "", "backup file or directory; device serial for adb")
	f.StringVarP(&keyPath, "key", "k", "", "key file (default: acquired key)")
	f.StringVarP(&waPath, "wa", "w", "", "contacts database (default: acquired wa.db)")
	ef.register(fullCmd)
	mf.register(fullCmd)
	return fullCmd
}

func searchCommand(g *globalFlags) *cobra.Command {
	var chatJID string
	var limit int
	searchCmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search archived message text of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := requireCase(g, cfg); err != nil {
				return err
			}
			return withCase(cmd.Context(), g, cfg, func(env *caseEnv) error {
				results, err := env.db.SearchMessages(args[0], chatJID, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "No messages found.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, r := range results {
					from := r.Message.SenderJID
					if r.Message.FromMe {
						from = "me"
					}
					when := time.UnixMilli(r.Message.Timestamp).UTC().Format(time.DateTime)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", when, r.Message.ChatJID, from, clip(r.Snippet, 120))
				}
				return tw.Flush()
			})
		},
	}
	searchCmd.Flags().StringVar(&chatJID, "chat", "", "restrict to one chat jid")
	searchCmd.Flags().IntVar(&limit, "limit", 50, "maximum results")
	return searchCmd
}

func verifyCommand(g *globalFlags) *cobra.Command {
	var actor string
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every evidence item of a case and extend its chain of custody",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := requireCase(g, cfg); err != nil {
				return err
			}
			return withCase(cmd.Context(), g, cfg, func(env *caseEnv) error {
				if actor == "" {
					actor = cfg.Case.Examiner
				}
				v, err := env.runner.VerifyEvidence(cmd.Context(), actor)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "STATUS\tKIND\tSHA256\tPATH")
				for _, c := range v.Checks {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Action, c.Evidence.Kind, shortHash(c.Evidence.SHA256), c.Evidence.Path)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if !v.OK() {
					return fmt.Errorf("%d mismatched, %d missing evidence items",
						v.Count(store.ActionMismatch), v.Count(store.ActionMissing))
				}
				return nil
			})
		},
	}
	verifyCmd.Flags().StringVar(&actor, "actor", "", "name recorded in custody events (default: configured examiner)")
	return verifyCmd
}

// requireCase fails unless --case names an existing case archive.
func requireCase(g *globalFlags, cfg *config.Config) error {
	if g.caseID == "" {
		return errors.New("--case is required")
	}
	c, err := workspace.Open(cfg.OutputDir, g.caseID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(c.ArchivePath()); err != nil {
		return fmt.Errorf("case %s has no archive: %w", c.ID, err)
	}
	return nil
}

func configCommand(g *globalFlags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := g.path()
			if _, err := os.Stat(p); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", p)
			}
			if err := config.Save(p, config.Default()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}
