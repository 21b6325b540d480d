package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/waforensic/internal/integrity"
	"github.com/spf13/cobra"
)

func hashCommand() *cobra.Command {
	var expect, algo, compare string
	hashCmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print MD5, SHA-256 and SHA-512 digests of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a := integrity.Algorithm(algo)
			switch {
			case expect != "":
				if len(args) != 1 {
					return fmt.Errorf("--expect takes exactly one file")
				}
				ok, err := integrity.Verify(args[0], expect, a)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %s mismatch", args[0], a)
				}
				fmt.Fprintf(out, "%s: OK\n", args[0])
				return nil
			case compare != "":
				if len(args) != 1 {
					return fmt.Errorf("--compare takes exactly one file")
				}
				same, err := integrity.Compare(args[0], compare, a)
				if err != nil {
					return err
				}
				if !same {
					return fmt.Errorf("%s and %s differ", args[0], compare)
				}
				fmt.Fprintf(out, "%s and %s are identical (%s)\n", args[0], compare, a)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, arg := range args {
				d, err := integrity.HashFile(arg)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\tsize\t%s (%d bytes)\n", arg, humanize.Bytes(uint64(d.Size)), d.Size)
				fmt.Fprintf(tw, "\tmd5\t%s\n", d.MD5)
				fmt.Fprintf(tw, "\tsha256\t%s\n", d.SHA256)
				fmt.Fprintf(tw, "\tsha512\t%s\n", d.SHA512)
			}
			return tw.Flush()
		},
	}
	f := hashCmd.Flags()
	f.StringVar(&expect, "expect", "", "verify the file against this digest")
	f.StringVar(&compare, "compare", "", "compare the file with another file")
	f.StringVar(&algo, "algo", string(integrity.SHA256), "digest used by --expect and --compare: md5, sha256, sha512")
	return hashCmd
}
