package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/facet/vm/wire"
)

func newDisasmCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm FILE",
		Short: "Print a listing of a program bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, p, err := wire.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "; sha256 %x\n", b.Hash)
			fmt.Fprint(cmd.OutOrStdout(), p.DisassembleWithName(b.Name))
			return nil
		},
	}
}
