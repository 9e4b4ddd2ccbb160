package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"hbind/internal/target"
	"hbind/internal/types"
)

var targetsCmd = &cobra.Command{
	Use:   "targets [triple]",
	Short: "List known targets or describe one",
	Long:  `Without arguments, list the built-in target triples. With a triple, or with --target-file, print its ABI parameters.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			t, ok := target.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown target %q", args[0])
			}
			describeTarget(out, &t)
			return nil
		}
		opts, err := driverOptions(cmd)
		if err != nil {
			return err
		}
		if opts.Target != nil {
			describeTarget(out, opts.Target)
			return nil
		}
		for _, triple := range target.Presets() {
			fmt.Fprintln(out, triple)
		}
		return nil
	},
}

func describeTarget(out io.Writer, t *target.Target) {
	fmt.Fprintf(out, "%s\n", headerColor.Sprint(t.Triple))
	fmt.Fprintf(out, "  pointer        %d/%d\n", t.PtrSize, t.PtrAlign)
	fmt.Fprintf(out, "  endian         %s\n", t.Endian)
	fmt.Fprintf(out, "  char signed    %t\n", t.CharSigned)
	fmt.Fprintf(out, "  bit-fields     %s\n", t.Bitfields)
	fmt.Fprintf(out, "  long double    %s\n", t.LongDouble)
	if t.MinRecordAlign > 1 {
		fmt.Fprintf(out, "  min align      %d\n", t.MinRecordAlign)
	}
	if t.DefaultPack > 0 {
		fmt.Fprintf(out, "  default pack   %d\n", t.DefaultPack)
	}
	prims := make([]types.Prim, 0, len(t.Prims))
	for p := range t.Prims {
		prims = append(prims, p)
	}
	sort.Slice(prims, func(i, j int) bool { return prims[i] < prims[j] })
	for _, p := range prims {
		info := t.Prims[p]
		fmt.Fprintf(out, "  %-22s %d/%d\n", p, info.Size, info.Align)
	}
}
