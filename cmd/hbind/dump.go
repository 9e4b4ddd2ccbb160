package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/driver"
	"hbind/internal/types"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <unit.toml>",
	Short: "Print the entity table of a unit with layouts, constants and classes",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().Bool("fields", false, "print the member layout of every record")
	dumpCmd.Flags().String("kind", "", "only print entities of this kind (record|enum|typedef|function|variable|macro|enumerator)")
	dumpCmd.Flags().Bool("skipped", false, "only print entities a generator would skip")
	dumpCmd.Flags().String("format", "table", "output format (table|json)")
}

func runDump(cmd *cobra.Command, args []string) error {
	showFields, err := cmd.Flags().GetBool("fields")
	if err != nil {
		return fmt.Errorf("failed to get fields flag: %w", err)
	}
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return fmt.Errorf("failed to get kind flag: %w", err)
	}
	skipped, err := cmd.Flags().GetBool("skipped")
	if err != nil {
		return fmt.Errorf("failed to get skipped flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	opts, err := driverOptions(cmd)
	if err != nil {
		return err
	}
	cleanup, err := instrument(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := driver.RunFile(cmd.Context(), args[0], opts)
	if err != nil {
		var dumped bool
		dumpTrace(cmd, &dumped)
		return err
	}

	var rows []driver.EntityResult
	for _, e := range res.Entities {
		if kind != "" && kindName(e.Kind) != kind {
			continue
		}
		if skipped && e.Class.Tag == classify.Supported {
			continue
		}
		rows = append(rows, e)
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	writeEntityTable(cmd.OutOrStdout(), res, rows, showFields)
	return nil
}

func kindName(k decls.Kind) string {
	if k == decls.KindEnumConstant {
		return "enumerator"
	}
	return k.String()
}

var (
	headerColor      = color.New(color.Bold)
	unsupportedColor = color.New(color.FgYellow)
	undeclaredColor  = color.New(color.FgRed)
)

// writeEntityTable prints one row per entity. Columns are padded by display
// width so that wide identifiers keep the table aligned.
func writeEntityTable(out io.Writer, res *driver.Result, rows []driver.EntityResult, showFields bool) {
	table := [][]string{{"KIND", "NAME", "CLASS", "DETAIL"}}
	for _, e := range rows {
		table = append(table, []string{kindName(e.Kind), e.Subject, e.Class.Tag.String(), entityDetail(&e)})
	}
	widths := make([]int, 3)
	for _, row := range table {
		for i := range widths {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	for r, row := range table {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(widths) {
				cell = runewidth.FillRight(cell, widths[i])
			}
			cells[i] = cell
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		switch {
		case r == 0:
			line = headerColor.Sprint(line)
		case rows[r-1].Class.Tag == classify.Unsupported:
			line = unsupportedColor.Sprint(line)
		case rows[r-1].Class.Tag == classify.Undeclared:
			line = undeclaredColor.Sprint(line)
		}
		fmt.Fprintln(out, line)
		if r > 0 && showFields && rows[r-1].Layout != nil {
			writeFields(out, res, &rows[r-1], widths[0]+2)
		}
	}
	c := res.Counts()
	fmt.Fprintf(out, "\n%d entities: %d supported, %d unsupported, %d undeclared\n",
		len(res.Entities), c.Supported, c.Unsupported, c.Undeclared)
}

func entityDetail(e *driver.EntityResult) string {
	switch {
	case e.Layout != nil:
		return fmt.Sprintf("size %d align %d", e.Layout.Size, e.Layout.Align)
	case e.Const != nil:
		return fmt.Sprintf("= %s (%s)", e.Const, e.Const.Type)
	case e.LayoutErr != nil:
		return e.LayoutErr.Error()
	case e.ConstErr != nil:
		return e.ConstErr.Error()
	case e.Class.Reason != "":
		return e.Class.Reason
	default:
		return e.Type
	}
}

func writeFields(out io.Writer, res *driver.Result, e *driver.EntityResult, indent int) {
	pad := strings.Repeat(" ", indent)
	width := 0
	for _, f := range e.Layout.Fields {
		width = max(width, runewidth.StringWidth(f.Name))
	}
	for _, f := range e.Layout.Fields {
		where := fmt.Sprintf("+%d", f.Offset)
		if f.Bitfield {
			where = fmt.Sprintf("+%d bit %d:%d", f.Offset, f.BitOffset, f.BitWidth)
		}
		label := ""
		if f.Type != types.NoTypeID {
			label = types.Label(res.Types, f.Type)
		}
		fmt.Fprintf(out, "%s%s  %-14s %s\n", pad, runewidth.FillRight(f.Name, width), where, label)
	}
}
