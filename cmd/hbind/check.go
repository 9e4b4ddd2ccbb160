package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hbind/internal/diag"
	"hbind/internal/diagfmt"
	"hbind/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit.toml>...",
	Short: "Check declaration units and report skipped declarations",
	Long:  `Run every semantic pass over each unit and print its diagnostics. Units are independent and run in parallel.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	checkCmd.Flags().Int("units", 0, "max units checked in parallel (0=auto)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("no-info", false, "hide informational diagnostics")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
}

// runCheck executes the "check" command and exits with status 1 when any
// unit failed to load or produced errors.
func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	units, err := cmd.Flags().GetInt("units")
	if err != nil {
		return fmt.Errorf("failed to get units flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	noInfo, err := cmd.Flags().GetBool("no-info")
	if err != nil {
		return fmt.Errorf("failed to get no-info flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	quiet, err := flagBool(cmd, "quiet")
	if err != nil {
		return err
	}
	showTimings, err := flagBool(cmd, "timings")
	if err != nil {
		return err
	}
	switch format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	live, err := wantProgressView(uiFlag, format, quiet, isTerminal(os.Stdout))
	if err != nil {
		return err
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

	req := &pipeline.CheckRequest{Files: args, Units: units, Options: opts}
	var results []pipeline.UnitResult
	if live {
		results, err = runCheckWithUI(cmd.Context(), "checking", req)
	} else {
		results, err = pipeline.Check(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	exit := 0
	dumped := false
	jsonOut := make([]diagfmt.DiagnosticsOutput, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			exit = 1
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.File, r.Err)
			dumpTrace(cmd, &dumped)
			continue
		}
		bag := r.Result.Diagnostics
		if bag.HasErrors() || (warningsAsErrors && bag.HasWarnings()) {
			exit = 1
		}
		switch format {
		case "pretty":
			prettyOpts := diagfmt.PrettyOpts{
				Color:     useColor(),
				PathMode:  pathMode(fullPath),
				ShowNotes: withNotes,
			}
			if noInfo {
				prettyOpts.MinSeverity = uint8(diag.SevWarning)
			}
			if len(results) > 1 && bag.Len() > 0 {
				fmt.Fprintf(out, "== %s\n", r.File)
			}
			if err := diagfmt.Pretty(out, bag, r.Result.FileSet, prettyOpts); err != nil {
				return err
			}
			if !quiet {
				if err := diagfmt.Summary(out, bag, prettyOpts); err != nil {
					return err
				}
			}
		case "short":
			items := bag.Items()
			if noInfo {
				items = dropInfo(items)
			}
			if s := diag.FormatGolden(items, r.Result.FileSet, withNotes); s != "" {
				fmt.Fprintln(out, s)
			}
			if n := bag.Dropped(); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d more diagnostics not shown\n", r.File, n)
			}
		case "json":
			jsonOut = append(jsonOut, diagfmt.BuildDiagnosticsOutput(r.Result.Unit, bag, r.Result.FileSet, diagfmt.JSONOpts{
				PathMode:     pathMode(fullPath),
				IncludeNotes: withNotes,
			}))
		}
		if showTimings {
			printStageTimings(cmd.ErrOrStderr(), r.File, r.Timings)
		}
	}
	if format == "json" {
		if err := writeJSON(out, jsonOut); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}
	if exit != 0 {
		return &exitError{code: exit}
	}
	return nil
}

func dropInfo(items []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(items))
	for _, d := range items {
		if d.Severity > diag.SevInfo {
			out = append(out, d)
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
