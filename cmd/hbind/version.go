package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hbind/internal/target"
	"hbind/internal/version"
)

// versionReport is what "hbind version" prints. Targets lists the built-in
// ABI presets units can name.
type versionReport struct {
	Tool    string        `json:"tool"`
	Build   version.Build `json:"build"`
	Targets []string      `json:"targets,omitempty"`
	Default string        `json:"default_target,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show hbind build metadata and built-in targets",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include the commit the binary was built from")
	versionCmd.Flags().Bool("date", false, "include the build or commit date")
	versionCmd.Flags().Bool("full", false, "include everything, built-in targets too")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	full, err := flagBool(cmd, "full")
	if err != nil {
		return err
	}
	showHash, err := flagBool(cmd, "hash")
	if err != nil {
		return err
	}
	showDate, err := flagBool(cmd, "date")
	if err != nil {
		return err
	}
	rep := buildVersionReport(version.Current(), showHash || full, showDate || full, full)
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(cmd.OutOrStdout(), rep)
	case "pretty":
		writeVersion(cmd.OutOrStdout(), rep)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func buildVersionReport(b version.Build, hash, date, targets bool) versionReport {
	if !hash {
		b.Commit, b.Modified = "", false
	}
	if !date {
		b.Date = ""
	}
	if !targets {
		b.GoVersion = ""
	}
	rep := versionReport{Tool: "hbind", Build: b}
	if targets {
		rep.Targets = target.Presets()
		rep.Default = target.X86_64LinuxGNU().Triple
	}
	return rep
}

func writeVersion(out io.Writer, rep versionReport) {
	fmt.Fprintf(out, "hbind %s\n", version.Pretty())
	if c := rep.Build.ShortCommit(); c != "" {
		dirty := ""
		if rep.Build.Modified {
			dirty = " (modified)"
		}
		fmt.Fprintf(out, "commit:  %s%s\n", c, dirty)
	}
	if rep.Build.Date != "" {
		fmt.Fprintf(out, "built:   %s\n", rep.Build.Date)
	}
	if rep.Build.GoVersion != "" {
		fmt.Fprintf(out, "go:      %s\n", rep.Build.GoVersion)
	}
	if len(rep.Targets) > 0 {
		fmt.Fprintf(out, "targets: %s (default %s)\n", strings.Join(rep.Targets, ", "), rep.Default)
	}
}
