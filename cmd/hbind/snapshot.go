package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hbind/internal/driver"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [flags] <unit.toml>",
	Short: "Write the frozen results of a unit as msgpack",
	Long:  `Run a unit and store its entity results and diagnostics as a msgpack snapshot, or inspect an existing snapshot with --inspect.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringP("output", "o", "", "snapshot file (default <unit>.msgpack)")
	snapshotCmd.Flags().Bool("inspect", false, "read the argument as a snapshot and summarize it")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	inspect, err := cmd.Flags().GetBool("inspect")
	if err != nil {
		return fmt.Errorf("failed to get inspect flag: %w", err)
	}
	withTimings, err := flagBool(cmd, "timings")
	if err != nil {
		return err
	}
	if inspect {
		return inspectSnapshot(cmd, args[0])
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
		return err
	}
	if output == "" {
		output = args[0] + ".msgpack"
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := driver.WriteSnapshot(f, res, withTimings); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	quiet, err := flagBool(cmd, "quiet")
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d entities, %d diagnostics)\n", output, len(res.Entities), res.Diagnostics.Len())
	}
	return nil
}

func inspectSnapshot(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := driver.ReadSnapshot(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "unit %s for %s: %d entities, %d diagnostics\n", snap.Unit, snap.Target, len(snap.Entities), len(snap.Diagnostics))
	for _, d := range snap.Diagnostics {
		where := d.Loc
		if where != "" {
			where += ": "
		}
		fmt.Fprintf(out, "%s%s %s: %s: %s\n", where, d.Severity, d.Code, d.Subject, d.Message)
	}
	if snap.Timings != nil {
		for _, p := range snap.Timings.Phases {
			fmt.Fprintf(out, "%s %.1f ms\n", p.Name, p.DurationMS)
		}
	}
	return nil
}
