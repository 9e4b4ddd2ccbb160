package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hbind/internal/diagfmt"
	"hbind/internal/driver"
	"hbind/internal/target"
)

// driverOptions builds run options from the global flags.
func driverOptions(cmd *cobra.Command) (driver.Options, error) {
	flags := cmd.Root().PersistentFlags()

	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	triple, err := flags.GetString("target")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get target flag: %w", err)
	}
	targetFile, err := flags.GetString("target-file")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get target-file flag: %w", err)
	}

	opts := driver.Options{Jobs: jobs, MaxDiagnostics: maxDiagnostics}
	switch {
	case triple != "" && targetFile != "":
		return driver.Options{}, fmt.Errorf("--target and --target-file cannot be used together")
	case triple != "":
		t, ok := target.Lookup(triple)
		if !ok {
			return driver.Options{}, fmt.Errorf("unknown target %q (see hbind targets)", triple)
		}
		opts.Target = &t
	case targetFile != "":
		t, err := target.LoadFile(targetFile)
		if err != nil {
			return driver.Options{}, err
		}
		opts.Target = &t
	}
	return opts, nil
}

func flagBool(cmd *cobra.Command, name string) (bool, error) {
	v, err := cmd.Root().PersistentFlags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	return v, nil
}

// useColor follows the --color decision made before the command ran.
func useColor() bool {
	return !color.NoColor
}

func pathMode(fullPath bool) diagfmt.PathMode {
	if fullPath {
		return diagfmt.PathModeAbsolute
	}
	return diagfmt.PathModeAuto
}
