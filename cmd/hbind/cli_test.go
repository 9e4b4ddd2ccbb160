package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/driver"
	"hbind/internal/layout"
	"hbind/internal/pipeline"
	"hbind/internal/trace"
	"hbind/internal/version"
)

func TestWantProgressView(t *testing.T) {
	tests := []struct {
		flag, format string
		quiet, tty   bool
		want, ok     bool
	}{
		{"", "pretty", false, true, true, true},
		{" AUTO ", "pretty", false, false, false, true},
		{"auto", "short", false, true, false, true},
		{"auto", "pretty", true, true, false, true},
		{"on", "short", false, false, true, true},
		{"on", "json", false, true, false, false},
		{"off", "pretty", false, true, false, true},
		{"sometimes", "pretty", false, true, false, false},
	}
	for _, tt := range tests {
		got, err := wantProgressView(tt.flag, tt.format, tt.quiet, tt.tty)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("wantProgressView(%q, %q, quiet=%v, tty=%v) = %v, %v", tt.flag, tt.format, tt.quiet, tt.tty, got, err)
		}
	}
}

func TestPrintStageTimings(t *testing.T) {
	var timings pipeline.Timings
	timings.Set(pipeline.StageLoad, 2*time.Millisecond)
	timings.Set(pipeline.StageLayout, 500*time.Microsecond)

	var buf bytes.Buffer
	printStageTimings(&buf, "a.toml", timings)
	got := buf.String()
	if got != "a.toml: load 2.0 ms, layout 0.5 ms, total 2.5 ms\n" {
		t.Fatalf("timings line = %q", got)
	}

	buf.Reset()
	printStageTimings(&buf, "b.toml", pipeline.Timings{})
	if buf.Len() != 0 {
		t.Fatalf("empty timings printed %q", buf.String())
	}
}

func TestEntityDetail(t *testing.T) {
	rec := driver.EntityResult{Kind: decls.KindRecord, Layout: &layout.Layout{Size: 8, Align: 4}}
	if got := entityDetail(&rec); got != "size 8 align 4" {
		t.Fatalf("record detail = %q", got)
	}
	fn := driver.EntityResult{Kind: decls.KindFunction, Type: "int (int)"}
	if got := entityDetail(&fn); got != "int (int)" {
		t.Fatalf("function detail = %q", got)
	}
	skipped := driver.EntityResult{Kind: decls.KindFunction, Type: "void (config_t)", Class: classify.Classification{Tag: classify.Undeclared, Reason: "config_t"}}
	if got := entityDetail(&skipped); got != "config_t" {
		t.Fatalf("skipped detail = %q", got)
	}
	if kindName(decls.KindEnumConstant) != "enumerator" || kindName(decls.KindMacro) != "macro" {
		t.Fatalf("kind names")
	}
}

func TestWriteEntityTableAligns(t *testing.T) {
	res := &driver.Result{Entities: []driver.EntityResult{
		{Kind: decls.KindVariable, Subject: "größe", Type: "int"},
		{Kind: decls.KindVariable, Subject: "counter_value", Type: "long", Class: classify.Classification{Tag: classify.Supported}},
	}}
	var buf bytes.Buffer
	writeEntityTable(&buf, res, res.Entities, false)
	lines := strings.Split(buf.String(), "\n")
	col := strings.Index(lines[0], "CLASS")
	for _, line := range lines[1:3] {
		if !strings.Contains(line, "supported") {
			t.Fatalf("row %q has no class", line)
		}
	}
	if idx := strings.Index(lines[2], "supported"); idx != col {
		t.Fatalf("class column at %d, header at %d:\n%s", idx, col, buf.String())
	}
	if !strings.Contains(buf.String(), "2 entities: 2 supported") {
		t.Fatalf("missing summary:\n%s", buf.String())
	}
}

func TestVersionReport(t *testing.T) {
	b := version.Build{Version: "0.2.0", Commit: "0123456789abcdef", Date: "2026-10-01", Modified: true, GoVersion: "go1.25.1"}

	short := buildVersionReport(b, false, false, false)
	if short.Build.Commit != "" || short.Build.Date != "" || short.Build.GoVersion != "" || short.Targets != nil {
		t.Fatalf("short report = %+v", short)
	}

	full := buildVersionReport(b, true, true, true)
	if len(full.Targets) == 0 || full.Default != "x86_64-linux-gnu" {
		t.Fatalf("full report targets = %v (%q)", full.Targets, full.Default)
	}
	var buf bytes.Buffer
	writeVersion(&buf, full)
	for _, want := range []string{"commit:  0123456789ab (modified)\n", "built:   2026-10-01\n", "go:      go1.25.1\n", "(default x86_64-linux-gnu)"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("version output lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestDumpTraceOnce(t *testing.T) {
	rec, err := trace.Open(trace.Config{Level: trace.LevelPhase, Mode: trace.ModeRing, RingSize: 8})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := trace.WithRecorder(context.Background(), rec)
	_, span := trace.Begin(ctx, trace.ScopePass, "resolve")
	span.End("unknown primitive")

	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetErr(&stderr)
	dumped := false
	dumpTrace(cmd, &dumped)
	dumpTrace(cmd, &dumped)

	out := stderr.String()
	if strings.Count(out, "trace: last 2 events") != 1 || !strings.Contains(out, "← resolve (unknown primitive)") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}
