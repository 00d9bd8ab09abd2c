package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/backport/internal/backport/runner"
	"github.com/conduit-lang/backport/internal/classfile"
	cft "github.com/conduit-lang/backport/internal/classfile/classfiletest"
)

const threetenFlag = "java/time/**=org/threeten/bp/<1>"

// inTempDir runs the test from an empty working directory, so that no
// backport.yml is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeClass(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "backport", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"version", "convert", "rules", "rewrite"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "backport version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go1.23")
}

func TestConvertCommand_JSON(t *testing.T) {
	dir := inTempDir(t)
	in := filepath.Join(dir, "classes")
	writeClass(t, in, "com/example/Event", cft.NewClass(t, "com/example/Event", "java/lang/Object").
		Field(classfile.AccPrivate, "start", "Ljava/time/Instant;").
		Bytes())

	out, _, err := execute(t, "convert", in, "-o", filepath.Join(dir, "out"),
		"--replace-type", threetenFlag, "--no-check-missing", "--json", "-j", "2")
	require.NoError(t, err)

	var report runner.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Classes)
	assert.Equal(t, 1, report.Modified)
	assert.Equal(t, 1, report.TypeRules)
	assert.NotEmpty(t, report.RunID)

	data, err := os.ReadFile(filepath.Join(dir, "out", "com", "example", "Event.class"))
	require.NoError(t, err)
	c, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Lorg/threeten/bp/Instant;", c.Fields[0].Descriptor(c.Pool))
}

func TestConvertCommand_TextReportAndWarnings(t *testing.T) {
	dir := inTempDir(t)
	in := filepath.Join(dir, "classes")
	event := cft.NewClass(t, "com/example/Event", "")
	event.ClassRef("java/time/Instant")
	writeClass(t, in, "com/example/Event", event.Bytes())

	out, stderr, err := execute(t, "convert", in, "-o", filepath.Join(dir, "out.jar"))
	require.NoError(t, err)

	assert.Contains(t, out, "Classes:")
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "✓ Converted to")
	assert.Contains(t, stderr, "Warning W001: com/example/Event")
	assert.Contains(t, stderr, "--> java/time/Instant")
	assert.FileExists(t, filepath.Join(dir, "out.jar"))
}

func TestConvertCommand_Config(t *testing.T) {
	dir := inTempDir(t)
	in := filepath.Join(dir, "classes")
	writeClass(t, in, "com/example/Event", cft.NewClass(t, "com/example/Event", "").
		Field(classfile.AccPrivate, "start", "Ljava/time/Instant;").
		Bytes())

	require.NoError(t, os.WriteFile("rules.yml", []byte(`
types:
  - match: java/time/**
    replace: org/threeten/bp/<1>
`), 0644))
	require.NoError(t, os.WriteFile("backport.yml", []byte(`
rules: [rules.yml]
output: converted
check_missing: false
`), 0644))

	out, _, err := execute(t, "convert", in, "--json")
	require.NoError(t, err)

	var report runner.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Modified)
	assert.FileExists(t, filepath.Join(dir, "converted", "com", "example", "Event.class"))
}

func TestConvertCommand_Watch(t *testing.T) {
	dir := inTempDir(t)
	in := filepath.Join(dir, "classes")
	out := filepath.Join(dir, "out")
	writeClass(t, in, "com/example/Event", cft.NewClass(t, "com/example/Event", "").Bytes())

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--no-color", "convert", in, "-o", out, "--watch", "--no-check-missing",
		"--replace-type", threetenFlag})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(out, "com", "example", "Event.class"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	// The watcher may not be registered yet, so keep touching the input,
	// slower than the watcher's delay.
	lateClass := cft.NewClass(t, "com/example/Late", "").
		Field(classfile.AccPrivate, "at", "Ljava/time/Instant;").
		Bytes()
	lateIn := filepath.Join(in, "com", "example", "Late.class")
	lateOut := filepath.Join(out, "com", "example", "Late.class")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(lateIn, lateClass, 0644)
		data, err := os.ReadFile(lateOut)
		if err != nil {
			return false
		}
		c, err := classfile.Parse(data)
		return err == nil && len(c.Fields) == 1 && c.Fields[0].Descriptor(c.Pool) == "Lorg/threeten/bp/Instant;"
	}, 10*time.Second, 600*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("convert --watch did not stop")
	}
}

func TestConvertCommand_Errors(t *testing.T) {
	inTempDir(t)

	_, _, err := execute(t, "convert")
	assert.Error(t, err)

	_, _, err = execute(t, "convert", "missing", "--replace-type", "=nothing")
	assert.ErrorContains(t, err, "invalid --replace-type")

	_, _, err = execute(t, "convert", "missing", "--rules", "missing.yml")
	assert.ErrorContains(t, err, "failed to read rules")

	_, _, err = execute(t, "convert", "missing", "-j", "-1")
	assert.ErrorContains(t, err, "--jobs must not be negative")
}

func TestRulesCheckCommand(t *testing.T) {
	dir := inTempDir(t)
	lib := filepath.Join(dir, "lib")
	writeClass(t, lib, "org/threeten/bp/Instant", cft.NewClass(t, "org/threeten/bp/Instant", "").Bytes())

	out, _, err := execute(t, "rules", "check", "--lib", lib,
		"--replace-type", "java/time/Instant=org/threeten/bp/Instant",
		"--replace-type", "java/time/Clock=org/threeten/bp/Instnt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 rule(s) would be dropped")

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "KIND")
	assert.Contains(t, lines[2], "java/time/Instant -> org/threeten/bp/Instant")
	assert.Contains(t, lines[2], "ok")
	assert.Contains(t, lines[3], "dropped (C002)")
	assert.Contains(t, out, "Did you mean: org/threeten/bp/Instant?")
}

func TestRulesCheckCommand_JSON(t *testing.T) {
	inTempDir(t)

	out, _, err := execute(t, "rules", "check", "--json",
		"--replace-type", threetenFlag,
		"--replace-type", "java/util/*=org/<2>")
	require.Error(t, err)

	var statuses []ruleStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Valid)
	assert.False(t, statuses[1].Valid)
	assert.Equal(t, "C001", statuses[1].Diagnostic.Code)
}

func TestRulesCheckCommand_NoRules(t *testing.T) {
	inTempDir(t)

	out, _, err := execute(t, "rules", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "No rules configured")
}

func TestRewriteCommand(t *testing.T) {
	inTempDir(t)

	out, _, err := execute(t, "rewrite", "--replace-type", threetenFlag,
		"(Ljava/time/Instant;[Ljava/time/ZoneId;)Ljava/lang/String;",
		"java/time/LocalDate",
		"[Ljava/time/Duration;")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"(Lorg/threeten/bp/Instant;[Lorg/threeten/bp/ZoneId;)Ljava/lang/String;",
		"org/threeten/bp/LocalDate",
		"[Lorg/threeten/bp/Duration;",
	}, "\n")+"\n", out)

	out, _, err = execute(t, "rewrite", "--signature", "--replace-type", threetenFlag,
		"Ljava/util/List<Ljava/time/LocalDate;>;")
	require.NoError(t, err)
	assert.Equal(t, "Ljava/util/List<Lorg/threeten/bp/LocalDate;>;\n", out)
}

func TestRewriteCommand_LiteralTargetNeedsLibrary(t *testing.T) {
	dir := inTempDir(t)
	lib := filepath.Join(dir, "lib")
	writeClass(t, lib, "java/lang/Object", cft.NewClass(t, "java/lang/Object", "").Bytes())

	out, stderr, err := execute(t, "rewrite", "--lib", lib,
		"--replace-type", "java/time/Instant=org/threeten/bp/Instant", "java/time/Instant")
	require.NoError(t, err)
	assert.Equal(t, "java/time/Instant\n", out)
	assert.Contains(t, stderr, "C002")

	out, _, err = execute(t, "rewrite",
		"--replace-type", "java/time/Instant=org/threeten/bp/Instant", "java/time/Instant")
	require.NoError(t, err)
	assert.Equal(t, "org/threeten/bp/Instant\n", out)
}

func TestIsDescriptor(t *testing.T) {
	assert.True(t, isDescriptor("()V"))
	assert.True(t, isDescriptor("[I"))
	assert.True(t, isDescriptor("Ljava/lang/Object;"))
	assert.True(t, isDescriptor("I"))
	assert.False(t, isDescriptor("java/lang/Object"))
	assert.False(t, isDescriptor("Lcom/Foo"))
	assert.False(t, isDescriptor(""))
}
