// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/chainfs/cmd/chainfs/cli"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/config"
)

// run executes the command tree with args and returns what it wrote
// to cli.Stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var output bytes.Buffer
	previous := cli.Stdout
	cli.Stdout = &output
	defer func() { cli.Stdout = previous }()

	err := Root().Execute(args)
	return output.String(), err
}

// mustRun is run for commands expected to succeed.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	output, err := run(t, args...)
	if err != nil {
		t.Fatalf("chainfs %s: %v", strings.Join(args, " "), err)
	}
	return output
}

// newImage creates a 1 MiB container in a temporary directory.
func newImage(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")
	image := filepath.Join(t.TempDir(), "disk.img")
	mustRun(t, "create", "-i", image, "--size", "1MiB")
	return image
}

func category(t *testing.T, err error) cli.ErrorCategory {
	t.Helper()
	var toolError *cli.ToolError
	if !errors.As(err, &toolError) {
		t.Fatalf("error %v is not a ToolError", err)
	}
	return toolError.Category
}

func TestCreateAndInfo(t *testing.T) {
	image := newImage(t)

	output := mustRun(t, "info", "-i", image, "--json")
	var info chainfs.Info
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("decoding info output %q: %v", output, err)
	}
	if info.BlockSize != 512 || info.TotalBlocks != 2048 {
		t.Errorf("geometry = %d blocks of %d, want 2048 of 512", info.TotalBlocks, info.BlockSize)
	}
	// 2048*2+16 bytes of table fill 9 blocks; the root takes one more.
	if info.RootBlock != 9 || info.FreeBlocks != 2048-10 {
		t.Errorf("root block %d, free %d; want 9, %d", info.RootBlock, info.FreeBlocks, 2048-10)
	}

	stat, err := os.Stat(image)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Size() != 2048*512 {
		t.Errorf("image is %d bytes, want %d", stat.Size(), 2048*512)
	}
}

func TestCreateRefusesExistingImage(t *testing.T) {
	image := newImage(t)

	_, err := run(t, "create", "-i", image, "--size", "1MiB")
	if err == nil {
		t.Fatal("create over an existing image succeeded")
	}
	if got := category(t, err); got != cli.CategoryConflict {
		t.Errorf("category = %s, want %s", got, cli.CategoryConflict)
	}

	mustRun(t, "create", "-i", image, "--block-size", "1024", "--blocks", "64", "--force")
	output := mustRun(t, "info", "-i", image, "--json")
	var info chainfs.Info
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatal(err)
	}
	if info.BlockSize != 1024 || info.TotalBlocks != 64 {
		t.Errorf("geometry after --force = %d blocks of %d, want 64 of 1024", info.TotalBlocks, info.BlockSize)
	}
}

func TestCreateGeometryFlags(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"size with blocks", []string{"--size", "1MiB", "--blocks", "10"}},
		{"blocks without block size", []string{"--blocks", "10"}},
		{"bad block size", []string{"--block-size", "100", "--blocks", "10"}},
		{"unparseable size", []string{"--size", "lots"}},
		{"no geometry", nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			image := filepath.Join(dir, strings.ReplaceAll(test.name, " ", "-")+".img")
			args := append([]string{"create", "-i", image}, test.args...)
			_, err := run(t, args...)
			if err == nil {
				t.Fatal("create succeeded")
			}
			if got := category(t, err); got != cli.CategoryValidation {
				t.Errorf("category = %s, want %s (%v)", got, cli.CategoryValidation, err)
			}
			if _, err := os.Stat(image); err == nil {
				t.Error("failed create left an image behind")
			}
		})
	}
}

func TestCreateFromConfig(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "configured.img")
	configPath := filepath.Join(dir, "chainfs.yaml")
	configText := "image: " + image + "\ncreate:\n  block_size: 256\n  blocks: 100\n"
	if err := os.WriteFile(configPath, []byte(configText), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, configPath)

	mustRun(t, "create")
	output := mustRun(t, "info", "--json")
	var info chainfs.Info
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatal(err)
	}
	if info.BlockSize != 256 || info.TotalBlocks != 100 {
		t.Errorf("geometry = %d blocks of %d, want 100 of 256", info.TotalBlocks, info.BlockSize)
	}
}

func TestMissingImage(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	_, err := run(t, "ls")
	if err == nil {
		t.Fatal("ls without an image succeeded")
	}
	if got := category(t, err); got != cli.CategoryValidation {
		t.Errorf("category = %s, want %s", got, cli.CategoryValidation)
	}
}

func TestFileCommands(t *testing.T) {
	image := newImage(t)
	host := t.TempDir()
	content := strings.Repeat("chained blocks ", 100)
	source := filepath.Join(host, "notes.txt")
	if err := os.WriteFile(source, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mustRun(t, "mkdir", "-i", image, "-p", "/docs/archive")
	mustRun(t, "put", "-i", image, source, "/docs/")
	mustRun(t, "put", "-i", image, "-p", source, "/other/copy.txt")

	if got := mustRun(t, "cat", "-i", image, "/docs/notes.txt"); got != content {
		t.Errorf("cat returned %d bytes, want %d", len(got), len(content))
	}

	target := filepath.Join(host, "out.txt")
	mustRun(t, "get", "-i", image, "/other/copy.txt", target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("get wrote %d bytes, want %d", len(data), len(content))
	}

	output := mustRun(t, "ls", "-i", image, "-R", "--json")
	var rows []listing
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("decoding ls output: %v", err)
	}
	var paths []string
	for _, row := range rows {
		paths = append(paths, row.Path)
	}
	want := "/docs,/docs/archive,/docs/notes.txt,/other,/other/copy.txt"
	if got := strings.Join(paths, ","); got != want {
		t.Errorf("ls -R = %s, want %s", got, want)
	}
	for _, row := range rows {
		if row.Path == "/docs/notes.txt" && row.Size != uint32(len(content)) {
			t.Errorf("notes.txt size = %d, want %d", row.Size, len(content))
		}
	}

	_, err = run(t, "rmdir", "-i", image, "/docs")
	if got := category(t, err); got != cli.CategoryConflict {
		t.Errorf("rmdir of a non-empty directory: category = %s, want %s", got, cli.CategoryConflict)
	}
	_, err = run(t, "cat", "-i", image, "/nope")
	if got := category(t, err); got != cli.CategoryNotFound {
		t.Errorf("cat of a missing file: category = %s, want %s", got, cli.CategoryNotFound)
	}

	mustRun(t, "rm", "-i", image, "/docs/notes.txt", "/other/copy.txt")
	mustRun(t, "rmdir", "-i", image, "/docs/archive", "/docs", "/other")

	output = mustRun(t, "ls", "-i", image, "--json")
	if strings.TrimSpace(output) != "[]" {
		t.Errorf("ls after removing everything = %s, want []", output)
	}
	mustRun(t, "check", "-i", image)
}

func TestPutStandardInput(t *testing.T) {
	image := newImage(t)
	previous := stdin
	stdin = strings.NewReader("from a pipe\n")
	defer func() { stdin = previous }()

	mustRun(t, "put", "-i", image, "-", "/piped")
	if got := mustRun(t, "cat", "-i", image, "/piped"); got != "from a pipe\n" {
		t.Errorf("cat /piped = %q", got)
	}

	mustRun(t, "mkdir", "-i", image, "/dir")
	if _, err := run(t, "put", "-i", image, "-", "/dir"); err == nil {
		t.Error("put - into a directory succeeded")
	}
}

func TestCheck(t *testing.T) {
	image := newImage(t)
	mustRun(t, "mkdir", "-i", image, "/a")

	output := mustRun(t, "check", "-i", image)
	if !strings.Contains(output, "no problems found") {
		t.Errorf("check output = %q", output)
	}

	// Point the free-list head at the root directory's block.
	data, err := os.ReadFile(image)
	if err != nil {
		t.Fatal(err)
	}
	copy(data[16:18], []byte{9, 0})
	if err := os.WriteFile(image, data, 0o644); err != nil {
		t.Fatal(err)
	}

	output, err = run(t, "check", "-i", image, "--json")
	var exit *cli.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("check of a damaged image returned %v, want exit code 1", err)
	}
	var report chainfs.CheckReport
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		t.Fatalf("decoding check output: %v", err)
	}
	if len(report.Problems) == 0 {
		t.Error("damaged image reported no problems")
	}
}

func TestBuildExtractAndManifest(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tool"), []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	layoutPath := filepath.Join(dir, "layout.jsonc")
	layoutText := `{
		// 64 KiB is plenty.
		"size": "64KiB",
		"entries": [
			{"path": "/etc/motd", "content": "hello\n"},
			{"path": "/bin/tool", "source": "tool"},
			{"path": "/var/empty", "dir": true},
		],
	}`
	if err := os.WriteFile(layoutPath, []byte(layoutText), 0o644); err != nil {
		t.Fatal(err)
	}
	image := filepath.Join(dir, "built.img")

	mustRun(t, "build", "-i", image, layoutPath)
	if got := mustRun(t, "cat", "-i", image, "/etc/motd"); got != "hello\n" {
		t.Errorf("cat /etc/motd = %q", got)
	}
	if _, err := run(t, "build", "-i", image, layoutPath); err == nil {
		t.Error("build over an existing image succeeded")
	}

	out := filepath.Join(dir, "out")
	mustRun(t, "extract", "-i", image, out)
	data, err := os.ReadFile(filepath.Join(out, "bin", "tool"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/sh\necho hi\n" {
		t.Errorf("extracted tool = %q", data)
	}
	if info, err := os.Stat(filepath.Join(out, "var", "empty")); err != nil || !info.IsDir() {
		t.Errorf("extracted /var/empty: %v", err)
	}

	manifestPath := filepath.Join(dir, "manifest.cbor")
	mustRun(t, "manifest", "create", "-i", image, "-o", manifestPath)
	mustRun(t, "manifest", "verify", "-i", image, manifestPath)
	if output := mustRun(t, "manifest", "show", manifestPath); !strings.Contains(output, `"/etc/motd"`) {
		t.Errorf("manifest show output lacks /etc/motd: %s", output)
	}

	previous := stdin
	stdin = strings.NewReader("goodbye\n")
	defer func() { stdin = previous }()
	mustRun(t, "put", "-i", image, "-", "/etc/motd")

	output, err := run(t, "manifest", "verify", "-i", image, manifestPath)
	var exit *cli.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("verify after a change returned %v, want exit code 1", err)
	}
	if !strings.Contains(output, "changed  /etc/motd") {
		t.Errorf("verify output = %q", output)
	}
}

func TestSnapshotCommands(t *testing.T) {
	image := newImage(t)
	dir := filepath.Dir(image)
	mustRun(t, "mkdir", "-i", image, "/keep")

	previous := stdin
	stdin = strings.NewReader("snapshot me")
	defer func() { stdin = previous }()
	mustRun(t, "put", "-i", image, "-", "/keep/file")

	snapshotPath := filepath.Join(dir, "disk.snap")
	mustRun(t, "snapshot", "save", "-i", image, "-c", "lz4", snapshotPath)

	output := mustRun(t, "snapshot", "show", "--json", snapshotPath)
	var header struct {
		Compression string `json:"compression"`
		TotalBlocks int    `json:"total_blocks"`
		Encrypted   bool   `json:"encrypted"`
	}
	if err := json.Unmarshal([]byte(output), &header); err != nil {
		t.Fatalf("decoding snapshot show output: %v", err)
	}
	if header.Compression != "lz4" || header.TotalBlocks != 2048 || header.Encrypted {
		t.Errorf("header = %+v", header)
	}

	restored := filepath.Join(dir, "restored.img")
	mustRun(t, "snapshot", "restore", "-i", restored, snapshotPath)
	if got := mustRun(t, "cat", "-i", restored, "/keep/file"); got != "snapshot me" {
		t.Errorf("restored file = %q", got)
	}
	mustRun(t, "check", "-i", restored)

	if _, err := run(t, "snapshot", "restore", "-i", restored, snapshotPath); err == nil {
		t.Error("restore over an existing image succeeded")
	}
	if _, err := run(t, "snapshot", "save", "-i", image, "-c", "gzip", filepath.Join(dir, "bad.snap")); err == nil {
		t.Error("save with an unknown compression succeeded")
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	_, err := run(t, "mkdri")
	if err == nil || !strings.Contains(err.Error(), `did you mean "mkdir"`) {
		t.Errorf("error = %v, want a mkdir suggestion", err)
	}
}
