package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nconklindev/tableview/internal/config"
	"github.com/nconklindev/tableview/internal/types"
)

// syncBuffer lets the serve test read stdout while the server writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	dir    string
	input  string
	config string
}

func newTestEnv(t *testing.T, configYAML string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:    dir,
		input:  filepath.Join(dir, "in.csv"),
		config: filepath.Join(dir, "config.yaml"),
	}
	if err := os.WriteFile(env.input, []byte("name,score\na,1.5\nb,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if configYAML != "" {
		if err := os.WriteFile(env.config, []byte(configYAML), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

func (e testEnv) run(ctx context.Context, stdout *syncBuffer, args ...string) error {
	app := NewApp()
	app.Stdout = stdout
	app.Stderr = &bytes.Buffer{}
	app.Version = "1.2.3"
	return app.Execute(ctx, append([]string{"--config", e.config, "--color", "never"}, args...))
}

func (e testEnv) readIndex(t *testing.T, out string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatalf("reading index.html: %v", err)
	}
	return string(data)
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t, "")
	out := filepath.Join(env.dir, "out")
	stdout := &syncBuffer{}

	if err := env.run(context.Background(), stdout, "render", env.input, "-o", out); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "HTML file saved to "+filepath.Join(out, "index.html")) {
		t.Errorf("unexpected output: %q", stdout.String())
	}

	html := env.readIndex(t, out)
	for _, want := range []string{"<title>in.csv</title>", "<th>name</th>", "<th>score</th>", "1.500", "2.000"} {
		if !strings.Contains(html, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}

func TestRenderFlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t, "max_rows: 1\ndisplay_index: true\n")

	tests := []struct {
		name         string
		args         []string
		wantTruncate bool
		wantIndex    bool
	}{
		{name: "Config values", wantTruncate: true, wantIndex: true},
		{name: "Flags win", args: []string{"--max-rows", "0", "--index=false"}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(env.dir, "out", string(rune('a'+i)))
			stdout := &syncBuffer{}
			args := append([]string{"render", env.input, "-o", out}, tt.args...)
			if err := env.run(context.Background(), stdout, args...); err != nil {
				t.Fatalf("render failed: %v", err)
			}

			if got := strings.Contains(stdout.String(), "Rendered 1 of 2 rows"); got != tt.wantTruncate {
				t.Errorf("truncation notice = %v; want %v (%q)", got, tt.wantTruncate, stdout.String())
			}
			if got := strings.Contains(env.readIndex(t, out), "<th>#</th>"); got != tt.wantIndex {
				t.Errorf("index column = %v; want %v", got, tt.wantIndex)
			}
		})
	}
}

func TestRenderColumns(t *testing.T) {
	env := newTestEnv(t, "")
	out := filepath.Join(env.dir, "out")

	if err := env.run(context.Background(), &syncBuffer{}, "render", env.input, "-o", out, "--columns", "score"); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(env.readIndex(t, out), "<th>name</th>") {
		t.Error("unselected column rendered")
	}

	err := env.run(context.Background(), &syncBuffer{}, "render", env.input, "-o", out, "--columns", "missing")
	if !errors.Is(err, types.ErrUnknownColumn) {
		t.Errorf("got %v; want ErrUnknownColumn", err)
	}
}

func TestRenderErrors(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		args   []string
		target error
	}{
		{name: "Invalid store mode", args: []string{"render", env.input, "--store-image", "s3"}, target: types.ErrInvalidStoreMode},
		{name: "Negative resize", args: []string{"render", env.input, "--resize", "-1"}},
		{name: "Missing input", args: []string{"render"}},
		{name: "Input not found", args: []string{"render", filepath.Join(env.dir, "nope.csv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.run(context.Background(), &syncBuffer{}, append(tt.args, "-o", filepath.Join(env.dir, "out"))...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("got %v; want %v", err, tt.target)
			}
		})
	}
}

func TestInvalidConfigFile(t *testing.T) {
	env := newTestEnv(t, "store_image: [")
	if err := env.run(context.Background(), &syncBuffer{}, "version"); err == nil {
		t.Error("expected config error")
	}
}

func TestInspectCommand(t *testing.T) {
	env := newTestEnv(t, "")
	stdout := &syncBuffer{}

	if err := env.run(context.Background(), stdout, "inspect", env.input); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	got := stdout.String()
	for _, want := range []string{"Rows: 2", "Columns: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("inspect output missing %q:\n%s", want, got)
		}
	}
	if !strings.HasPrefix(got, env.input+"\n") {
		t.Errorf("inspect output should start with the file name, got %q", got)
	}

	kinds := map[string]string{}
	for _, line := range strings.Split(got, "\n") {
		if strings.TrimSpace(line) == "" && line != "" {
			t.Errorf("whitespace-only line in inspect output: %q", got)
		}
		if fields := strings.Fields(line); len(fields) == 2 && !strings.HasSuffix(fields[0], ":") {
			kinds[fields[0]] = fields[1]
		}
	}
	want := map[string]string{"name": "string", "score": "number"}
	for col, kind := range want {
		if kinds[col] != kind {
			t.Errorf("column %q listed with kind %q; want %q on the same line:\n%s", col, kinds[col], kind, got)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t, "port: 9000\n")

	stdout := &syncBuffer{}
	if err := env.run(context.Background(), stdout, "config", "path"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout.String()) != env.config {
		t.Errorf("config path = %q; want %q", stdout.String(), env.config)
	}

	stdout = &syncBuffer{}
	if err := env.run(context.Background(), stdout, "config", "show"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"port: 9000", "host: 0.0.0.0", "store_image: local"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("config show missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t, "store_image: [")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "Overwrites broken file with force", args: []string{"config", "init", "--force"}},
		{name: "Refuses existing file", args: []string{"config", "init"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout := &syncBuffer{}
			err := env.run(context.Background(), stdout, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !strings.Contains(stdout.String(), "Config written to "+env.config) {
				t.Errorf("unexpected output: %q", stdout.String())
			}
		})
	}

	stdout := &syncBuffer{}
	if err := env.run(context.Background(), stdout, "config", "show"); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if !strings.Contains(stdout.String(), "port: 8000") {
		t.Errorf("config show = %q; want defaults", stdout.String())
	}
}

func TestDefaultConfigLocation(t *testing.T) {
	env := newTestEnv(t, "max_rows: 7\n")
	orig := config.SetConfigPathFunc(func() (string, error) { return env.config, nil })
	defer config.SetConfigPathFunc(orig)

	app := NewApp()
	stdout := &syncBuffer{}
	app.Stdout = stdout
	app.Stderr = &bytes.Buffer{}
	if err := app.Execute(context.Background(), []string{"--color", "never", "config", "show"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "max_rows: 7") {
		t.Errorf("config show = %q; want the file at the default location", stdout.String())
	}
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t, "")
	stdout := &syncBuffer{}
	if err := env.run(context.Background(), stdout, "version"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout.String(), "tableview 1.2.3\n") {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestRootWithoutTerminalPrintsHelp(t *testing.T) {
	env := newTestEnv(t, "")
	stdout := &syncBuffer{}
	if err := env.run(context.Background(), stdout); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Errorf("expected help output, got %q", stdout.String())
	}
}

func TestServeCommand(t *testing.T) {
	env := newTestEnv(t, "")
	out := filepath.Join(env.dir, "out")
	stdout := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- env.run(ctx, stdout, "serve", env.input, "-o", out, "--host", "127.0.0.1", "--port", "0")
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(stdout.String(), "URL:") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	got := stdout.String()
	for _, want := range []string{"HTML file saved to", "HTTP Server Running", "http://127.0.0.1:", "Shutting down server..."} {
		if !strings.Contains(got, want) {
			t.Errorf("serve output missing %q:\n%s", want, got)
		}
	}
}
