package cmd

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

// resetFlags resets package-level flag variables and the Changed state of
// every flag so tests don't leak state between runs.
func resetFlags() {
	configPath = ""
	configInitForce = false
	servePort = 8000
	serveHost = ""
	serveRoot = ""
	serveVerbose = false

	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func waitForServer(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s never came up", url)
	return nil
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devserve.toml")

	out, err := runCmd(t, context.Background(), "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	if _, err := runCmd(t, context.Background(), "config", "init", "--config", path); err == nil {
		t.Error("expected error when file exists")
	}
	if _, err := runCmd(t, context.Background(), "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("config init --force: %v", err)
	}

	out, err = runCmd(t, context.Background(), "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"port = 8000", `allow_origin = "*"`, `allow_methods = "GET, POST, OPTIONS"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output missing %q:\n%s", want, out)
		}
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "devserve.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9000\nhost = \"0.0.0.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = path

	if err := serveCmd.ParseFlags([]string{"--port", "9100", "-v"}); err != nil {
		t.Fatal(err)
	}
	cfg, gotPath, err := loadConfig(serveCmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if gotPath != path {
		t.Errorf("path = %q, want %q", gotPath, path)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want flag value 9100", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want file value", cfg.Server.Host)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestPortZeroRejected(t *testing.T) {
	resetFlags()
	configPath = filepath.Join(t.TempDir(), "devserve.toml")

	if err := serveCmd.ParseFlags([]string{"--port", "0"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadConfig(serveCmd); err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Fatalf("loadConfig(--port 0) error = %v, want invalid port", err)
	}
}

func TestServeMissingRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := runCmd(t, context.Background(),
		"--config", filepath.Join(dir, "devserve.toml"),
		"--root", filepath.Join(dir, "nope"),
	)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestServeRejectsArgs(t *testing.T) {
	if _, err := runCmd(t, context.Background(), "extra"); err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestServeStopsOnInterrupt(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>Hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	port := strconv.Itoa(freePort(t))

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := runCmd(t, context.Background(),
			"--config", filepath.Join(root, "devserve.toml"),
			"--root", root,
			"--host", "127.0.0.1",
			"--port", port,
		)
		done <- result{out, err}
	}()

	resp := waitForServer(t, "http://127.0.0.1:"+port+"/index.html")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "<h1>Hi</h1>" {
		t.Errorf("GET: status = %d body = %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}

	if err := unix.Kill(unix.Getpid(), unix.SIGINT); err != nil {
		t.Fatalf("send SIGINT: %v", err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("serve returned %v, want nil", r.err)
		}
		for _, want := range []string{
			"http://localhost:" + port,
			"Serving files from: " + root,
			"Server stopped",
		} {
			if !strings.Contains(r.out, want) {
				t.Errorf("output missing %q:\n%s", want, r.out)
			}
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after SIGINT")
	}
}
