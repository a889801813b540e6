package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/carrent-dev/carrent/internal/cli/commands"
)

func TestRootCommand(t *testing.T) {
	out := &bytes.Buffer{}
	opts := &commands.Options{Out: out}
	root := NewRootCmd(opts)

	for _, name := range []string{"login", "logout", "whoami", "check", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("expected %s subcommand, got %v (err %v)", name, cmd, err)
		}
	}

	root.SetArgs([]string{"--server", "http://127.0.0.1:9999", "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "carrent version ") {
		t.Errorf("unexpected version output %q", out.String())
	}
	if opts.Server != "http://127.0.0.1:9999" {
		t.Errorf("expected --server to populate options, got %q", opts.Server)
	}
}

func TestCheckRequiresPath(t *testing.T) {
	root := NewRootCmd(&commands.Options{Out: &bytes.Buffer{}})
	root.SetArgs([]string{"check"})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("expected error when no path is given")
	}
}
