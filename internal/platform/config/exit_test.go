package config

import (
	"bytes"
	"os"
	"testing"
)

func TestExitfWritesMessageAndExitsWithOne(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	exitWriter = &buf
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() {
		exitWriter = os.Stderr
		exitFunc = os.Exit
	})

	Exitf("fatal: %s", "db locked")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := buf.String(); got != "fatal: db locked\n" {
		t.Fatalf("output = %q, want %q", got, "fatal: db locked\n")
	}
}
