package logging

import (
	"os"
	"testing"

	"spinhub/internal/config"
)

func TestInitDefaultsToStdout(t *testing.T) {
	Init(config.LogConfig{Level: "debug"})
	if Writer() != os.Stdout {
		t.Fatal("expected stdout writer when no file configured")
	}
}

func TestInitFileWriter(t *testing.T) {
	path := t.TempDir() + "/app.log"
	Init(config.LogConfig{Level: "info", File: path, MaxMB: 1})
	if Writer() == os.Stdout {
		t.Fatal("expected file-backed writer")
	}
	t.Cleanup(func() { Init(config.LogConfig{}) })
}
