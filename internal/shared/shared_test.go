package shared

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Error("expected unique IDs")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	SetLogLevel(logger, log.DebugLevel)

	child := WithLogger(logger, "job", "abc123")
	child.Info("starting")

	if !bytes.Contains(buf.Bytes(), []byte("job")) {
		t.Errorf("expected log output to carry job field, got %q", buf.String())
	}
}
