package log_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/soypat/gshade/log"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetSink(&buf)
	defer log.SetSink(os.Stderr)
	defer log.SetLevel(log.Notice)

	logger := log.New("logtest")
	log.SetLevel(log.Warning)
	logger.Info("hidden")
	logger.Errorf("shown %d", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message passed warning level:\n%s", out)
	}
	if !strings.Contains(out, "shown 1") || !strings.Contains(out, "[logtest]") {
		t.Errorf("missing error message or module:\n%s", out)
	}

	buf.Reset()
	log.SetLevel(log.Debug)
	logger.Debug("verbose")
	if !strings.Contains(buf.String(), "verbose") {
		t.Error("debug message not written at debug level")
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []log.Level{log.Debug, log.Info, log.Notice, log.Warning, log.Error} {
		got, err := log.ParseLevel(strings.ToUpper(level.String()))
		if err != nil || got != level {
			t.Errorf("parse %s: got %s, %v", level, got, err)
		}
	}
	if _, err := log.ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
