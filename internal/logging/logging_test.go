package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = SetLevel("info")
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	if err := SetLevel("warn"); err != nil {
		t.Fatal(err)
	}
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `msg="shown 2"`) {
		t.Fatalf("missing warn line: %s", out)
	}
}

func TestPercentInArgument(t *testing.T) {
	buf := capture(t)
	Infof("%s", "contour 68.27% done")
	out := buf.String()
	if !strings.Contains(out, "contour 68.27% done") || strings.Contains(out, "%!") {
		t.Fatalf("fmt artifact in output: %s", out)
	}
}

func TestTimeTrackAtDebug(t *testing.T) {
	buf := capture(t)
	TimeTrack(time.Now(), "trace t1")
	if buf.Len() != 0 {
		t.Fatalf("timing logged at info level: %s", buf.String())
	}
	if err := SetLevel("DEBUG"); err != nil {
		t.Fatal(err)
	}
	TimeTrack(time.Now(), "trace t1")
	if out := buf.String(); !strings.Contains(out, `phase="trace t1"`) || !strings.Contains(out, "elapsed=") {
		t.Fatalf("missing timing line: %s", out)
	}
}

func TestSetLevelUnknown(t *testing.T) {
	capture(t)
	if err := SetLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if GetLevel() != LevelInfo {
		t.Fatalf("level changed to %v", GetLevel())
	}
}
