package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerWritesFileAndMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "install.log")
	log, err := NewLoggerToFile(path)
	if err != nil {
		t.Fatalf("NewLoggerToFile: %v", err)
	}
	var console bytes.Buffer
	log.AttachConsole(&console)

	log.Info("copying %s", "TimeDateWeather.exe")
	log.Warn("low disk space")
	log.Close()

	if !strings.Contains(log.Content(), "copying TimeDateWeather.exe") {
		t.Fatalf("memory buffer missing message:\n%s", log.Content())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"copying TimeDateWeather.exe"`) {
		t.Fatalf("log file is not JSON lines:\n%s", data)
	}
	if !strings.Contains(console.String(), "low disk space") {
		t.Fatalf("console missing message: %q", console.String())
	}
}

func TestLoggerLevel(t *testing.T) {
	log := NewMemoryLogger()
	log.SetLevel(zerolog.WarnLevel)
	log.Info("hidden")
	log.Error("shown")
	if c := log.Content(); strings.Contains(c, "hidden") || !strings.Contains(c, "shown") {
		t.Fatalf("unexpected content:\n%s", c)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("x")
	log.Step("x")
	log.Z().Info().Msg("x")
	if log.Content() != "" || log.Path() != "" {
		t.Fatal("nil logger returned content")
	}
	log.Close()
}

func TestRunStepsStopsAtFirstFailure(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return SimpleStep(name, func() error { ran = append(ran, name); return err })
	}
	boom := errors.New("boom")
	var updates []float64
	p := ProgressFunc(func(pct float64, _ string) { updates = append(updates, pct) })

	err := RunSteps(context.Background(), p, []Step{step("a", nil), step("b", boom), step("c", nil)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if strings.Join(ran, ",") != "a,b" {
		t.Fatalf("ran = %v", ran)
	}
	if len(updates) != 2 || updates[1] <= updates[0] {
		t.Fatalf("progress = %v", updates)
	}

	ran = nil
	errs := RunAllSteps(context.Background(), nil, []Step{step("a", boom), step("b", nil), step("c", boom)}, nil)
	if len(errs) != 2 || strings.Join(ran, ",") != "a,b,c" {
		t.Fatalf("RunAllSteps: errs=%v ran=%v", errs, ran)
	}
}
