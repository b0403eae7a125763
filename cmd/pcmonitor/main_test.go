package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/config"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/sampler"
)

type staticProvider struct{}

func (staticProvider) Memory() (uint64, uint64, error) { return 17_179_869_184, 4_294_967_296, nil }

func (staticProvider) CoreTimes() ([]cpu.TimesStat, error) {
	return []cpu.TimesStat{{User: 1, Idle: 1}}, nil
}

type staticGPU struct{}

func (staticGPU) Query(context.Context) (model.GPUSample, bool) {
	return model.GPUSample{Utilization: 10, VRAMTotalMiB: 8192, VRAMUsedMiB: 4096}, true
}

func TestPrintOnce(t *testing.T) {
	s, err := sampler.New(staticProvider{}, staticGPU{})
	if err != nil {
		t.Fatalf("sampler.New: %v", err)
	}
	var buf bytes.Buffer
	if err := printOnce(context.Background(), s, &buf); err != nil {
		t.Fatalf("printOnce: %v", err)
	}

	var out struct {
		Snapshot map[string]any `json:"snapshot"`
		Frame    string         `json:"frame"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if out.Snapshot["ram_unit"] != "GB" || out.Snapshot["ram_max"] != float64(160) || out.Snapshot["ram_usage"] != float64(25) {
		t.Errorf("snapshot = %v", out.Snapshot)
	}
	if out.Snapshot["vram_usage"] != float64(50) || out.Snapshot["vram_unit"] != "GB" {
		t.Errorf("snapshot = %v", out.Snapshot)
	}
	// 16 bytes hex encoded.
	if len(out.Frame) != 32 {
		t.Errorf("frame = %q, want 32 hex chars", out.Frame)
	}
	if out.Frame[:8] != "00a00019" {
		t.Errorf("frame prefix = %q, want 00a00019", out.Frame[:8])
	}
}

func TestLogOutput(t *testing.T) {
	w, closeLog, err := logOutput(config.Config{})
	if err != nil || w != os.Stderr {
		t.Fatalf("default sink = %v, %v; want stderr", w, err)
	}
	closeLog()

	w, closeLog, err = logOutput(config.Config{TUI: true})
	if err != nil || w != io.Discard {
		t.Fatalf("tui sink = %v, %v; want discard", w, err)
	}
	closeLog()

	path := filepath.Join(t.TempDir(), "pcmon.log")
	w, closeLog, err = logOutput(config.Config{TUI: true, LogFile: path})
	if err != nil {
		t.Fatalf("logOutput: %v", err)
	}
	if _, err := io.WriteString(w, "hello\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	closeLog()
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello\n" {
		t.Fatalf("log file = %q, %v", data, err)
	}
}
