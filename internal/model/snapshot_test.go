package model

import (
	"encoding/json"
	"testing"
)

func TestUnitLabel(t *testing.T) {
	l := NewUnitLabel("GB")
	if l != [4]byte{'G', 'B', 0, 0} {
		t.Errorf("NewUnitLabel(GB) = %v", l)
	}
	if l.String() != "GB" {
		t.Errorf("String = %q", l.String())
	}
	if long := NewUnitLabel("BYTES"); long.String() != "BYTE" {
		t.Errorf("long label = %q, want truncation to BYTE", long.String())
	}
}

func TestSnapshotJSON(t *testing.T) {
	data, err := json.Marshal(Snapshot{RAMUnit: NewUnitLabel("MB"), GPUUsage: GPUAbsent})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["ram_unit"] != "MB" || out["vram_unit"] != "" || out["gpu_usage"] != float64(255) {
		t.Errorf("json = %s", data)
	}
}

func TestHasGPU(t *testing.T) {
	if (Snapshot{GPUUsage: GPUAbsent}).HasGPU() {
		t.Error("HasGPU with sentinel")
	}
	if !(Snapshot{GPUUsage: 0}).HasGPU() {
		t.Error("idle GPU reported as absent")
	}
}
