package frame

import (
	"bytes"
	"testing"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

func TestEncodeLayout(t *testing.T) {
	s := model.Snapshot{
		CPUUsage:  42,
		RAMMax:    0x01A0, // 41.6
		RAMUsage:  73,
		RAMUnit:   model.NewUnitLabel("GB"),
		GPUUsage:  12,
		VRAMMax:   0x0050,
		VRAMUsage: 25,
		VRAMUnit:  model.NewUnitLabel("GB"),
	}
	want := []byte{
		42,
		0xA0, 0x01,
		73,
		'G', 'B', 0, 0,
		12,
		0x50, 0x00,
		25,
		'G', 'B', 0, 0,
	}
	got := Encode(s)
	if !bytes.Equal(got[:], want) {
		t.Fatalf("Encode = % x\nwant     % x", got[:], want)
	}
}

func TestRoundTrip(t *testing.T) {
	snapshots := []model.Snapshot{
		{},
		{
			CPUUsage: 100, RAMMax: 65535, RAMUsage: 100, RAMUnit: model.NewUnitLabel("TB"),
			GPUUsage: 100, VRAMMax: 65535, VRAMUsage: 100, VRAMUnit: model.NewUnitLabel("UB"),
		},
		{
			CPUUsage: 3, RAMMax: 160, RAMUsage: 51, RAMUnit: model.NewUnitLabel("GB"),
			GPUUsage: model.GPUAbsent, VRAMMax: 0, VRAMUsage: model.GPUAbsent, VRAMUnit: model.NewUnitLabel("B"),
		},
	}
	for _, s := range snapshots {
		f := Encode(s)
		back, err := Decode(f[:])
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if back != s {
			t.Errorf("round trip = %+v, want %+v", back, s)
		}
	}
}

func TestAbsentGPUFrame(t *testing.T) {
	s := model.Snapshot{
		GPUUsage: model.GPUAbsent, VRAMUsage: model.GPUAbsent, VRAMUnit: model.NewUnitLabel("B"),
	}
	f := Encode(s)
	if f[8] != 0xFF || f[11] != 0xFF {
		t.Errorf("usage bytes = %#x %#x, want 0xff 0xff", f[8], f[11])
	}
	if !bytes.Equal(f[9:11], []byte{0, 0}) {
		t.Errorf("vram_max bytes = % x, want 00 00", f[9:11])
	}
	if !bytes.Equal(f[12:16], []byte{'B', 0, 0, 0}) {
		t.Errorf("vram_unit bytes = % x, want 42 00 00 00", f[12:16])
	}
}

func TestDecodeRejectsShortInput(t *testing.T) {
	if _, err := Decode(make([]byte, Size-1)); err == nil {
		t.Fatal("Decode accepted a 15-byte frame")
	}
}
