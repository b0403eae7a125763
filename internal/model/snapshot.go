// Package model holds the snapshot types shared by the sampler, the frame
// encoder and the status view.
package model

import "strings"

// GPUAbsent fills the usage fields of a Snapshot taken without GPU data.
const GPUAbsent uint8 = 255

// UnitLabel is a fixed-width ASCII unit, right-padded with zero bytes.
type UnitLabel [4]byte

// NewUnitLabel truncates s to four bytes.
func NewUnitLabel(s string) UnitLabel {
	var l UnitLabel
	copy(l[:], s)
	return l
}

func (l UnitLabel) String() string { return strings.TrimRight(string(l[:]), "\x00") }

// MarshalText lets JSON output show "GB" instead of a byte array.
func (l UnitLabel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// GPUSample is one reading from the GPU query tool. Memory is in MiB.
type GPUSample struct {
	Utilization  uint64
	VRAMTotalMiB uint64
	VRAMUsedMiB  uint64
}

// Snapshot is the display-ready metric bundle sent to the device each cycle.
// Max fields carry one implied decimal digit in the unit of the matching label.
type Snapshot struct {
	CPUUsage  uint8     `json:"cpu_usage"`
	RAMMax    uint16    `json:"ram_max"`
	RAMUsage  uint8     `json:"ram_usage"`
	RAMUnit   UnitLabel `json:"ram_unit"`
	GPUUsage  uint8     `json:"gpu_usage"`
	VRAMMax   uint16    `json:"vram_max"`
	VRAMUsage uint8     `json:"vram_usage"`
	VRAMUnit  UnitLabel `json:"vram_unit"`
}

// HasGPU reports whether the snapshot carries GPU data.
func (s Snapshot) HasGPU() bool { return s.GPUUsage != GPUAbsent }
