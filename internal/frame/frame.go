// Package frame packs a Snapshot into the 16-byte record the device reads.
//
// Layout (little-endian, no padding):
//
//	0  u8   cpu_usage
//	1  u16  ram_max
//	3  u8   ram_usage
//	4  [4]  ram_unit
//	8  u8   gpu_usage
//	9  u16  vram_max
//	11 u8   vram_usage
//	12 [4]  vram_unit
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

// Size is the length of an encoded frame.
const Size = 16

// Frame is one encoded snapshot.
type Frame [Size]byte

// Encode packs s into a frame.
func Encode(s model.Snapshot) Frame {
	var f Frame
	f[0] = s.CPUUsage
	binary.LittleEndian.PutUint16(f[1:3], s.RAMMax)
	f[3] = s.RAMUsage
	copy(f[4:8], s.RAMUnit[:])
	f[8] = s.GPUUsage
	binary.LittleEndian.PutUint16(f[9:11], s.VRAMMax)
	f[11] = s.VRAMUsage
	copy(f[12:16], s.VRAMUnit[:])
	return f
}

// Decode unpacks a frame. It is the inverse of Encode.
func Decode(b []byte) (model.Snapshot, error) {
	if len(b) != Size {
		return model.Snapshot{}, fmt.Errorf("frame: got %d bytes, want %d", len(b), Size)
	}
	var s model.Snapshot
	s.CPUUsage = b[0]
	s.RAMMax = binary.LittleEndian.Uint16(b[1:3])
	s.RAMUsage = b[3]
	copy(s.RAMUnit[:], b[4:8])
	s.GPUUsage = b[8]
	s.VRAMMax = binary.LittleEndian.Uint16(b[9:11])
	s.VRAMUsage = b[11]
	copy(s.VRAMUnit[:], b[12:16])
	return s, nil
}
