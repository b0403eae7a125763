package sampler

import (
	"context"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/gpu"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/units"
)

// Provider exposes the host counters the sampler needs.
type Provider interface {
	// Memory returns total and used RAM in bytes.
	Memory() (total, used uint64, err error)
	// CoreTimes returns cumulative per-core CPU times.
	CoreTimes() ([]cpu.TimesStat, error)
}

// HostProvider reads counters through gopsutil. Only memory and per-core
// CPU times are refreshed; nothing else is touched.
type HostProvider struct{}

func (HostProvider) Memory() (uint64, uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return v.Total, v.Used, nil
}

func (HostProvider) CoreTimes() ([]cpu.TimesStat, error) { return cpu.Times(true) }

// Sampler builds one Snapshot per call. It keeps the previous per-core
// times between calls and must not be shared between goroutines.
type Sampler struct {
	provider Provider
	gpu      gpu.Querier

	prevCore []cpu.TimesStat
}

// New primes the per-core baseline so the first Sample has a delta to use.
func New(provider Provider, querier gpu.Querier) (*Sampler, error) {
	if querier == nil {
		querier = gpu.Disabled{}
	}
	s := &Sampler{provider: provider, gpu: querier}
	times, err := provider.CoreTimes()
	if err != nil {
		return nil, fmt.Errorf("read cpu times: %w", err)
	}
	s.prevCore = times
	return s, nil
}

// Sample reads memory, CPU and GPU and normalizes them for the device.
func (s *Sampler) Sample(ctx context.Context) (model.Snapshot, error) {
	ramTotal, ramUsed, err := s.provider.Memory()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read memory: %w", err)
	}
	perCore, err := s.corePercents()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read cpu times: %w", err)
	}
	sample, hasGPU := s.gpu.Query(ctx)
	return Build(perCore, ramTotal, ramUsed, sample, hasGPU), nil
}

// Build normalizes raw readings into a Snapshot. When hasGPU is false the
// GPU fields carry the absent sentinel and VRAM reads as 0 B.
func Build(perCore []float64, ramTotal, ramUsed uint64, g model.GPUSample, hasGPU bool) model.Snapshot {
	ramMax, ramUnit := units.Normalize(ramTotal, units.Base)
	snap := model.Snapshot{
		CPUUsage:  AverageUsage(perCore),
		RAMMax:    ramMax,
		RAMUsage:  Percent(ramUsed, ramTotal),
		RAMUnit:   ramUnit,
		GPUUsage:  model.GPUAbsent,
		VRAMUsage: model.GPUAbsent,
	}

	var vramBytes uint64
	if hasGPU {
		vramBytes = mulSaturating(g.VRAMTotalMiB, units.Pow(units.Base, 2))
		snap.GPUUsage = clampPercent(float64(g.Utilization))
		snap.VRAMUsage = Percent(g.VRAMUsedMiB, g.VRAMTotalMiB)
	}
	snap.VRAMMax, snap.VRAMUnit = units.Normalize(vramBytes, units.Base)
	return snap
}

// AverageUsage truncates each core to a whole percent and returns the
// truncated mean. An empty slice yields 0.
func AverageUsage(perCore []float64) uint8 {
	if len(perCore) == 0 {
		return 0
	}
	var sum uint64
	for _, p := range perCore {
		sum += uint64(clampPercent(p))
	}
	return uint8(sum / uint64(len(perCore)))
}

// Percent returns used/total*100 truncated to 0..100, or 0 when total is 0.
func Percent(used, total uint64) uint8 {
	if total == 0 {
		return 0
	}
	return clampPercent(float64(used) / float64(total) * 100)
}

// mulSaturating returns a*b, or math.MaxUint64 when the product overflows.
func mulSaturating(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}

func clampPercent(p float64) uint8 {
	if p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return uint8(p)
}

// CPU percentages from times delta.
func (s *Sampler) corePercents() ([]float64, error) {
	coreTimes, err := s.provider.CoreTimes()
	if err != nil {
		return nil, err
	}
	perCore := make([]float64, len(coreTimes))
	for i, c := range coreTimes {
		if i >= len(s.prevCore) {
			continue
		}
		prev := s.prevCore[i]
		dt := c.Total() - prev.Total()
		di := (c.Idle + c.Iowait) - (prev.Idle + prev.Iowait)
		if dt > 0 {
			perCore[i] = 100 * (dt - di) / dt
		}
	}
	s.prevCore = coreTimes
	return perCore, nil
}
