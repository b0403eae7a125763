// Package gpu reads GPU utilization and frame-buffer memory from the
// vendor query tool. Every failure degrades to "no sample".
package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/clbanning/mxj/v2"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

// Querier yields one GPU sample per call, or false when none is available.
type Querier interface {
	Query(ctx context.Context) (model.GPUSample, bool)
}

// Disabled never reports a GPU.
type Disabled struct{}

func (Disabled) Query(context.Context) (model.GPUSample, bool) { return model.GPUSample{}, false }

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

const (
	DefaultCommand = "nvidia-smi"
	DefaultTimeout = 5 * time.Second
)

// Report paths inside the nvidia-smi XML tree. The first <gpu> wins.
const (
	pathUtilization = "nvidia_smi_log.gpu.utilization.gpu_util"
	pathVRAMTotal   = "nvidia_smi_log.gpu.fb_memory_usage.total"
	pathVRAMUsed    = "nvidia_smi_log.gpu.fb_memory_usage.used"
)

// NvidiaSMI queries `nvidia-smi -q -x` each call. Nothing is cached.
type NvidiaSMI struct {
	command string
	timeout time.Duration
	run     Runner
	logger  *slog.Logger
}

// NewNvidiaSMI returns a querier for the given nvidia-smi binary.
func NewNvidiaSMI(command string, logger *slog.Logger) *NvidiaSMI {
	if command == "" {
		command = DefaultCommand
	}
	return &NvidiaSMI{
		command: command,
		timeout: DefaultTimeout,
		run:     runCommand,
		logger:  logger,
	}
}

// Query runs the tool and parses its report.
func (n *NvidiaSMI) Query(ctx context.Context) (model.GPUSample, bool) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	out, err := n.run(ctx, n.command, "-q", "-x")
	if err != nil {
		n.logger.Debug("gpu query failed", "command", n.command, "error", err)
		return model.GPUSample{}, false
	}
	sample, err := ParseReport(out)
	if err != nil {
		n.logger.Debug("gpu report unusable", "command", n.command, "error", err)
		return model.GPUSample{}, false
	}
	return sample, true
}

// ParseReport extracts a sample from an nvidia-smi XML report.
func ParseReport(data []byte) (model.GPUSample, error) {
	tree, err := mxj.NewMapXml(data)
	if err != nil {
		return model.GPUSample{}, fmt.Errorf("parse gpu report: %w", err)
	}
	util, err := readValue(tree, pathUtilization)
	if err != nil {
		return model.GPUSample{}, err
	}
	total, err := readValue(tree, pathVRAMTotal)
	if err != nil {
		return model.GPUSample{}, err
	}
	used, err := readValue(tree, pathVRAMUsed)
	if err != nil {
		return model.GPUSample{}, err
	}
	return model.GPUSample{Utilization: util, VRAMTotalMiB: total, VRAMUsedMiB: used}, nil
}

func readValue(tree mxj.Map, path string) (uint64, error) {
	v, err := tree.ValueForPath(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected %T", path, v)
	}
	n, err := ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// ParseQuantity reads the leading integer of a value like "45 %" or
// "8192 MiB", dropping the unit and anything after it.
func ParseQuantity(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	if end == 0 {
		return 0, fmt.Errorf("no number in %q", s)
	}
	return strconv.ParseUint(s[:end], 10, 64)
}

// runCommand returns stdout. A non-zero exit is not an error: whatever the
// tool printed is still parsed. Stderr is discarded.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return out, nil
	}
	return out, err
}
