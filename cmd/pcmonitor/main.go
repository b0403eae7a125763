// Command pcmonitor streams host CPU, RAM and GPU usage to a USB serial
// display device.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/bridge"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/clock"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/config"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/device"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/frame"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/gpu"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/logger"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/sampler"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/ui"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "pcmonitor:", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "pcmonitor:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logOut, closeLog, err := logOutput(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var querier gpu.Querier = gpu.Disabled{}
	if cfg.EnableGPU {
		querier = gpu.NewNvidiaSMI(cfg.NvidiaSMI, log)
	}
	s, err := sampler.New(sampler.HostProvider{}, querier)
	if err != nil {
		return fmt.Errorf("init sampler: %w", err)
	}

	if cfg.JSON {
		// Give the CPU counters an interval to measure against.
		if err := clock.Sleep(ctx, clock.Real(), bridge.FrameInterval); err != nil {
			return err
		}
		return printOnce(ctx, s, os.Stdout)
	}

	if !cfg.TUI {
		log.Info("starting pc monitor bridge", "gpu", cfg.EnableGPU)
		return bridge.New(device.SerialEnumerator{}, device.SerialOpener{}, s, log).Run(ctx)
	}

	updates := make(chan bridge.Status, 1)
	m := bridge.New(device.SerialEnumerator{}, device.SerialOpener{}, s, log,
		bridge.WithObserver(ui.Publisher(updates)))

	g, gctx := errgroup.WithContext(ctx)
	uiCtx, quit := context.WithCancel(gctx)
	defer quit()
	g.Go(func() error { return m.Run(uiCtx) })
	g.Go(func() error {
		defer quit()
		return ui.Run(uiCtx, updates, quit)
	})
	return g.Wait()
}

// logOutput picks the log sink. The TUI owns the terminal, so without a
// log file its logs are dropped.
func logOutput(cfg config.Config) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if cfg.TUI {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

type onceOutput struct {
	Snapshot model.Snapshot `json:"snapshot"`
	Frame    string         `json:"frame"`
}

func printOnce(ctx context.Context, s *sampler.Sampler, w io.Writer) error {
	snap, err := s.Sample(ctx)
	if err != nil {
		return err
	}
	f := frame.Encode(snap)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(onceOutput{Snapshot: snap, Frame: hex.EncodeToString(f[:])})
}
