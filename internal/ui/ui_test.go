package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/bridge"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/frame"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

func TestPublisherKeepsNewest(t *testing.T) {
	ch := make(chan bridge.Status, 1)
	publish := Publisher(ch)
	publish(bridge.Status{Sent: 1})
	publish(bridge.Status{Sent: 2})
	publish(bridge.Status{Sent: 3})

	got := <-ch
	if got.Sent != 3 {
		t.Errorf("got status with Sent=%d, want 3", got.Sent)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra status %+v", extra)
	default:
	}
}

func TestMagnitude(t *testing.T) {
	cases := []struct {
		v    uint16
		unit string
		want string
	}{
		{160, "GB", "16.0 GB"},
		{0, "B", "0.0 B"},
		{10240, "MB", "1024.0 MB"},
		{125, "TB", "12.5 TB"},
	}
	for _, tc := range cases {
		if got := magnitude(tc.v, model.NewUnitLabel(tc.unit)); got != tc.want {
			t.Errorf("magnitude(%d, %s) = %q, want %q", tc.v, tc.unit, got, tc.want)
		}
	}
}

func TestGaugeBarClamps(t *testing.T) {
	full := gaugeBar(150, 4)
	if !strings.Contains(full, strings.Repeat(gaugeFill, 4)) || !strings.Contains(full, "100.0%") {
		t.Errorf("gaugeBar(150) = %q", full)
	}
	empty := gaugeBar(-3, 4)
	if !strings.Contains(empty, strings.Repeat(gaugeEmpty, 4)) {
		t.Errorf("gaugeBar(-3) = %q", empty)
	}
}

func TestUpdateTakesLatestStatus(t *testing.T) {
	ch := make(chan bridge.Status, 1)
	m := New(ch, nil)
	if !strings.Contains(m.View(), "waiting for bridge") {
		t.Fatalf("initial view = %q", m.View())
	}

	snap := model.Snapshot{
		CPUUsage: 37, RAMMax: 160, RAMUsage: 50, RAMUnit: model.NewUnitLabel("GB"),
		GPUUsage: model.GPUAbsent, VRAMUsage: model.GPUAbsent, VRAMUnit: model.NewUnitLabel("B"),
	}
	ch <- bridge.Status{
		State:    bridge.Streaming,
		Port:     "/dev/ttyACM0",
		Snapshot: snap,
		Frame:    frame.Encode(snap),
		HasFrame: true,
		Sent:     4,
	}
	if _, cmd := m.Update(tickMsg{}); cmd == nil {
		t.Fatal("tick did not schedule the next tick")
	}

	view := m.View()
	for _, want := range []string{"streaming", "/dev/ttyACM0", "sent 4", "16.0 GB", "no GPU data", "25 a0 00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestQuitKeyCallsQuit(t *testing.T) {
	called := false
	m := New(make(chan bridge.Status), func() { called = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !called {
		t.Error("quit callback not called")
	}
	if cmd == nil {
		t.Error("no quit command returned")
	}
}
