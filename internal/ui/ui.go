// Package ui is a Bubble Tea status view of the running bridge.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/bridge"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/device"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

// Publisher returns a bridge observer that keeps only the newest status in
// ch, so a slow view never blocks the bridge. ch must be buffered.
func Publisher(ch chan bridge.Status) func(bridge.Status) {
	return func(s bridge.Status) {
		for {
			select {
			case ch <- s:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Model renders the latest bridge status.
type Model struct {
	latest   bridge.Status
	received bool
	stream   <-chan bridge.Status
	quit     func()
	width    int
	height   int
}

// New returns a view over stream. quit is called when the user exits.
func New(stream <-chan bridge.Status, quit func()) *Model {
	return &Model{
		stream: stream,
		quit:   quit,
		width:  100,
		height: 24,
	}
}

// Messages
type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.quit != nil {
				m.quit()
			}
			return m, tea.Quit
		}
	case tickMsg:
		select {
		case st, ok := <-m.stream:
			if ok {
				m.latest = st
				m.received = true
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("PC Monitor Bridge") + "  " +
		subtleStyle.Render("device "+device.Target.String()+"  q to quit")

	if !m.received {
		return lipgloss.JoinVertical(lipgloss.Left, header, subtleStyle.Render("waiting for bridge..."))
	}

	link := card("Link", linkBody(s))
	if !s.HasFrame {
		return lipgloss.JoinVertical(lipgloss.Left, header, link)
	}

	snap := s.Snapshot
	cpuCard := card("CPU", gaugeBar(float64(snap.CPUUsage), 24))
	memCard := card("Memory",
		fmt.Sprintf("%s  of %s", gaugeBar(float64(snap.RAMUsage), 24), magnitude(snap.RAMMax, snap.RAMUnit)))
	gpuCard := card("GPU", gpuBody(snap))
	frameCard := card("Frame", hexDump(s.Frame[:]))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, link, frameCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, gpuCard)
	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2)
}

func linkBody(s bridge.Status) string {
	state := warnStyle.Render(s.State.String())
	if s.State == bridge.Streaming {
		state = okStyle.Render(s.State.String())
	}
	port := s.Port
	if port == "" {
		port = "-"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "state %s  port %s\n", state, port)
	fmt.Fprintf(&b, "sent %d  dropped %d  reconnects %d", s.Sent, s.Dropped, s.Reconnects)
	if s.LastError != "" {
		fmt.Fprintf(&b, "\nlast error: %s", truncate(s.LastError, 48))
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "\n%s", subtleStyle.Render(s.UpdatedAt.Format("15:04:05")))
	}
	return b.String()
}

func gpuBody(snap model.Snapshot) string {
	if !snap.HasGPU() {
		return subtleStyle.Render("no GPU data")
	}
	return fmt.Sprintf("core %s\nvram %s  of %s",
		gaugeBar(float64(snap.GPUUsage), 24),
		gaugeBar(float64(snap.VRAMUsage), 24),
		magnitude(snap.VRAMMax, snap.VRAMUnit))
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

// magnitude renders a value with one implied decimal, e.g. 160 GB -> "16.0 GB".
func magnitude(v uint16, unit model.UnitLabel) string {
	return fmt.Sprintf("%d.%d %s", v/10, v%10, unit)
}

func hexDump(b []byte) string {
	half := len(b) / 2
	return fmt.Sprintf("% x\n% x", b[:half], b[half:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the Bubble Tea program and blocks until the user quits or
// ctx ends.
func Run(ctx context.Context, stream <-chan bridge.Status, quit func()) error {
	prog := tea.NewProgram(New(stream, quit), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
