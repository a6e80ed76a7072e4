package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/store"
)

// RefreshFunc triggers an immediate collection cycle outside the regular
// interval. It is invoked on its own goroutine; the result lands in the
// store like any other cycle.
type RefreshFunc func(ctx context.Context) error

// Model renders the shared store. It never samples the host itself: the
// scheduler publishes snapshots and the view only reads.
type Model struct {
	st      *store.Store
	refresh RefreshFunc

	snapshot  *metrics.Snapshot
	ranking   []metrics.ProcessInfo
	refreshed time.Time
	lastErr   error

	width  int
	height int
}

func New(st *store.Store, refresh RefreshFunc) *Model {
	return &Model{
		st:      st,
		refresh: refresh,
		width:   120,
		height:  40,
	}
}

type (
	tickMsg    struct{}
	refreshMsg struct{ err error }
)

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.refresh != nil {
				return m, m.refreshCmd()
			}
		}
	case refreshMsg:
		m.lastErr = msg.err
		m.pull()
	case tickMsg:
		m.pull()
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) refreshCmd() tea.Cmd {
	refresh := m.refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return refreshMsg{err: refresh(ctx)}
	}
}

func (m *Model) pull() {
	if snapshot, ok := m.st.Current(); ok {
		m.snapshot = snapshot
		m.refreshed = time.Now()
	}
	m.ranking = m.st.LatestRanking()
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)

	warningColors = map[metrics.WarningLevel]lipgloss.Style{
		metrics.WarningNormal:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		metrics.WarningModerate: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		metrics.WarningHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		metrics.WarningCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		metrics.WarningUnknown:  subtleStyle,
	}
)

func (m *Model) View() string {
	if m.snapshot == nil {
		return subtleStyle.Render("waiting for first snapshot... (q to quit)")
	}
	s := m.snapshot

	header := titleStyle.Render("System Monitor") + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006")) +
		"  " + subtleStyle.Render("[r] refresh  [q] quit")

	cpuCard := card("CPU", gaugeBar(s.CPUUsage, 28))

	memCard := card("Memory",
		fmt.Sprintf("%s  %.1f/%.1f GiB | Swap %3.0f%%",
			gaugeBar(pct(s.MemoryUsed, s.MemoryTotal), 28),
			bytesToGiB(s.MemoryUsed), bytesToGiB(s.MemoryTotal),
			pct(s.SwapUsed, s.SwapTotal)))

	diskCard := card("Disk",
		fmt.Sprintf("%s  %.1f/%.1f GiB",
			gaugeBar(pct(s.DiskUsed, s.DiskTotal), 28),
			bytesToGiB(s.DiskUsed), bytesToGiB(s.DiskTotal)))

	netCard := card("Network",
		fmt.Sprintf("TX %.1f kbps   RX %.1f kbps   procs %d   up %s",
			s.NetworkSentKbps, s.NetworkRecvKbps,
			s.ProcessCount, formatUptime(s.SystemUptime)))

	gpuCard := ""
	if s.GPU != nil {
		temp := "n/a"
		if s.GPU.Temperature != nil {
			temp = fmt.Sprintf("%.0f°C", *s.GPU.Temperature)
		}
		gpuCard = card("GPU",
			fmt.Sprintf("%s %4.0f%% mem:%.0f/%.0fMiB %s",
				truncate(s.GPU.Name, 14), s.GPU.Usage,
				bytesToMiB(s.GPU.MemoryUsed), bytesToMiB(s.GPU.MemoryTotal), temp))
	}

	tempCard := card("Temperatures", m.renderTemperatures())
	topCard := card("Top Processes", m.renderRanking(10))

	columns := []string{cpuCard, memCard, diskCard}
	if gpuCard != "" {
		columns = append(columns, gpuCard)
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, netCard, tempCard)

	sections := []string{header, line1, line2, topCard}
	if m.lastErr != nil {
		sections = append(sections, errorStyle.Render("refresh failed: "+m.lastErr.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTemperatures() string {
	s := m.snapshot
	level := s.Warning()
	style := warningColors[level]

	entries := []struct {
		name string
		v    *float64
	}{
		{"cpu", s.CPUTemperature},
		{"gpu", s.GPUTemperature},
		{"board", s.MotherboardTemperature},
		{"disk", s.DiskTemperature},
	}

	parts := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		if e.v == nil {
			parts = append(parts, fmt.Sprintf("%s: --", e.name))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %.0f°C", e.name, *e.v))
	}
	parts = append(parts, style.Render(level.String()))

	return strings.Join(parts, "  ")
}

func (m *Model) renderRanking(limit int) string {
	if len(m.ranking) == 0 {
		return subtleStyle.Render("no ranking yet")
	}

	max := min(limit, len(m.ranking))
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-7s %6s %8s %9s %9s\n", "name", "pid", "cpu%", "mem MiB", "tx B", "rx B")
	for i := 0; i < max; i++ {
		p := m.ranking[i]
		fmt.Fprintf(&b, "%-20s %-7d %6.1f %8.1f %9d %9d\n",
			truncate(p.Name, 20), p.PID, p.CPUUsage,
			bytesToMiB(p.Memory), p.NetworkSent, p.NetworkRecv)
	}

	return strings.TrimRight(b.String(), "\n")
}

// Helpers
func gaugeBar(v float64, width int) string {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	filled := int((v / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		v)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func pct(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dh%dm", hours, mins)
}

func bytesToGiB(b uint64) float64 { return float64(b) / (1024 * 1024 * 1024) }
func bytesToMiB(b uint64) float64 { return float64(b) / (1024 * 1024) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run starts the renderer in the alternate screen and blocks until the user
// quits.
func Run(st *store.Store, refresh RefreshFunc) error {
	prog := tea.NewProgram(New(st, refresh), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
