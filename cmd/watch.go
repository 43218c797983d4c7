// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live TUI view of the PMU link",
	Long: `Watch the Thorn link in an interactive terminal UI.

Shows the PMU's last reported state, the watering schedule as observed from
link traffic, frame statistics, and a rolling event log. The view is passive:
nothing is transmitted, so it is safe to attach to a live link between a
controller and its PMU.

Arrow keys scroll the schedule table. Press 'q' to quit.

Supports both serial and WebSocket connections.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Event log entry
type watchLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type watchFrameMsg struct {
	frame thorn.Frame
}
type watchClosedMsg struct{}
type watchTickMsg time.Time

// watchModel is the TUI state for the watch command.
type watchModel struct {
	connInfo string
	stats    *thorn.Statistics

	// Last reported PMU state
	pmuState    string
	wakePending bool
	lastStatus  time.Time
	lastWake    string

	// Schedule as observed from SCHEDULE_ENTRY responses and SET_SCHEDULE
	// commands on the link.
	schedule map[uint8]thorn.ScheduleEntry
	table    table.Model

	eventLog      []watchLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
	closed        bool
}

func newWatchModel(connInfo string) watchModel {
	columns := []table.Column{
		{Title: "Slot", Width: 4},
		{Title: "Time", Width: 5},
		{Title: "Duration", Width: 8},
		{Title: "Days", Width: 24},
		{Title: "Valve", Width: 5},
		{Title: "State", Width: 8},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
		table.WithFocused(true),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return watchModel{
		connInfo:      connInfo,
		stats:         thorn.NewStatistics(),
		pmuState:      "UNKNOWN",
		schedule:      make(map[uint8]thorn.ScheduleEntry),
		table:         t,
		eventLog:      make([]watchLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		watchTickCmd(),
		tea.EnterAltScreen,
	)
}

func watchTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case watchTickMsg:
		m.stats.CalculateRates()
		return m, watchTickCmd()

	case watchClosedMsg:
		m.closed = true
		m.addLogEntry("Connection closed", true)

	case watchFrameMsg:
		m.stats.RecordFrame(msg.frame.Code)
		m.consumeFrame(msg.frame)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, watchLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// consumeFrame folds one decoded frame into the view state.
func (m *watchModel) consumeFrame(f thorn.Frame) {
	switch f.Code {
	case thorn.RespStatus:
		if len(f.Data) >= 2 {
			m.pmuState = formatStateByte(f.Data[0])
			m.wakePending = f.Data[1] != 0
			m.lastStatus = f.Timestamp
		}

	case thorn.RespWakeReason:
		if len(f.Data) >= 1 {
			reason := thorn.FormatWakeReason(thorn.WakeReason(f.Data[0]))
			m.lastWake = fmt.Sprintf("%s at %s", reason, f.Timestamp.Format("15:04:05"))
			if len(f.Data) >= 1+thorn.EntryWireSize {
				if entry, err := thorn.DecodeScheduleEntry(f.Data[1:]); err == nil {
					m.addLogEntry(fmt.Sprintf("Wake (%s): %s", reason, thorn.FormatScheduleEntry(entry)), false)
					break
				}
			}
			m.addLogEntry(fmt.Sprintf("Wake (%s)", reason), false)
		}

	case thorn.RespScheduleComplete:
		m.addLogEntry("Schedule complete, PMU powering down", false)

	case thorn.RespScheduleEntry:
		if len(f.Data) >= 2+thorn.EntryWireSize {
			if entry, err := thorn.DecodeScheduleEntry(f.Data[2:]); err == nil {
				m.schedule[f.Data[0]] = entry
				m.refreshTable()
			}
		}

	case thorn.CmdSetSchedule:
		if len(f.Data) >= 1+thorn.EntryWireSize {
			index := f.Data[0]
			entry, err := thorn.DecodeScheduleEntry(f.Data[1:])
			if err != nil || index == thorn.IndexAdd {
				// Adds land at a slot we cannot see until it is read back.
				break
			}
			if entry.IsZero() {
				delete(m.schedule, index)
				m.addLogEntry(fmt.Sprintf("Slot %d removed", index), false)
			} else {
				m.schedule[index] = entry
				m.addLogEntry(fmt.Sprintf("Slot %d set: %s", index, thorn.FormatScheduleEntry(entry)), false)
			}
			m.refreshTable()
		}

	case thorn.CmdClearSchedule:
		m.schedule = make(map[uint8]thorn.ScheduleEntry)
		m.refreshTable()
		m.addLogEntry("Schedule cleared", false)

	case thorn.RespNack:
		if len(f.Data) >= 2 {
			m.addLogEntry(fmt.Sprintf("NACK %s: %s",
				thorn.FormatCode(f.Data[0]),
				thorn.FormatErrorCode(thorn.ErrorCode(f.Data[1]))), true)
		}
	}
}

// refreshTable rebuilds the schedule table rows in slot order.
func (m *watchModel) refreshTable() {
	slots := make([]int, 0, len(m.schedule))
	for slot := range m.schedule {
		slots = append(slots, int(slot))
	}
	sort.Ints(slots)

	rows := make([]table.Row, 0, len(slots))
	for _, slot := range slots {
		e := m.schedule[uint8(slot)]
		state := "enabled"
		if !e.Enabled {
			state = "disabled"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", slot),
			fmt.Sprintf("%02d:%02d", e.Hour, e.Minute),
			fmt.Sprintf("%d s", e.Duration),
			thorn.FormatDaysMask(e.DaysMask),
			fmt.Sprintf("%d", e.ValveID),
			state,
		})
	}
	m.table.SetRows(rows)
}

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("BRAMBLE - PMU WATCH"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	if m.closed {
		s.WriteString(errorStyle.Render("✗ Connection closed"))
		s.WriteString("\n\n")
	}

	// PMU state
	stateContent := strings.Builder{}
	stateStyle := valueStyle
	if m.pmuState == "ERROR" {
		stateStyle = errorStyle
	}
	stateContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("State:"), stateStyle.Render(m.pmuState),
		labelStyle.Render("Wake pending:"), valueStyle.Render(fmt.Sprintf("%v", m.wakePending)),
	))
	if !m.lastStatus.IsZero() {
		stateContent.WriteString(headerStyle.Render(
			fmt.Sprintf("   (reported %s)", m.lastStatus.Format("15:04:05"))))
	}
	if m.lastWake != "" {
		stateContent.WriteString(fmt.Sprintf("\n%s %s",
			labelStyle.Render("Last wake:"), valueStyle.Render(m.lastWake)))
	}
	s.WriteString(boxStyle.Render(stateContent.String()))
	s.WriteString("\n\n")

	// Schedule table
	s.WriteString(labelStyle.Render(fmt.Sprintf("Observed Schedule (%d slots):", len(m.schedule))))
	s.WriteString("\n")
	if len(m.schedule) == 0 {
		s.WriteString(headerStyle.Render("  (no entries observed yet)"))
		s.WriteString("\n")
	} else {
		s.WriteString(m.table.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")

	// Statistics
	m.stats.CalculateRates()
	statsContent := fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("NACKs:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.NackFrames)),
		labelStyle.Render("Checksum:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f f/s", m.stats.FrameRate)),
	)
	s.WriteString(boxStyle.Render(statsContent))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 22
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					infoStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	m := newWatchModel(connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})

	// Reader goroutine feeds decoded frames to the TUI.
	go func() {
		parser := thorn.NewParser()
		buf := make([]byte, 128)
		for {
			select {
			case <-done:
				return
			default:
			}

			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-done:
				default:
					if err == ErrConnectionClosed {
						p.Send(watchClosedMsg{})
						return
					}
					time.Sleep(10 * time.Millisecond)
				}
				continue
			}

			for i := 0; i < n; i++ {
				if parser.ProcessByte(buf[i]) {
					p.Send(watchFrameMsg{frame: parser.Frame()})
					parser.Reset()
				}
			}
		}
	}()

	_, err = p.Run()
	close(done)
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
