// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/capture"
	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// controller is the part of a device session the dashboard drives
type controller interface {
	GetAll() error
	EnableOutput() error
	DisableOutput() error
	StartMetering() error
	StopMetering() error
	Set(sp dps150.Setpoint, value float64) error
	Stats() dps150.Statistics
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// monitorModel is the Bubble Tea model for the monitor dashboard
type monitorModel struct {
	ctrl     controller
	updates  <-chan dps150.Update
	connInfo string
	interval time.Duration

	// Merged view of every update received
	reading    dps150.Update
	lastUpdate time.Time
	anomalies  map[string]bool

	stats         dps150.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int

	// Optional capture
	recorder *capture.Writer
	session  string

	// Setpoint entry
	input   textinput.Model
	editing bool

	width        int
	height       int
	quitting     bool
	disconnected bool
	lastPoll     time.Time
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type updateMsg dps150.Update

type updatesClosedMsg struct{}

type commandResultMsg struct {
	action string
	err    error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newMonitorModel(ctrl controller, updates <-chan dps150.Update, connInfo string, interval time.Duration) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "vset 12.5"
	ti.Prompt = "set> "
	ti.CharLimit = 24
	ti.Width = 24

	return monitorModel{
		ctrl:          ctrl,
		updates:       updates,
		connInfo:      connInfo,
		interval:      interval,
		anomalies:     make(map[string]bool),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		input:         ti,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		waitForUpdate(m.updates),
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

// waitForUpdate delivers the next update from the session
func waitForUpdate(updates <-chan dps150.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

// runCommand sends a command off the UI goroutine
func (m monitorModel) runCommand(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return commandResultMsg{action: action, err: fn()}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.stats = m.ctrl.Stats()
		var cmd tea.Cmd
		if !m.disconnected && m.interval > 0 && time.Time(msg).Sub(m.lastPoll) >= m.interval {
			m.lastPoll = time.Time(msg)
			cmd = m.runCommand("", m.ctrl.GetAll)
		}
		return m, tea.Batch(monitorTickCmd(), cmd)

	case updateMsg:
		m.applyUpdate(dps150.Update(msg))
		return m, waitForUpdate(m.updates)

	case updatesClosedMsg:
		m.disconnected = true
		m.addLogEntry("Session ended", true)

	case commandResultMsg:
		if msg.err != nil {
			label := msg.action
			if label == "" {
				label = "ALL request"
			}
			m.addLogEntry(fmt.Sprintf("%s failed: %v", label, msg.err), true)
		} else if msg.action != "" {
			m.addLogEntry(msg.action, false)
		}
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "o":
		if m.outputOn() {
			return m, m.runCommand("Output disabled", m.ctrl.DisableOutput)
		}
		return m, m.runCommand("Output enabled", m.ctrl.EnableOutput)

	case "m":
		if m.meteringOn() {
			return m, m.runCommand("Metering stopped", m.ctrl.StopMetering)
		}
		return m, m.runCommand("Metering started", m.ctrl.StartMetering)

	case "g":
		return m, m.runCommand("ALL requested", m.ctrl.GetAll)

	case "s", "v", "c":
		m.editing = true
		switch msg.String() {
		case "v":
			m.input.SetValue("vset ")
		case "c":
			m.input.SetValue("cset ")
		default:
			m.input.SetValue("")
		}
		m.input.CursorEnd()
		return m, m.input.Focus()
	}

	return m, nil
}

func (m monitorModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.editing = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case "enter":
		line := m.input.Value()
		m.editing = false
		m.input.Blur()
		m.input.SetValue("")

		fields := strings.Fields(line)
		if len(fields) != 2 {
			m.addLogEntry(fmt.Sprintf("Expected '<what> <value>', got %q", line), true)
			return m, nil
		}
		sp, value, err := parseSetpoint(fields[0], fields[1])
		if err != nil {
			m.addLogEntry(err.Error(), true)
			return m, nil
		}
		action := fmt.Sprintf("Set %s = %g", sp.Name, value)
		return m, m.runCommand(action, func() error { return m.ctrl.Set(sp, value) })
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyUpdate merges u into the reading, records it, and logs any new
// anomalies
func (m *monitorModel) applyUpdate(u dps150.Update) {
	now := time.Now()
	m.reading.Merge(u)
	m.lastUpdate = now

	if m.recorder != nil {
		if err := m.recorder.Write(capture.Record{Time: now, Session: m.session, Update: u}); err != nil {
			m.addLogEntry(fmt.Sprintf("Capture write failed: %v", err), true)
			m.recorder = nil
		}
	}

	current := make(map[string]bool)
	for _, issue := range dps150.ValidateUpdate(u) {
		current[issue.Message] = true
		if !m.anomalies[issue.Message] {
			m.addLogEntry(issue.Message, true)
		}
	}
	m.anomalies = current
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// outputOn reports whether the supply last said its output relay is closed
func (m monitorModel) outputOn() bool {
	return m.reading.OutputClosed != nil && *m.reading.OutputClosed
}

// meteringOn reports whether metering is running; a closed meter is stopped
func (m monitorModel) meteringOn() bool {
	return m.reading.MeteringClosed != nil && !*m.reading.MeteringClosed
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("DPSCTL MONITOR"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.disconnected {
		connStatus = warningStyle.Render("DISCONNECTED")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | o=output m=metering v/c/s=set g=refresh q=quit", connStatus)))
	s.WriteString("\n")
	if name, ok := m.reading.Get("modelName"); ok {
		s.WriteString(headerStyle.Render(fmt.Sprintf(" %s  hw %s  fw %s", name, m.fieldText("hardwareVersion", ""), m.fieldText("firmwareVersion", ""))))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderReadings())
	s.WriteString("\n")
	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n")

	if m.editing {
		s.WriteString(m.input.View())
	} else {
		s.WriteString(headerStyle.Render("Press v, c or s to enter a setpoint"))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog())

	return s.String()
}

// fieldText renders a reading field with a unit, or "--" when unknown
func (m monitorModel) fieldText(name, unit string) string {
	v, ok := m.reading.Get(name)
	if !ok {
		return "--"
	}
	if v.Kind() == dps150.KindFloat {
		return fmt.Sprintf("%.3f%s", v.Float(), unit)
	}
	return v.String() + unit
}

func (m monitorModel) row(label, name, unit string) string {
	return fmt.Sprintf("%s %s\n", statsLabelStyle.Render(fmt.Sprintf("%-10s", label)), statsValueStyle.Render(m.fieldText(name, unit)))
}

func (m monitorModel) renderReadings() string {
	var out strings.Builder
	out.WriteString(m.row("Voltage", "outputVoltage", " V"))
	out.WriteString(m.row("Current", "outputCurrent", " A"))
	out.WriteString(m.row("Power", "outputPower", " W"))
	out.WriteString(m.row("Mode", "mode", ""))

	state := statsValueStyle.Render("OFF")
	if m.outputOn() {
		state = warningStyle.Render("ON")
	}
	out.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render(fmt.Sprintf("%-10s", "Output")), state))

	protection := statsValueStyle.Render("OK")
	if p := m.reading.ProtectionState; p != nil && *p != "" {
		protection = errorStyle.Render(*p)
	}
	out.WriteString(fmt.Sprintf("%s %s", statsLabelStyle.Render(fmt.Sprintf("%-10s", "Protect")), protection))

	var set strings.Builder
	set.WriteString(m.row("Set V", "setVoltage", " V"))
	set.WriteString(m.row("Set I", "setCurrent", " A"))
	set.WriteString(m.row("Input", "inputVoltage", " V"))
	set.WriteString(m.row("Temp", "temperature", " C"))
	set.WriteString(m.row("Capacity", "outputCapacity", " Ah"))
	set.WriteString(m.row("Energy", "outputEnergy", " Wh"))

	var limits strings.Builder
	limits.WriteString(m.row("OVP", "overVoltageProtection", " V"))
	limits.WriteString(m.row("OCP", "overCurrentProtection", " A"))
	limits.WriteString(m.row("OPP", "overPowerProtection", " W"))
	limits.WriteString(m.row("OTP", "overTemperatureProtection", " C"))
	limits.WriteString(m.row("LVP", "lowVoltageProtection", " V"))
	limits.WriteString(m.row("Max V", "upperLimitVoltage", " V"))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(strings.TrimRight(out.String(), "\n")),
		" ",
		boxStyle.Render(strings.TrimRight(set.String(), "\n")),
		" ",
		boxStyle.Render(strings.TrimRight(limits.String(), "\n")),
	)
}

func (m monitorModel) renderStatisticsBar() string {
	errCount := m.stats.ChecksumRejects + m.stats.ReadErrors
	errorText := statsValueStyle.Render("0")
	if errCount > 0 {
		errorText = errorStyle.Render(fmt.Sprintf("%d", errCount))
	}

	age := "--"
	if !m.lastUpdate.IsZero() {
		age = fmt.Sprintf("%.1fs ago", time.Since(m.lastUpdate).Seconds())
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Errors:"), errorText,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f fr/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Last:"), statsValueStyle.Render(age),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m monitorModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := m.height - 20 // Reserve space for readings and stats
	if logHeight < 5 {
		logHeight = 5
	}

	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

func runMonitorTUI(cmd *cobra.Command) error {
	rec, closeRec, err := openRecorder()
	if err != nil {
		return err
	}
	defer closeRec()

	// Log lines would tear the alternate screen
	prev := logger
	logger = zerolog.Nop()
	defer func() { logger = prev }()

	return runSession(cmd.Context(), openerFunc(), func(ctx context.Context, dev *device.Device) error {
		m := newMonitorModel(dev, dev.Updates(), connectionLabel(), seconds(monitorInterval))
		m.recorder = rec
		m.session = dev.SessionID()
		m.addLogEntry("Session "+m.session+" open", false)

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
}
