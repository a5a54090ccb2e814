package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/craftlaunch/pkg/launch"
	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/progress"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

const barWidth = 40

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorDim)
	stageStyle     = lipgloss.NewStyle().Foreground(colorGray).Width(22)
)

// =============================================================================
// Messages
// =============================================================================

// progressMsg carries one launch event into the model.
type progressMsg progress.Progress

// finishedMsg reports the end of the attempt.
type finishedMsg struct {
	state  supervise.State
	result *launch.Result
	err    error
}

// =============================================================================
// LaunchModel - launch progress display
// =============================================================================

// LaunchModel is the bubbletea model that renders a launch attempt. Update is
// a pure function of the incoming messages; the channel reads happen in the
// commands it returns.
type LaunchModel struct {
	Version  string
	Username string

	Latest  progress.Progress
	Percent float64
	Events  int

	Finished bool
	Aborted  bool
	State    supervise.State
	Result   *launch.Result
	Err      error

	events <-chan progress.Progress
	wait   func() finishedMsg
}

// NewLaunchModel creates a model that follows a.
func NewLaunchModel(a *launch.Attempt) LaunchModel {
	return newLaunchModel(a.Version, a.Username, a.Events(), func() finishedMsg {
		res, err := a.Wait(context.Background())
		return finishedMsg{state: a.State(), result: res, err: err}
	})
}

func newLaunchModel(version, username string, events <-chan progress.Progress, wait func() finishedMsg) LaunchModel {
	return LaunchModel{Version: version, Username: username, events: events, wait: wait}
}

// next reads one event, or waits for the attempt once the channel closes.
func (m LaunchModel) next() tea.Cmd {
	events, wait := m.events, m.wait
	return func() tea.Msg {
		p, ok := <-events
		if !ok {
			return wait()
		}
		return progressMsg(p)
	}
}

func (m LaunchModel) Init() tea.Cmd {
	return m.next()
}

func (m LaunchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Aborted = true
			return m, tea.Quit
		}
	case progressMsg:
		p := progress.Progress(msg)
		m.Latest = p
		m.Events++
		// The bar never moves backwards even if an event is reordered.
		m.Percent = max(m.Percent, p.Percentage())
		return m, m.next()
	case finishedMsg:
		m.Finished = true
		m.State = msg.state
		m.Result = msg.result
		m.Err = msg.err
		if msg.err == nil {
			m.Percent = 100
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m LaunchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Launching Minecraft " + m.Version))
	b.WriteString(StyleDim.Render(" as " + m.Username))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.Percent, barWidth))
	b.WriteString(StyleValue.Render(fmt.Sprintf(" %3.0f%%", m.Percent)))
	b.WriteString("\n")

	stage := m.Latest.Stage.String()
	if m.Events == 0 {
		stage = "starting"
	}
	b.WriteString(stageStyle.Render(stage))
	b.WriteString(StyleDim.Render(m.Latest.Message))
	b.WriteString("\n")

	if !m.Finished {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("q to stop watching"))
		b.WriteString("\n")
	}
	return b.String()
}

// renderBar draws a fixed-width bar for pct in [0, 100].
func renderBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// =============================================================================
// ProfileListModel - interactive profile selection
// =============================================================================

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
)

// ProfileListModel lets the user pick the profile to launch with.
type ProfileListModel struct {
	Profiles []profile.Profile
	Cursor   int
	Selected *profile.Profile
}

// NewProfileListModel creates a picker over profiles.
func NewProfileListModel(profiles []profile.Profile) ProfileListModel {
	return ProfileListModel{Profiles: profiles}
}

func (m ProfileListModel) Init() tea.Cmd {
	return nil
}

func (m ProfileListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Profiles)-1 {
				m.Cursor++
			}
		case "enter":
			p := m.Profiles[m.Cursor]
			m.Selected = &p
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ProfileListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Profile"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, p := range m.Profiles {
		args := p.Args()
		if args == "" {
			args = "default JVM arguments"
		}
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(fmt.Sprintf("▸ %-18s", p.Username)))
		} else {
			b.WriteString(listNormalStyle.Render(fmt.Sprintf("  %-18s", p.Username)))
		}
		b.WriteString(" " + StyleDim.Render(args) + "\n")
	}
	return b.String()
}

// chooseProfile runs the picker and returns the selection, or false when
// the user quit.
func chooseProfile(profiles []profile.Profile) (profile.Profile, bool, error) {
	final, err := tea.NewProgram(NewProfileListModel(profiles), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return profile.Profile{}, false, err
	}
	m := final.(ProfileListModel)
	if m.Selected == nil {
		return profile.Profile{}, false, nil
	}
	return *m.Selected, true, nil
}
