package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	NowPlayingView ViewState = iota
	DevicesView
	ProfilesView
	ApplyingView
	ResultView
)

// Player is the session the TUI drives.
type Player interface {
	StartSync(ctx context.Context, interval time.Duration) error
	StopSync()
	Events() <-chan tasks.SyncEvent
	ListTargets(ctx context.Context) ([]models.Device, error)
	ApplyNamedProfile(ctx context.Context, name, device string, progress chan<- tasks.ProgressUpdate) (*tasks.ApplyResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	player       Player
	interval     time.Duration
	profiles     map[string]models.Profile
	width        int
	height       int
	snapshot     *models.PlaybackSnapshot
	syncErr      error
	deviceList   list.Model
	profileList  list.Model
	progressChan chan tasks.ProgressUpdate
	applyDone    chan applyCompleteMsg
	progress     tasks.ProgressUpdate
	result       *tasks.ApplyResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model polling player every interval.
func NewModel(ctx context.Context, player Player, profiles map[string]models.Profile, interval time.Duration) *Model {
	m := &Model{
		ctx:      ctx,
		view:     NowPlayingView,
		player:   player,
		interval: interval,
		profiles: profiles,
		help:     help.New(),
		keys:     newKeyMap(),
	}
	m.profileList = list.New(profileItems(profiles), list.NewDefaultDelegate(), 0, 0)
	m.profileList.Title = "Profiles"
	m.deviceList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.deviceList.Title = "Devices"
	return m
}

// Init starts playback sync.
func (m *Model) Init() tea.Cmd {
	return m.startSync()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.deviceList.SetSize(msg.Width-4, msg.Height-8)
		m.profileList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case syncStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.waitForEvent()

	case syncEventMsg:
		switch msg.Kind {
		case tasks.StateChanged:
			m.snapshot = msg.Snapshot
			m.syncErr = nil
		case tasks.SyncError:
			m.syncErr = msg.Err
		}
		return m, m.waitForEvent()

	case devicesFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.deviceList.SetItems(deviceItems(msg.devices))
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case applyCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	}

	switch m.view {
	case NowPlayingView:
		return m.renderNowPlaying()
	case DevicesView:
		return m.renderList(m.deviceList)
	case ProfilesView:
		return m.renderList(m.profileList)
	case ApplyingView:
		return m.renderApplying()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		m.player.StopSync()
		return m, tea.Quit
	}

	if m.view == ApplyingView {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = NowPlayingView
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.devices) && m.view != ProfilesView:
		m.view = DevicesView
		return m, m.fetchDevices()
	case key.Matches(msg, m.keys.profiles) && m.view != DevicesView:
		m.view = ProfilesView
		return m, nil
	case key.Matches(msg, m.keys.enter) && m.view == ProfilesView:
		if selected, ok := m.profileList.SelectedItem().(profileItem); ok {
			m.view = ApplyingView
			return m, m.applyProfile(selected.name)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case DevicesView:
		m.deviceList, cmd = m.deviceList.Update(msg)
	case ProfilesView:
		m.profileList, cmd = m.profileList.Update(msg)
	}
	return m, cmd
}

func (m *Model) startSync() tea.Cmd {
	return func() tea.Msg {
		return syncStartedMsg{err: m.player.StartSync(m.ctx, m.interval)}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-m.player.Events():
			return syncEventMsg(e)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) fetchDevices() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.player.ListTargets(m.ctx)
		return devicesFetchedMsg{devices: devices, err: err}
	}
}

func (m *Model) applyProfile(name string) tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 16)
	m.applyDone = make(chan applyCompleteMsg, 1)
	progress, done := m.progressChan, m.applyDone

	go func() {
		result, err := m.player.ApplyNamedProfile(m.ctx, name, "", progress)
		done <- applyCompleteMsg{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.applyDone
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList(l list.Model) string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", l.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderNowPlaying() string {
	title := styles.title.Render("Now Playing")
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())

	var b strings.Builder
	b.WriteString(title + "\n")

	switch {
	case m.snapshot == nil:
		b.WriteString(styles.help.Render("Waiting for player state..."))
	case m.snapshot.Item == nil:
		b.WriteString(styles.help.Render("Nothing is playing"))
	default:
		b.WriteString(renderSnapshot(m.snapshot))
	}

	if m.syncErr != nil {
		b.WriteString("\n\n" + styles.warn.Render(fmt.Sprintf("sync: %v", m.syncErr)))
	}

	b.WriteString("\n\n" + helpView)
	return b.String()
}

func renderSnapshot(s *models.PlaybackSnapshot) string {
	state := "⏸ paused"
	if s.IsPlaying {
		state = "▶ playing"
	}

	lines := []string{
		styles.ok.Render(s.Item.Name),
		strings.Join(s.Item.Artists, ", ") + " • " + s.Item.Album,
		"",
		progressBar(s.ProgressMs, s.Item.DurationMs, 40) + " " + formatter.FormatDuration(s.ProgressMs) + " / " + formatter.FormatDuration(s.Item.DurationMs),
		fmt.Sprintf("%s • shuffle %s • repeat %s", state, formatter.OnOff(s.Shuffle), s.Repeat),
	}
	if s.Device != nil {
		lines = append(lines, styles.help.Render(fmt.Sprintf("on %s (%s) • volume %d%%", s.Device.Name, s.Device.Type, s.Device.VolumePercent)))
	}
	return strings.Join(lines, "\n")
}

func progressBar(pos, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width, max(0, pos*width/total))
	}
	return styles.bar.Render(strings.Repeat("━", filled)) + styles.track.Render(strings.Repeat("─", width-filled))
}

func (m *Model) renderApplying() string {
	title := styles.title.Render("Applying Profile")
	return fmt.Sprintf("%s\n\n%s\n%s", title, m.progress.Phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Profile failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}
	if !m.result.Succeeded {
		return styles.warn.Render(fmt.Sprintf("✗ %s stopped at %s: %v", m.result.ProfileName, m.result.FailedStep, m.result.Err)) +
			"\n\n" + helpView
	}

	title := styles.ok.Render(fmt.Sprintf("✓ %s applied", m.result.ProfileName))
	info := fmt.Sprintf("\nSource: %s\nDevice: %s", m.result.SourceRef, m.result.Device.Name)
	if m.result.AppliedVolume != nil {
		info += fmt.Sprintf("\nVolume: %d%%", *m.result.AppliedVolume)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
