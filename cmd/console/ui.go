package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/case-engine/internal/session"
	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/dialogue"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/textfilter"
	"github.com/muesli/reflow/wordwrap"
)

const (
	frameInterval = 16 * time.Millisecond
	maxFrame      = 100 * time.Millisecond
	stepSize      = 10.0
)

// Game is what the console drives. *session.Session satisfies it.
type Game interface {
	Update(dt time.Duration, in session.Input)
	Interact(targetID string) bool
	UseItem(itemID string) (items.UseResult, bool)
	Accuse(suspectID, crimeID string) (cases.Verdict, error)
	NewGame() error
	Report() session.Report
	Suspects() []session.Suspect
	Interactables() []string
}

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Confirm, Exit         key.Binding
	NextTarget, Interact  key.Binding
	NextItem, Use         key.Binding
	Accuse, Copy, NewGame key.Binding
	Quit                  key.Binding
}

var keys = keyMap{
	Up:         key.NewBinding(key.WithKeys("up", "w"), key.WithHelp("↑/w", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "s"), key.WithHelp("↓/s", "down")),
	Left:       key.NewBinding(key.WithKeys("left", "a"), key.WithHelp("←/a", "left")),
	Right:      key.NewBinding(key.WithKeys("right", "d"), key.WithHelp("→/d", "right")),
	Confirm:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "confirm")),
	Exit:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave dialogue")),
	NextTarget: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next target")),
	Interact:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "talk/inspect")),
	NextItem:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "next item")),
	Use:        key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "use item")),
	Accuse:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "accuse")),
	Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy state")),
	NewGame:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new game")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Up, k.Left, k.Confirm, k.Exit, k.NextTarget, k.Interact, k.NextItem, k.Use, k.Accuse, k.Copy, k.NewGame, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

type frameMsg time.Time

type copiedMsg struct {
	err error
}

// accusation is one line of the accusation modal.
type accusation struct {
	suspect session.Suspect
	crime   cases.CrimeStatus
}

// ConsoleUI is the BubbleTea model that plays a session.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	game         Game
	mainViewport viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int

	lastFrame time.Time
	// edges and movement collected since the last frame
	pending session.Input

	targets []string
	target  string
	item    int
	status  string

	showAccuseModal bool
	choices         []accusation
	selectedChoice  int

	showQuitModal bool
}

var (
	mainPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("86")).
				Bold(true)

	notificationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalLockedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(game Game) ConsoleUI {
	mainVp := viewport.New(60, 20)
	mainVp.MouseWheelEnabled = true
	metaVp := viewport.New(30, 20)

	return ConsoleUI{
		game:         game,
		mainViewport: mainVp,
		metaViewport: metaVp,
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m ConsoleUI) Init() tea.Cmd {
	return nextFrame()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showAccuseModal {
		return m.updateAccuseModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()

	case frameMsg:
		now := time.Time(msg)
		dt := frameInterval
		if !m.lastFrame.IsZero() {
			dt = min(now.Sub(m.lastFrame), maxFrame)
		}
		m.lastFrame = now
		m.game.Update(dt, m.pending)
		m.pending = session.Input{}
		m.refresh()
		return m, nextFrame()

	case copiedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Copy failed: " + msg.err.Error())
		} else {
			m.status = "State copied to the clipboard."
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var vpCmd tea.Cmd
	m.mainViewport, vpCmd = m.mainViewport.Update(msg)
	return m, vpCmd
}

// handleKey turns a key press into an input edge, a move, or a session action.
// Arrow keys drive the dialogue while one is active and move the player otherwise.
func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inDialogue := m.game.Report().Dialogue.Active

	switch {
	case key.Matches(msg, keys.Quit):
		m.showQuitModal = true
	case key.Matches(msg, keys.Up):
		if inDialogue {
			m.pending.Up = true
		} else {
			m.pending.Move.Y -= stepSize
		}
	case key.Matches(msg, keys.Down):
		if inDialogue {
			m.pending.Down = true
		} else {
			m.pending.Move.Y += stepSize
		}
	case key.Matches(msg, keys.Left):
		m.pending.Move.X -= stepSize
	case key.Matches(msg, keys.Right):
		m.pending.Move.X += stepSize
	case key.Matches(msg, keys.Confirm):
		m.pending.Confirm = true
	case key.Matches(msg, keys.Exit):
		m.pending.Exit = true
	case key.Matches(msg, keys.NextTarget):
		m.cycleTarget()
	case key.Matches(msg, keys.Interact):
		if m.target == "" {
			m.status = "Nothing to interact with."
		} else if !m.game.Interact(m.target) {
			m.status = fmt.Sprintf("%s won't talk right now. Get closer?", textfilter.DisplayName(m.target))
		} else {
			m.status = ""
		}
	case key.Matches(msg, keys.NextItem):
		if n := len(m.game.Report().Inventory); n > 0 {
			m.item = (m.item + 1) % n
		}
	case key.Matches(msg, keys.Use):
		m.useItem()
	case key.Matches(msg, keys.Accuse):
		m.openAccuseModal()
	case key.Matches(msg, keys.Copy):
		return m, copyReport(m.game.Report())
	case key.Matches(msg, keys.NewGame):
		if err := m.game.NewGame(); err != nil {
			m.status = errorStyle.Render("New game failed: " + err.Error())
		} else {
			m.status = "New game started."
			m.target, m.item = "", 0
		}
	}
	m.refresh()
	return m, nil
}

func (m *ConsoleUI) cycleTarget() {
	if len(m.targets) == 0 {
		m.target = ""
		return
	}
	i := slices.Index(m.targets, m.target)
	m.target = m.targets[(i+1)%len(m.targets)]
}

func (m *ConsoleUI) useItem() {
	inv := m.game.Report().Inventory
	if len(inv) == 0 {
		m.status = "Your pockets are empty."
		return
	}
	it := inv[min(m.item, len(inv)-1)]
	if _, ok := m.game.UseItem(it.ID); !ok {
		m.status = "You can't use that right now."
		return
	}
	m.status = ""
}

func copyReport(r session.Report) tea.Cmd {
	return func() tea.Msg {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return copiedMsg{err: fmt.Errorf("failed to marshal report: %w", err)}
		}
		return copiedMsg{err: clipboard.WriteAll(string(data))}
	}
}

func (m *ConsoleUI) openAccuseModal() {
	m.choices = m.choices[:0]
	for _, s := range m.game.Suspects() {
		for _, c := range s.Crimes {
			m.choices = append(m.choices, accusation{suspect: s, crime: c})
		}
	}
	m.selectedChoice = 0
	m.showAccuseModal = true
}

func (m ConsoleUI) updateAccuseModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case frameMsg:
		// Time keeps running behind the modal.
		m.lastFrame = time.Time(msg)
		m.game.Update(frameInterval, session.Input{})
		return m, nextFrame()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.showAccuseModal = false
		case tea.KeyUp:
			if m.selectedChoice > 0 {
				m.selectedChoice--
			}
		case tea.KeyDown:
			if m.selectedChoice < len(m.choices)-1 {
				m.selectedChoice++
			}
		case tea.KeyEnter:
			if len(m.choices) == 0 {
				m.showAccuseModal = false
				break
			}
			c := m.choices[m.selectedChoice]
			v, err := m.game.Accuse(c.suspect.ID, c.crime.ID)
			switch {
			case err != nil:
				m.status = errorStyle.Render(err.Error())
			case v.Correct:
				m.status = fmt.Sprintf("%s is guilty of %s.", c.suspect.Name, strings.ToLower(c.crime.Label))
			default:
				m.status = errorStyle.Render(fmt.Sprintf("%s didn't do it.", c.suspect.Name))
			}
			m.showAccuseModal = false
			m.refresh()
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case frameMsg:
		m.lastFrame = time.Time(msg)
		return m, nextFrame()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N", "esc":
				m.showQuitModal = false
			}
		}
	}
	return m, nil
}

func (m *ConsoleUI) resize(width, height int) {
	m.width = width
	m.height = height

	mainWidth := int(float64(m.width)*0.65) - 4
	metaWidth := m.width - mainWidth - 6

	m.mainViewport.Width = mainWidth - 2
	m.mainViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 3
	m.ready = true
}

// refresh re-reads the session and redraws both panels.
func (m *ConsoleUI) refresh() {
	m.targets = m.game.Interactables()
	if !slices.Contains(m.targets, m.target) {
		m.target = ""
		if len(m.targets) > 0 {
			m.target = m.targets[0]
		}
	}
	r := m.game.Report()
	width := max(m.mainViewport.Width-4, 20)
	m.mainViewport.SetContent(writeMain(r, m.target, m.status, width))
	m.metaViewport.SetContent(writeMetadata(r, m.item))
}

func writeMain(r session.Report, target, status string, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CASE ENGINE") + "\n")
	if r.SceneTitle != "" {
		content.WriteString(r.SceneTitle + "\n")
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	switch r.Outcome.Status {
	case session.StatusVictory:
		content.WriteString(titleStyle.Render("CASE CLOSED") + "\n" + wordwrap.String(r.Outcome.Reason, width) + "\n\n")
	case session.StatusGameOver:
		content.WriteString(errorStyle.Render("GAME OVER") + "\n" + wordwrap.String(r.Outcome.Reason, width) + "\n\n")
	}

	if r.Dialogue.Active {
		content.WriteString(writeDialogue(r.Dialogue, width))
	} else if target != "" {
		content.WriteString(promptStyle.Render("Target: ") + textfilter.DisplayName(target) + "\n\n")
	}

	for _, n := range r.Notifications {
		content.WriteString(notificationStyle.Render(wordwrap.String(n.Message, width)) + "\n")
	}
	if status != "" {
		content.WriteString("\n" + wordwrap.String(status, width) + "\n")
	}
	return content.String()
}

func writeDialogue(v dialogue.View, width int) string {
	var content strings.Builder
	speaker := v.Speaker
	if speaker == "" {
		speaker = textfilter.DisplayName(v.Source)
	}
	content.WriteString(speakerStyle.Render(speaker+":") + "\n")
	content.WriteString(wordwrap.String(v.Text, width) + "\n\n")
	for i, opt := range v.Options {
		line := wordwrap.String(opt, width-4)
		if i == v.Selected {
			content.WriteString(selectedOptionStyle.Render("▶ "+line) + "\n")
		} else {
			content.WriteString(optionStyle.Render("  "+line) + "\n")
		}
	}
	if len(v.Options) == 0 {
		hint := "enter to close"
		if v.CanAdvance {
			hint = "enter to continue"
		}
		content.WriteString(promptStyle.Render(hint) + "\n")
	}
	content.WriteString("\n")
	return content.String()
}

func writeMetadata(r session.Report, item int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CASE FILE") + "\n\n")

	fmt.Fprintf(&content, "Session:\n%s\n\n", shortID(r.SessionID))
	fmt.Fprintf(&content, "Detective:\nHP %d/%d at %s\n\n", r.Player.HP, r.Player.MaxHP, formatPoint(r.Player.Position))

	content.WriteString("Nearby:\n")
	for _, c := range r.Characters {
		fmt.Fprintf(&content, "• %s (%.0f)\n", c.Name, c.Distance)
	}

	content.WriteString("\nInventory:\n")
	if len(r.Inventory) == 0 {
		content.WriteString("Empty\n")
	}
	for i, it := range r.Inventory {
		marker := "•"
		if i == item {
			marker = "▶"
		}
		fmt.Fprintf(&content, "%s %s x%d\n", marker, it.Name, it.Quantity)
	}

	content.WriteString("\nFiles:\n")
	for _, f := range r.Files {
		state := "closed"
		if f.Active {
			state = "open"
		}
		fmt.Fprintf(&content, "• %s (%s)\n", f.Title, state)
	}

	content.WriteString("\nClues:\n")
	for _, c := range r.Clues {
		if !c.Discovered {
			continue
		}
		phase := ""
		if st, ok := r.State.Clues[c.ID]; ok {
			phase = " [" + string(st.Phase) + "]"
		}
		fmt.Fprintf(&content, "• %s%s\n", c.Title, phase)
	}

	content.WriteString("\nReputation:\n")
	for _, k := range []string{"reputation_cops", "reputation_civilians", "reputation_criminals"} {
		fmt.Fprintf(&content, "• %s: %d\n", strings.TrimPrefix(k, "reputation_"), r.State.Counters[k])
	}
	return content.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

func formatPoint(p actor.Point) string {
	return fmt.Sprintf("(%.0f, %.0f)", p.X, p.Y)
}

func (m ConsoleUI) renderAccuseModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Make an Accusation"))
	content.WriteString("\n\n")

	if len(m.choices) == 0 {
		content.WriteString("No suspects in this case.\n")
	}
	for i, c := range m.choices {
		line := fmt.Sprintf("%s: %s", c.suspect.Name, c.crime.Label)
		switch {
		case i == m.selectedChoice:
			content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
		case !c.crime.Available:
			content.WriteString(modalLockedItemStyle.Render(fmt.Sprintf("  %s (needs %s)", line, c.crime.Needs)))
		default:
			content.WriteString(modalItemStyle.Render("  " + line))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to choose, Enter to accuse, Esc to cancel"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the case?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showAccuseModal {
		return m.renderAccuseModal()
	}

	mainWidth := int(float64(m.width)*0.65) - 4
	metaWidth := m.width - mainWidth - 6

	mainPanel := mainPanelStyle.Width(mainWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.mainViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(mainWidth-4, 1))),
			promptStyle.Render(wordwrap.String(keys.help(), max(mainWidth-4, 20))),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, metaPanel)
}
