package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the Bubble Tea model for the status dashboard.
type Model struct {
	Title    string
	Interval time.Duration

	Status     StatusMsg
	LastUpdate time.Time
	Updates    int

	// UI state
	Frame int
	Width int
	Err   error
}

// NewStatusModel creates a dashboard model.
func NewStatusModel(title string, interval time.Duration) Model {
	return Model{Title: title, Interval: interval}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case StatusMsg:
		m.Status = msg
		m.LastUpdate = time.Now()
		m.Updates++

	case TickMsg:
		m.Frame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// RunStatusWatch shows the dashboard until the user quits or ctx ends,
// calling fetch immediately and then every interval.
func RunStatusWatch(ctx context.Context, title string, interval time.Duration, fetch func(context.Context) StatusMsg) error {
	p := tea.NewProgram(NewStatusModel(title, interval), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			fetchCtx, cancel := context.WithTimeout(ctx, interval)
			msg := fetch(fetchCtx)
			cancel()
			p.Send(msg)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	finalModel, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if fm, ok := finalModel.(Model); ok && fm.Err != nil {
		return fm.Err
	}
	return nil
}
