// ABOUTME: Terminal UI command
// ABOUTME: Runs the bubbletea interface against the tenant database
package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/hirepipe/session"
	"github.com/harperreed/hirepipe/tui"
	"go.uber.org/zap"
)

// ErrNotInteractive is returned when the TUI is started without a terminal.
var ErrNotInteractive = errors.New("the terminal UI needs an interactive terminal")

// TUICommand starts the full-screen interface.
func TUICommand(ctx context.Context, app *App, args []string) error {
	if !app.Interactive {
		return ErrNotInteractive
	}

	var store *session.Store
	if app.Config.UserID != "" {
		s, err := app.Sessions()
		if err != nil {
			app.Logger.Warn("session store unavailable, navigation will not persist", zap.Error(err))
		} else {
			store = s
		}
	}

	model, err := tui.NewModel(app.Env(ctx), store)
	if err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
