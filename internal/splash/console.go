package splash

import (
	"shellboot/pkg/logging"
)

// ConsolePresenter renders startup progress as log lines. Used for
// non-interactive runs and as the fallback when no terminal is attached.
type ConsolePresenter struct{}

// NewConsolePresenter returns a presenter that logs progress.
func NewConsolePresenter() *ConsolePresenter {
	return &ConsolePresenter{}
}

// Progress implements Presenter.
func (c *ConsolePresenter) Progress(percent float64, status string) {
	logging.Info("Splash", "[%3.0f%%] %s", percent, status)
}

// Failure implements Presenter.
func (c *ConsolePresenter) Failure(message string) {
	logging.Error("Splash", nil, "Startup failed: %s", message)
}

// Retire implements Presenter.
func (c *ConsolePresenter) Retire() {
	logging.Debug("Splash", "Splash retired")
}
