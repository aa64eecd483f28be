// Package notify delivers run-completion notifications during watch mode.
package notify

import "fmt"

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Repo    string // Optional repository reference
	RunID   string // Optional run reference
}

// ForRun builds the notification summarizing one completed run. Errored
// units outrank failures: a run that could not execute everything warns
// even when what did execute passed.
func ForRun(repo, runID string, passed, failed, errored int) Notification {
	n := Notification{
		Title: "hornet run complete",
		Message: fmt.Sprintf("%d passed, %d failed, %d errored",
			passed, failed, errored),
		Repo:  repo,
		RunID: runID,
		Type:  NotifySuccess,
	}
	switch {
	case errored > 0:
		n.Type = NotifyWarning
	case failed > 0:
		n.Type = NotifyError
	}
	return n
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }
