package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=collect", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf("display notification %q with title %q", message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier reports the end of long runs on the console and, when enabled,
// on the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the platform sender. Desktop delivery is off when
// enabled is false or the platform has no supported sender.
func NewNotifier(enabled bool) *Notifier {
	if !enabled {
		return &Notifier{}
	}
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: &LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: &MacOSNotificationSender{}}
	}
	return &Notifier{}
}

// NewNotifierWithSender is used by tests and embedders
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Success prints title and message in green and forwards them
func (n *Notifier) Success(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Green(title), message)
	n.send(title, message)
}

// Failure prints title and message in red and forwards them
func (n *Notifier) Failure(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop delivery is best effort
	_ = n.sender.Send(title, message)
}
