package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"catalogsync/pkg/models"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

type LinuxNotificationSender struct{}

func (LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=catalogsync", title, message).Run()
}

type MacOSNotificationSender struct{}

func (MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

type WindowsNotificationSender struct{}

func (WindowsNotificationSender) Send(title, message string) error {
	quote := func(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName('text')
		$text.Item(0).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('catalogsync').Show($toast)
	`, quote(title), quote(message))
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// PlatformSender picks the sender for the running OS, nil when unsupported
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return LinuxNotificationSender{}
	case "darwin":
		return MacOSNotificationSender{}
	case "windows":
		return WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier reports finished sync jobs on the console and, when a sender is
// set, on the desktop. Desktop failures are ignored
type Notifier struct {
	console *Console
	sender  NotificationSender
}

func NewNotifier(console *Console, sender NotificationSender) *Notifier {
	return &Notifier{console: console, sender: sender}
}

// NotifySync announces the outcome of a terminal snapshot
func (n *Notifier) NotifySync(p models.SyncProgress) {
	message := ""
	if p.Message != nil {
		message = *p.Message
	}

	switch p.Status {
	case models.StatusCompleted:
		n.console.Success("Sync completed: " + message)
		n.send("Catalog sync completed", message)
	case models.StatusError:
		reason := message
		if p.Error != nil {
			reason = *p.Error
		}
		n.console.Error("Sync failed", fmt.Errorf("%s", reason))
		n.send("Catalog sync failed", reason)
	}
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	_ = n.sender.Send(title, message)
}
