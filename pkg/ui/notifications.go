package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"guideprogress/pkg/config"
	"guideprogress/pkg/progress"
)

// achievementTitles maps the built-in achievements to display names
var achievementTitles = map[string]string{
	progress.AchievementFirstSection:   "First Steps",
	progress.AchievementCompletionist:  "Completionist",
	progress.AchievementFirstExercise:  "Getting Hands Dirty",
	progress.AchievementHandsOnLearner: "Hands-on Learner",
}

// AchievementTitle returns a display name for id, falling back to the id
func AchievementTitle(id string) string {
	if title, ok := achievementTitles[id]; ok {
		return title
	}
	return id
}

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=guideprogress", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`,
		appleScriptSafe(message), appleScriptSafe(title))
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("guideprogress").Show($toast)
	`, powershellSafe(title), powershellSafe(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func appleScriptSafe(s string) string {
	return strings.NewReplacer(`"`, `'`, `\`, `/`).Replace(s)
}

func powershellSafe(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// platformSender picks the desktop sender for the current OS, or nil
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier announces unlocked achievements and storage trouble
type Notifier struct {
	sender  NotificationSender
	enabled bool
	quiet   bool
}

// NewNotifier creates a Notifier from the notification settings. Desktop
// notifications are only sent when both Enabled and Desktop are set.
func NewNotifier(cfg config.NotificationConfig, quiet bool) *Notifier {
	n := &Notifier{enabled: cfg.Enabled, quiet: quiet}
	if cfg.Enabled && cfg.Desktop {
		n.sender = platformSender()
	}
	return n
}

// NewNotifierWithSender creates an enabled Notifier using sender for
// desktop delivery
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, enabled: true}
}

// Achievement announces a newly unlocked achievement. It matches the
// progress.Options OnUnlock signature.
func (n *Notifier) Achievement(id string) {
	if !n.enabled {
		return
	}
	title := "Achievement unlocked"
	message := AchievementTitle(id)

	if !n.quiet {
		fmt.Fprintf(Output(), "%s %s\n", Magenta("★ "+title+":"), Yellow(message))
	}
	if n.sender != nil {
		// desktop delivery is best effort
		_ = n.sender.Send(title, message)
	}
}

// StorageError tells the user their progress may not be saved
func (n *Notifier) StorageError(err error) {
	if n.quiet {
		return
	}
	PrintWarning("Progress may not be saved", err)
}
