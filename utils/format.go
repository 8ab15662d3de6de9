package utils

import (
	"fmt"
	"time"
)

// MessageType selects the color of a terminal message.
type MessageType int

// The message types printed by the converter.
const (
	DefaultMessage MessageType = iota
	SuccessMessage
	ErrorMessage
	StatusMessage
	WarningMessage
)

// Terminal colors of the message types.
const (
	DefaultColor = "\x1b[0m"
	StatusColor  = "\x1b[36m"
	SuccessColor = "\x1b[32m"
	ErrorColor   = "\x1b[31m"
	WarningColor = "\x1b[33m"
)

// Brand opens every status line of the converter.
const Brand = "⚡ SVGKIT"

var messageColors = map[MessageType]string{
	DefaultMessage: DefaultColor,
	SuccessMessage: SuccessColor,
	ErrorMessage:   ErrorColor,
	StatusMessage:  StatusColor,
	WarningMessage: WarningColor,
}

// DecorateText wraps s in the color of msgType. Unknown types are returned unchanged.
func DecorateText(s string, msgType MessageType) string {
	c, ok := messageColors[msgType]
	if !ok {
		return s
	}
	return c + s + DefaultColor
}

// StatusLine prefixes msg with the brand.
func StatusLine(msg string, msgType MessageType) string {
	return DecorateText(Brand, StatusMessage) + " " + DecorateText(msg, msgType)
}

// FallbackNotice reports an export saved in another format than the requested one.
func FallbackNotice(requested, actual string) string {
	return DecorateText(fmt.Sprintf("%s is not supported, the image was saved as %s", requested, actual), WarningMessage)
}

// FormatTime rounds an execution time for display: milliseconds below one
// second, seconds with two decimals below one minute, whole seconds above.
func FormatTime(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// FormatBytes formats a byte count with a binary unit, e.g. 1.5 KB.
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
