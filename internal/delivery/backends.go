package delivery

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
	"github.com/micmonay/keybd_event"

	"whispertyper/internal/ports"
)

// SystemClipboard writes through the OS clipboard tools, falling back to
// another clipboard (the webview's) when none is installed.
type SystemClipboard struct {
	Fallback ports.Clipboard
}

func (c SystemClipboard) SetText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		if c.Fallback == nil {
			return errors.New("no clipboard utility available")
		}
		return c.Fallback.SetText(ctx, text)
	}
	if err := clipboard.WriteAll(text); err != nil {
		if c.Fallback != nil {
			if fbErr := c.Fallback.SetText(ctx, text); fbErr == nil {
				return nil
			}
		}
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// RobotgoInput sends keystrokes through robotgo.
type RobotgoInput struct{}

func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Paste presses modifier+v, then releases both.
func (RobotgoInput) Paste(context.Context) error {
	mod := pasteModifier()
	if err := robotgo.KeyToggle(mod); err != nil {
		return fmt.Errorf("press %s: %w", mod, err)
	}
	downErr := robotgo.KeyToggle("v", mod)
	upErr := robotgo.KeyToggle("v", "up")
	modErr := robotgo.KeyToggle(mod, "up")
	return errors.Join(downErr, upErr, modErr)
}

func (RobotgoInput) TypeRune(r rune) error {
	robotgo.TypeStr(string(r))
	return nil
}

// KeybdPaster sends the paste shortcut through keybd_event.
type KeybdPaster struct{}

func (KeybdPaster) Paste(context.Context) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("init keybd_event: %w", err)
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}
	return nil
}
