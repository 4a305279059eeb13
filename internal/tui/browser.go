package tui

import (
	"io"

	"github.com/pkg/browser"
)

func init() {
	// The browser launcher echoes its child's output; keep it off the screen.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

func openInBrowser(url string) error {
	return browser.OpenURL(url)
}
