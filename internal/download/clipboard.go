// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import "github.com/atotto/clipboard"

// SystemClipboard writes to the desktop clipboard (pbcopy, xclip, xsel,
// wl-copy, or the Windows API, whichever the platform provides).
type SystemClipboard struct{}

// Available reports whether a clipboard utility was found.
func (SystemClipboard) Available() bool {
	return !clipboard.Unsupported
}

// WriteText copies text to the clipboard.
func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}
