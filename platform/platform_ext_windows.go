//go:build windows

package platform

import (
	"golang.org/x/sys/windows"
)

// OpenBrowser asks the shell to open url, which launches the default
// browser without flashing a console window.
func OpenBrowser(url string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}

	file, err := windows.UTF16PtrFromString(url)
	if err != nil {
		return err
	}

	return windows.ShellExecute(0, verb, file, nil, nil, windows.SW_SHOWNORMAL)
}
