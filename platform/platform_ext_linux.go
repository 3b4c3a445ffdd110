//go:build linux

package platform

import (
	"os"
	"os/exec"
)

// OpenBrowser hands url to the desktop's default browser. $BROWSER wins
// when it is set.
func OpenBrowser(url string) error {
	if browser := os.Getenv("BROWSER"); browser != "" {
		return exec.Command(browser, url).Start()
	}

	return exec.Command("xdg-open", url).Start()
}
