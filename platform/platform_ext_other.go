//go:build !linux && !darwin && !windows

package platform

import (
	"fmt"
	"runtime"
)

func OpenBrowser(url string) error {
	return fmt.Errorf("opening a browser is not supported on %v", runtime.GOOS)
}
