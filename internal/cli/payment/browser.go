package payment

import (
	"os/exec"
	"runtime"
)

// BrowserNavigator opens URLs in the system browser
type BrowserNavigator struct{}

// Open starts the platform's URL handler without waiting for it
func (BrowserNavigator) Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}
