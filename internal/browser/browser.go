package browser

import (
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// Open launches the system browser at url. Callers should print the URL
// as well, for sessions where no browser can be spawned.
func Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "[browser.Open] Start")
	}
	return nil
}
