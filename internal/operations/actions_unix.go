//go:build unix

package operations

import (
	"os"
	"os/exec"
	"syscall"
)

// SpawnBackgroundSync starts a detached `todosync sync --quiet` so that
// changes the remote did not accept are retried after this process exits.
func SpawnBackgroundSync(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(executable, backgroundSyncArgs(configPath)...)
	// New process group so the sync survives the parent's terminal
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
