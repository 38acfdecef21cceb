//go:build windows

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
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
