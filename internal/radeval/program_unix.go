//go:build unix

package radeval

import (
	"os/exec"
	"syscall"
)

func killProcessGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the group led by the program.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
