//go:build !unix

package radeval

import "os/exec"

// Without process groups only the direct child is killed; WaitDelay still
// bounds the wait for its output pipes.
func killProcessGroupOnCancel(cmd *exec.Cmd) {}
