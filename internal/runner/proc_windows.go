//go:build windows
// +build windows

package runner

import (
	"os/exec"
)

// setProcessGroup is a no-op on Windows.
func setProcessGroup(c *exec.Cmd) {}

// killGroup kills the child process.
func killGroup(c *exec.Cmd) error {
	if c.Process == nil {
		return nil
	}
	return c.Process.Kill()
}
