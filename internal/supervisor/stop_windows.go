//go:build windows

package supervisor

import "os"

func (c *Child) stop() error {
	if c.cmd.Process == nil {
		return nil
	}
	return c.cmd.Process.Kill()
}

func signalExitCode(*os.ProcessState) (int, bool) {
	return 0, false
}
