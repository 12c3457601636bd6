//go:build windows

package cmd

import "os"

// shutdownSignals returns the OS signals that stop `serve` and `mcp`.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
