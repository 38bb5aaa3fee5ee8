//go:build !unix

package logx

import (
	"io"
	"os"
)

// openSyslog has no local-syslog equivalent on this platform; fall back to
// stderr rather than fail startup over a log destination.
func openSyslog() (io.Writer, error) {
	return os.Stderr, nil
}
