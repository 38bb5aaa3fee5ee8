//go:build unix

package logx

import (
	"io"
	"log/syslog"
)

// openSyslog connects to the local syslog daemon, tagged the way the rest
// of the LDM-sub002 tooling identifies itself in the system log.
func openSyslog() (io.Writer, error) {
	return syslog.New(syslog.LOG_NOTICE|syslog.LOG_DAEMON, "noaaportBlender")
}
