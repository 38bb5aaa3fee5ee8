//go:build !unix

package blender

import "github.com/Unidata/LDM-sub002/internal/logx"

// watchLogLevelSignals has nothing to hook on this platform; SIGUSR1/2
// don't exist outside unix.
func watchLogLevelSignals(log *logx.Logger) {}
