//go:build unix

package blender

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Unidata/LDM-sub002/internal/logx"
)

// watchLogLevelSignals mirrors the teacher's client/signal.go SIGUSR1
// handler: SIGUSR1 raises the log level, SIGUSR2 lowers it, matching spec
// 4.5 ("SIGUSR1/SIGUSR2 are reserved for log-level adjustment and are
// ignored by the core" — ignored by the ordering/buffer logic, but still
// meaningful to the ambient logging layer).
func watchLogLevelSignals(log *logx.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range ch {
			switch sig {
			case syscall.SIGUSR1:
				if log.Level() < logx.LevelDebug {
					log.SetLevel(log.Level() + 1)
				}
				log.Infof("log level raised to %d", log.Level())
			case syscall.SIGUSR2:
				if log.Level() > logx.LevelWarn {
					log.SetLevel(log.Level() - 1)
				}
				log.Infof("log level lowered to %d", log.Level())
			}
		}
	}()
}
