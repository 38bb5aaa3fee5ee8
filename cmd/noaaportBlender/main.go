// Command noaaportBlender reads NBS frames from one or more redundant
// upstream fanout servers, reorders and deduplicates them into a single
// canonical stream, and writes the result to a downstream ingester (spec
// sections 1-2).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/Unidata/LDM-sub002/internal/blender"
	"github.com/Unidata/LDM-sub002/internal/logx"
	"github.com/Unidata/LDM-sub002/internal/sink"
)

// VERSION is injected by build flags when packaging official binaries,
// matching the teacher's cmd/*/main.go convention.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "noaaportBlender"
	myApp.Usage = "blend redundant NOAAPort fanout feeds into one ordered stream"
	myApp.Version = VERSION
	myApp.ArgsUsage = "host:port[-port] [host:port[-port] ...]"
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "l",
			Value: "",
			Usage: `log destination: "" for syslog, "-" for stderr, filename otherwise`,
		},
		cli.StringFlag{
			Name:  "p",
			Value: sink.DefaultPipePath,
			Usage: "downstream sink named-pipe path",
		},
		cli.BoolFlag{
			Name:  "stdout",
			Usage: "write frames to standard output instead of the named pipe",
		},
		cli.Float64Flag{
			Name:  "t",
			Value: 1.0,
			Usage: "frame latency in seconds[.fraction] (reveal-time timeout)",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "informational log level",
		},
		cli.BoolFlag{
			Name:  "x",
			Usage: "debug log level",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "overlay a JSON config file onto the flags above",
		},
		cli.StringFlag{
			Name:  "snmp",
			Value: "",
			Usage: "rotate a CSV counter dump at this path (time.Format layout, e.g. counters-2006-01-02.csv)",
		},
		cli.Float64Flag{
			Name:  "snmp-interval",
			Value: 60,
			Usage: "seconds between counter snapshot rows",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	upstreams := []string(c.Args())
	if len(upstreams) == 0 {
		return cli.NewExitError("at least one upstream host:port is required", 1)
	}

	level := logx.LevelWarn
	if c.Bool("v") {
		level = logx.LevelInfo
	}
	if c.Bool("x") {
		level = logx.LevelDebug
	}

	cfg := blender.Config{
		Upstreams:           upstreams,
		PipePath:            c.String("p"),
		UseStdout:           c.Bool("stdout"),
		LogDest:             c.String("l"),
		LogLevel:            level,
		TimeoutSeconds:      c.Float64("t"),
		SnmpPath:            c.String("snmp"),
		SnmpIntervalSeconds: c.Float64("snmp-interval"),
	}
	if path := c.String("c"); path != "" {
		if err := blender.ParseJSONConfig(&cfg, path); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}

	log, err := logx.Open(cfg.LogDest, level)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer log.Close()

	log.Infof("version: %s", VERSION)
	log.Infof("upstreams: %v", cfg.Upstreams)
	log.Infof("frame latency: %.3fs", cfg.TimeoutSeconds)

	sup, err := blender.New(cfg, log)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if err := sup.Run(context.Background()); err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	return nil
}
