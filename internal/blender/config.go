// Package blender wires FrameReaders, the CircularFrameBuffer, and the
// Writer into the running process (spec 4.5, BlenderSupervisor).
package blender

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/Unidata/LDM-sub002/internal/logx"
	"github.com/Unidata/LDM-sub002/internal/sink"
)

// Config collects everything BlenderSupervisor needs to start (spec 4.5
// step 2, spec 6 CLI surface).
type Config struct {
	Upstreams []string      `json:"upstreams,omitempty"`
	Timeout   time.Duration `json:"-"`
	PipePath  string        `json:"pipe,omitempty"`
	UseStdout bool          `json:"stdout,omitempty"`
	LogDest   string        `json:"log,omitempty"`
	LogLevel  logx.Level    `json:"-"`

	// SnmpPath and SnmpInterval configure the optional periodic CSV
	// counter dump; SnmpPath may contain a time.Format layout (e.g.
	// "counters-2006-01-02.csv") the way the teacher's SNMP logger
	// templates its own rotated filename. Either zero value disables it.
	SnmpPath     string        `json:"snmp_path,omitempty"`
	SnmpInterval time.Duration `json:"-"`

	SnmpIntervalSeconds float64 `json:"snmp_interval,omitempty"`

	// TimeoutSeconds mirrors -t's "seconds[.fraction]" form for JSON
	// override files, the way the teacher mirrors every CLI flag onto its
	// JSON Config struct in server/config.go.
	TimeoutSeconds float64 `json:"timeout,omitempty"`
}

// Validate applies spec 6's defaults and checks the minimal invariants the
// supervisor relies on before startup.
func (c *Config) Validate() error {
	if len(c.Upstreams) == 0 {
		return errors.New("config: at least one upstream host:port is required")
	}
	expanded, err := ExpandUpstreams(c.Upstreams)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	c.Upstreams = expanded
	if c.PipePath == "" && !c.UseStdout {
		c.PipePath = sink.DefaultPipePath
	}
	if c.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(c.TimeoutSeconds * float64(time.Second))
	}
	if c.Timeout <= 0 {
		return errors.New("config: frame latency timeout must be positive")
	}
	if c.SnmpIntervalSeconds > 0 {
		c.SnmpInterval = time.Duration(c.SnmpIntervalSeconds * float64(time.Second))
	}
	return nil
}

// ParseJSONConfig overlays path's JSON fields onto cfg, the way the
// teacher's parseJSONConfig overlays a JSON file onto its CLI-derived
// Config in client/utils.go and server/config.go.
func ParseJSONConfig(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "config: open %q", path)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return errors.Wrapf(err, "config: decode %q", path)
	}
	return nil
}
