package blender

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var upstreamAddrMatcher = regexp.MustCompile(`(.*):([0-9]{1,5})-?([0-9]{1,5})?`)

// ExpandUpstreams turns each "host:port" or "host:minport-maxport" entry
// into one or more concrete "host:port" dial targets. A redundant fanout
// server is frequently reachable on a contiguous port range, one port per
// multicast-to-unicast gateway instance, so accepting a range here saves an
// operator from spelling out every port by hand.
func ExpandUpstreams(addrs []string) ([]string, error) {
	var out []string
	for _, addr := range addrs {
		matches := upstreamAddrMatcher.FindStringSubmatch(addr)
		if len(matches) < 3 {
			return nil, errors.Errorf("malformed upstream address: %v", addr)
		}
		host := matches[1]
		minPort, err := strconv.Atoi(matches[2])
		if err != nil {
			return nil, errors.Wrapf(err, "upstream address %v", addr)
		}
		maxPort := minPort
		if matches[3] != "" {
			maxPort, err = strconv.Atoi(matches[3])
			if err != nil {
				return nil, errors.Wrapf(err, "upstream address %v", addr)
			}
		}
		if minPort > maxPort || minPort == 0 || maxPort > 65535 {
			return nil, errors.Errorf("invalid port range in upstream address %v", addr)
		}
		for p := minPort; p <= maxPort; p++ {
			out = append(out, host+":"+strconv.Itoa(p))
		}
	}
	return out, nil
}
