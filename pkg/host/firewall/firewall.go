// Package firewall opens server ports when a firewall is present on the
// host. Rule insertion is best-effort: callers treat every error here as
// recoverable.
package firewall

import (
	"fmt"
	"strconv"

	"github.com/coreos/go-iptables/iptables"
)

// Firewall ensures inbound traffic on a port is allowed.
type Firewall interface {
	// EnsureAllow inserts an accept rule for proto ("tcp" or "udp") on port
	// if one is not already present.
	EnsureAllow(proto string, port int) error
}

// rules is the slice of go-iptables used by this package, extracted so
// tests can fake the iptables binary.
type rules interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Append(table, chain string, rulespec ...string) error
}

type ipTables struct {
	ipt rules
}

// Detect returns a Firewall backed by the host iptables, or an error when no
// usable iptables is present (callers then skip the firewall stage).
func Detect() (Firewall, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, fmt.Errorf("iptables unavailable: %w", err)
	}
	return &ipTables{ipt: ipt}, nil
}

func (f *ipTables) EnsureAllow(proto string, port int) error {
	rule := []string{"-p", proto, "--dport", strconv.Itoa(port), "-j", "ACCEPT"}
	ok, err := f.ipt.Exists("filter", "INPUT", rule...)
	if err != nil {
		return fmt.Errorf("checking %s/%d rule: %w", proto, port, err)
	}
	if ok {
		return nil
	}
	if err := f.ipt.Append("filter", "INPUT", rule...); err != nil {
		return fmt.Errorf("adding %s/%d rule: %w", proto, port, err)
	}
	return nil
}
