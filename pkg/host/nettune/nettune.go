// Package nettune applies optional TCP performance sysctls. Like the
// firewall stage, everything here is best-effort.
package nettune

import (
	"fmt"
	"strings"

	sysctl "github.com/lorenzosaino/go-sysctl"
)

const (
	availableKey  = "net.ipv4.tcp_available_congestion_control"
	congestionKey = "net.ipv4.tcp_congestion_control"
	qdiscKey      = "net.core.default_qdisc"

	congestionAlg = "bbr"
	qdisc         = "fq"
)

// Sysctl reads and writes kernel parameters. The default implementation uses
// /proc/sys via go-sysctl.
type Sysctl interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

type procSysctl struct{}

func (procSysctl) Get(key string) (string, error) { return sysctl.Get(key) }
func (procSysctl) Set(key, value string) error    { return sysctl.Set(key, value) }

// Tuner switches the kernel to the bbr congestion controller with the fq
// queueing discipline.
type Tuner struct {
	s Sysctl
}

// New returns a Tuner on the host kernel.
func New() *Tuner {
	return &Tuner{s: procSysctl{}}
}

// NewWithSysctl returns a Tuner on an alternate Sysctl, for tests.
func NewWithSysctl(s Sysctl) *Tuner {
	return &Tuner{s: s}
}

// Available reports whether the kernel exposes the congestion-control knob
// and supports bbr.
func (t *Tuner) Available() bool {
	algs, err := t.s.Get(availableKey)
	if err != nil {
		return false
	}
	for _, a := range strings.Fields(algs) {
		if a == congestionAlg {
			return true
		}
	}
	return false
}

// Apply sets the qdisc and congestion-control parameters.
func (t *Tuner) Apply() error {
	if err := t.s.Set(qdiscKey, qdisc); err != nil {
		return fmt.Errorf("setting %s: %w", qdiscKey, err)
	}
	if err := t.s.Set(congestionKey, congestionAlg); err != nil {
		return fmt.Errorf("setting %s: %w", congestionKey, err)
	}
	return nil
}
