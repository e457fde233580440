package provision

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ssforge/ssforge/pkg/serverconf"
	"github.com/ssforge/ssforge/pretty"
)

// report prints the service state, the rendered config summary, listening
// sockets on the configured port, and the journal tail. It is purely
// informational: it mutates nothing and its errors never fail a run.
func (p *Provisioner) report(ctx context.Context) error {
	sysd, err := p.systemdClient()
	if err != nil {
		return err
	}

	state := "inactive"
	if active, err := sysd.IsActive(ctx, p.cfg.UnitName); err == nil && active {
		state = "active"
	}

	port, method, mode := p.params.Port, p.params.Method, p.params.Mode
	configAge := "-"
	if f, err := serverconf.Load(p.cfg.ServerConfigPath); err == nil {
		port, method, mode = f.ServerPort, f.Method, f.Mode
		if fi, err := os.Stat(p.cfg.ServerConfigPath); err == nil {
			configAge = pretty.SinceString(fi.ModTime())
		}
	}

	t := pretty.Table{
		Header: pretty.Header{"UNIT", "STATE", "PORT", "METHOD", "MODE", "CONFIG AGE"},
		Rows: pretty.Rows{
			{p.cfg.UnitName, state, strconv.Itoa(port), method, mode, configAge},
		},
		Style: pretty.StyleWithBorder,
	}
	t.Fprint(p.out)

	if socks, err := p.sockets(port); err == nil && len(socks) > 0 {
		st := pretty.Table{Header: pretty.Header{"PROTO", "ADDRESS", "PORT", "PID"}}
		for _, s := range socks {
			st.Rows = append(st.Rows, []interface{}{s.Proto, s.Addr, strconv.Itoa(int(s.Port)), strconv.Itoa(int(s.PID))})
		}
		fmt.Fprintln(p.out)
		st.Fprint(p.out)
	}

	if status, err := sysd.Status(ctx, p.cfg.UnitName); err == nil && status != "" {
		fmt.Fprintln(p.out)
		fmt.Fprint(p.out, status)
	}
	if tail, err := sysd.Journal(ctx, p.cfg.UnitName, p.cfg.JournalLines); err == nil && tail != "" {
		fmt.Fprintln(p.out)
		fmt.Fprint(p.out, tail)
	}
	return nil
}
