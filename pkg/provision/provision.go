// Package provision turns a bare Linux host into a running, enabled
// shadowsocks service: package install, config render, launcher shim,
// systemd unit, activation, and optional firewall/network tuning.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ssforge/ssforge/config"
	"github.com/ssforge/ssforge/pkg/host"
	"github.com/ssforge/ssforge/pkg/host/firewall"
	"github.com/ssforge/ssforge/pkg/host/fsutil"
	"github.com/ssforge/ssforge/pkg/host/nettune"
	"github.com/ssforge/ssforge/pkg/host/pkgmgr"
	"github.com/ssforge/ssforge/pkg/host/systemd"
	"github.com/ssforge/ssforge/pkg/serverconf"
)

// Provisioner runs the provisioning pipeline against a set of host
// backends. All backends are injectable; the zero set targets the real host.
type Provisioner struct {
	cfg    *config.Config
	params serverconf.Params

	euid     func() int
	execer   host.Execer
	pkgs     pkgmgr.Manager
	sysd     systemd.Client
	fw       firewall.Firewall
	detectFW func() (firewall.Firewall, error)
	tuner    *nettune.Tuner
	sockets  func(port int) ([]host.ListeningSocket, error)
	sleep    func(time.Duration)
	out      io.Writer
	logger   *slog.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithEUID overrides the effective-UID lookup.
func WithEUID(f func() int) Option {
	return func(p *Provisioner) { p.euid = f }
}

// WithExecer overrides the command runner used for backend detection.
func WithExecer(x host.Execer) Option {
	return func(p *Provisioner) { p.execer = x }
}

// WithPackageManager overrides package-manager detection.
func WithPackageManager(m pkgmgr.Manager) Option {
	return func(p *Provisioner) { p.pkgs = m }
}

// WithSystemd overrides systemctl detection.
func WithSystemd(c systemd.Client) Option {
	return func(p *Provisioner) { p.sysd = c }
}

// WithFirewall sets the firewall backend, bypassing detection.
func WithFirewall(f firewall.Firewall) Option {
	return func(p *Provisioner) { p.fw = f }
}

// WithFirewallDetect overrides how the firewall backend is detected.
func WithFirewallDetect(f func() (firewall.Firewall, error)) Option {
	return func(p *Provisioner) { p.detectFW = f }
}

// WithTuner overrides the sysctl tuner.
func WithTuner(t *nettune.Tuner) Option {
	return func(p *Provisioner) { p.tuner = t }
}

// WithSockets overrides the listening-socket lister used by the report.
func WithSockets(f func(port int) ([]host.ListeningSocket, error)) Option {
	return func(p *Provisioner) { p.sockets = f }
}

// WithOutput sets the writer for user-facing report output.
func WithOutput(w io.Writer) Option {
	return func(p *Provisioner) { p.out = w }
}

// WithSleep overrides the settle-delay sleep, for tests.
func WithSleep(f func(time.Duration)) Option {
	return func(p *Provisioner) { p.sleep = f }
}

// New returns a Provisioner for cfg and the given server parameters.
func New(cfg *config.Config, params serverconf.Params, opts ...Option) *Provisioner {
	p := &Provisioner{
		cfg:      cfg,
		params:   params,
		euid:     os.Geteuid,
		execer:   host.System(),
		detectFW: firewall.Detect,
		sockets:  host.ListeningSockets,
		sleep:    time.Sleep,
		out:      os.Stdout,
		logger:   slog.Default().With("run_id", uuid.New().String()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// systemdClient returns the systemd backend, detecting it on first use.
func (p *Provisioner) systemdClient() (systemd.Client, error) {
	if p.sysd != nil {
		return p.sysd, nil
	}
	c, err := systemd.NewClient(p.execer)
	if err != nil {
		return nil, err
	}
	p.sysd = c
	return c, nil
}

// Install runs the full provisioning pipeline. It returns a *StageError on
// any fatal stage failure.
func (p *Provisioner) Install(ctx context.Context) error {
	stages := []Stage{
		{Name: "privilege-check", Run: p.checkPrivilege},
		{Name: "install-package", Run: p.installPackage},
		{Name: "write-config", Run: p.writeServerConfig},
		{Name: "write-wrapper", Run: p.writeWrapper},
		{Name: "write-unit", Run: p.writeUnit},
		{Name: "activate-service", Run: p.activateService},
		{Name: "firewall", BestEffort: true, Run: p.openFirewall},
		{Name: "network-tuning", BestEffort: true, Run: p.tuneNetwork},
		{Name: "status-report", BestEffort: true, Run: p.report},
	}
	return runPipeline(ctx, p.logger, stages)
}

// Uninstall stops and disables the service and removes the files Install
// wrote. Backups are left in place.
func (p *Provisioner) Uninstall(ctx context.Context) error {
	stages := []Stage{
		{Name: "privilege-check", Run: p.checkPrivilege},
		{Name: "deactivate-service", BestEffort: true, Run: p.deactivateService},
		{Name: "remove-files", Run: p.removeFiles},
		{Name: "daemon-reload", BestEffort: true, Run: func(ctx context.Context) error {
			sysd, err := p.systemdClient()
			if err != nil {
				return err
			}
			return sysd.DaemonReload(ctx)
		}},
	}
	return runPipeline(ctx, p.logger, stages)
}

// Status prints the status report without touching host state.
func (p *Provisioner) Status(ctx context.Context) error {
	return p.report(ctx)
}

func (p *Provisioner) checkPrivilege(ctx context.Context) error {
	if uid := p.euid(); uid != 0 {
		return fmt.Errorf("must run as root, effective uid is %d", uid)
	}
	return nil
}

func (p *Provisioner) installPackage(ctx context.Context) error {
	if p.pkgs == nil {
		m, err := pkgmgr.Detect(p.execer)
		if err != nil {
			return err
		}
		p.pkgs = m
	}
	p.logger.Info("Installing package", "package", p.cfg.Package, "manager", p.pkgs.Name())
	return p.pkgs.Install(ctx, p.cfg.Package)
}

func (p *Provisioner) writeServerConfig(ctx context.Context) error {
	if p.params.Password == serverconf.DefaultPassword {
		p.logger.Warn("Using the placeholder password, change it before exposing the server")
	}
	bak, err := serverconf.Write(p.cfg.ServerConfigPath, p.params, p.cfg.BackupKeep)
	if err != nil {
		return err
	}
	if bak != "" {
		p.logger.Info("Backed up previous config", "backup", bak)
	}
	return nil
}

func (p *Provisioner) writeWrapper(ctx context.Context) error {
	wrapper := fmt.Sprintf("#!/bin/sh\n# Managed by ssforge. Do not edit.\nexec ss-server -c %s\n", p.cfg.ServerConfigPath)

	bak, err := fsutil.Snapshot(p.cfg.WrapperPath)
	if err != nil {
		return fmt.Errorf("backing up %s: %w", p.cfg.WrapperPath, err)
	}
	if bak != "" {
		p.logger.Info("Backed up previous wrapper", "backup", bak)
	}
	if err := os.WriteFile(p.cfg.WrapperPath, []byte(wrapper), 0755); err != nil {
		return fmt.Errorf("writing %s: %w", p.cfg.WrapperPath, err)
	}
	if err := os.Chmod(p.cfg.WrapperPath, 0755); err != nil {
		return fmt.Errorf("chmod %s: %w", p.cfg.WrapperPath, err)
	}
	if err := fsutil.Prune(p.cfg.WrapperPath, p.cfg.BackupKeep); err != nil {
		p.logger.Warn("Failed to prune backups", "path", p.cfg.WrapperPath, "error", err)
	}
	return nil
}

func (p *Provisioner) writeUnit(ctx context.Context) error {
	opts := systemd.ServerUnit("Shadowsocks proxy server", p.cfg.WrapperPath)
	bak, err := systemd.WriteUnitFile(p.cfg.UnitPath, opts, p.cfg.BackupKeep)
	if err != nil {
		return err
	}
	if bak != "" {
		p.logger.Info("Backed up previous unit file", "backup", bak)
	}
	return nil
}

func (p *Provisioner) activateService(ctx context.Context) error {
	sysd, err := p.systemdClient()
	if err != nil {
		return err
	}
	if err := sysd.DaemonReload(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if err := sysd.EnableNow(ctx, p.cfg.UnitName); err != nil {
		return fmt.Errorf("enabling %s: %w", p.cfg.UnitName, err)
	}

	// Single probe after a fixed settle delay. No retries: a unit that is
	// not up by now is treated as broken.
	p.sleep(time.Duration(p.cfg.SettleSeconds) * time.Second)
	active, err := sysd.IsActive(ctx, p.cfg.UnitName)
	if err != nil {
		return fmt.Errorf("probing %s: %w", p.cfg.UnitName, err)
	}
	if !active {
		if tail, jerr := sysd.Journal(ctx, p.cfg.UnitName, p.cfg.JournalLines); jerr == nil {
			fmt.Fprintln(p.out, tail)
		}
		return fmt.Errorf("unit %s did not become active", p.cfg.UnitName)
	}
	p.logger.Info("Service is active", "unit", p.cfg.UnitName)
	return nil
}

func (p *Provisioner) openFirewall(ctx context.Context) error {
	if p.fw == nil {
		fw, err := p.detectFW()
		if err != nil {
			p.logger.Info("No firewall tool detected, skipping", "reason", err)
			return nil
		}
		p.fw = fw
	}
	var errs []error
	for _, proto := range []string{"tcp", "udp"} {
		if err := p.fw.EnsureAllow(proto, p.params.Port); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provisioner) tuneNetwork(ctx context.Context) error {
	t := p.tuner
	if t == nil {
		t = nettune.New()
	}
	if !t.Available() {
		p.logger.Info("Kernel does not expose bbr congestion control, skipping tuning")
		return nil
	}
	return t.Apply()
}

func (p *Provisioner) deactivateService(ctx context.Context) error {
	sysd, err := p.systemdClient()
	if err != nil {
		return err
	}
	var errs []error
	if err := sysd.Stop(ctx, p.cfg.UnitName); err != nil {
		errs = append(errs, err)
	}
	if err := sysd.Disable(ctx, p.cfg.UnitName); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Provisioner) removeFiles(ctx context.Context) error {
	for _, path := range []string{p.cfg.UnitPath, p.cfg.WrapperPath, p.cfg.ServerConfigPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}
