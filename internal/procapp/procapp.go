// Package procapp hosts an external process as a host.Application.
package procapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/log"
)

// Config describes the process to host.
type Config struct {
	// Command is the program and its arguments. Required.
	Command []string

	// InitCommand, when set, runs to completion during Initialize.
	InitCommand []string

	// Dir is the working directory. Empty uses the current directory.
	Dir string

	// Env is appended to the current environment.
	Env []string

	Stdout io.Writer
	Stderr io.Writer

	// StopSignal is sent when shutdown is requested. Default: SIGTERM
	StopSignal os.Signal

	// KillDelay, when positive, kills the process if it is still running
	// this long after StopSignal.
	KillDelay time.Duration
}

// App runs Config.Command under the host lifecycle.
type App struct {
	cfg Config
}

// New validates cfg and returns an App.
func New(cfg Config) (*App, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errors.New("procapp: command is required")
	}
	if cfg.StopSignal == nil {
		cfg.StopSignal = syscall.SIGTERM
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &App{cfg: cfg}, nil
}

// Initialize runs the init command, if any.
func (a *App) Initialize(ctx context.Context, env host.Environment) error {
	if len(a.cfg.InitCommand) == 0 {
		return nil
	}
	logger := env.Log().With(log.Component("procapp"))
	logger.Info("running init command", log.String("command", strings.Join(a.cfg.InitCommand, " ")))

	cmd := a.command(ctx, a.cfg.InitCommand, env)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("init command: %w", err)
	}
	return nil
}

// Run starts the process and waits for it. When ctx is canceled the
// process receives StopSignal, and its exit is reported as ctx.Err().
//
// Settings reach the process twice: flattened into APPHOST_SETTINGS__*
// and APPHOST_SECRETS__* variables at start, and as a JSON file named by
// APPHOST_SETTINGS_FILE that is rewritten after every settings reload.
func (a *App) Run(ctx context.Context, env host.Environment) error {
	logger := env.Log().With(log.Component("procapp"))

	var extra []string
	if provider, _ := providers(env); provider != nil {
		file, err := newSettingsFile(provider, logger)
		if err != nil {
			return err
		}
		defer file.Close()
		extra = append(extra, SettingsFileEnv+"="+file.path)
	}

	cmd := a.command(ctx, a.cfg.Command, env, extra...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", a.cfg.Command[0], err)
	}
	logger.Info("process started",
		log.String("command", a.cfg.Command[0]),
		log.Int("pid", cmd.Process.Pid),
	)

	err := cmd.Wait()
	if ctx.Err() != nil {
		if err != nil {
			logger.Debug("process exited after stop signal", log.Err(err))
		}
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("process %s: %w", a.cfg.Command[0], err)
	}
	logger.Info("process exited")
	return nil
}

func (a *App) command(ctx context.Context, argv []string, env host.Environment, extra ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = a.cfg.Dir
	cmd.Stdout = a.cfg.Stdout
	cmd.Stderr = a.cfg.Stderr
	cmd.Env = append(os.Environ(), identityEnv(env.Identity())...)
	cmd.Env = append(cmd.Env, settingsEnv(env)...)
	cmd.Env = append(cmd.Env, extra...)
	cmd.Env = append(cmd.Env, a.cfg.Env...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(a.cfg.StopSignal)
	}
	cmd.WaitDelay = a.cfg.KillDelay
	return cmd
}

// identityEnv exposes the identity to the child process.
func identityEnv(id host.Identity) []string {
	return []string{
		"APPHOST_PROJECT=" + id.Project,
		"APPHOST_SUBPROJECT=" + id.Subproject,
		"APPHOST_ENVIRONMENT=" + id.Environment,
		"APPHOST_APPLICATION=" + id.Application,
		"APPHOST_INSTANCE=" + id.Instance,
	}
}

var _ host.Application = (*App)(nil)
