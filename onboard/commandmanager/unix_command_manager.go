package commandmanager

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/steelcutops/onboard/logger"
)

type UnixCommandManager struct {
	Logger logger.Logger
}

func NewUnixCommandManager(l logger.Logger) *UnixCommandManager {
	if l == nil {
		l = logger.Discard()
	}
	return &UnixCommandManager{Logger: l}
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if config.Command == "" {
		return CommandResult{}, errors.New("no command given")
	}

	start := time.Now()
	u.log().Debug("Executing command", "command", config.Command, "args", strings.Join(config.Args, " "))

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	if config.Stdin != "" {
		cmd.Stdin = strings.NewReader(config.Stdin)
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := CommandResult{
		Command:   config.Command,
		Args:      config.Args,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			u.log().Debug("Command exited with non-zero status", "command", config.Command, "exit_code", result.ExitCode, "stderr", strings.TrimSpace(result.STDERR))
			return result, &ExitError{Result: result, Err: err}
		}
		u.log().Error("Failed to execute command", "command", config.Command, "error", err)
		return result, err
	}

	return result, nil
}

func (u *UnixCommandManager) log() logger.Logger {
	if u.Logger == nil {
		return logger.Discard()
	}
	return u.Logger
}

func getExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
		return exitError.ExitCode()
	}
	return -1
}
