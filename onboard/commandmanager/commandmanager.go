package commandmanager

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CommandConfig describes a single command invocation. Args are passed to the
// process as discrete argv entries; no shell is involved.
type CommandConfig struct {
	Command string
	Args    []string
	Stdin   string // optional input fed to the process
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	Args      []string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager executes commands on the local system.
type CommandManager interface {
	// Run executes the command and waits for it to finish. A non-zero exit
	// status is reported as an *ExitError alongside the populated result.
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}

// ExitError is returned when a command ran but exited with a non-zero status.
type ExitError struct {
	Result CommandResult
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Result.Command, e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.STDERR); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
