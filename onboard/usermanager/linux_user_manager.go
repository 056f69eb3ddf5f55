package usermanager

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	cm "github.com/steelcutops/onboard/onboard/commandmanager"
)

// getent exits with this status when a key is not in the database.
const getentNotFound = 2

// Commands names the binaries used for each primitive. Empty fields fall
// back to the names found on PATH.
type Commands struct {
	Useradd  string
	Groupadd string
	Userdel  string
	Getent   string
}

func DefaultCommands() Commands {
	return Commands{
		Useradd:  "useradd",
		Groupadd: "groupadd",
		Userdel:  "userdel",
		Getent:   "getent",
	}
}

type LinuxUserManager struct {
	CommandManager cm.CommandManager
	Commands       Commands
}

func NewLinuxUserManager(commandManager cm.CommandManager, commands Commands) *LinuxUserManager {
	return &LinuxUserManager{CommandManager: commandManager, Commands: commands}
}

func (l *LinuxUserManager) GetUser(ctx context.Context, username string) (User, error) {
	output, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: l.command(l.Commands.Getent, "getent"),
		Args:    []string{"passwd", username},
	})
	if err != nil {
		if isNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	line := strings.TrimSpace(output.STDOUT)
	if line == "" {
		return User{}, ErrUserNotFound
	}
	user, err := parsePasswdLine(line)
	if err != nil {
		return User{}, err
	}
	// getent also resolves numeric keys as uids.
	if user.Username != username {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (l *LinuxUserManager) GetGroup(ctx context.Context, name string) (Group, error) {
	output, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: l.command(l.Commands.Getent, "getent"),
		Args:    []string{"group", name},
	})
	if err != nil {
		if isNotFound(err) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, err
	}

	line := strings.TrimSpace(output.STDOUT)
	if line == "" {
		return Group{}, ErrGroupNotFound
	}
	group, err := parseGroupLine(line)
	if err != nil {
		return Group{}, err
	}
	if group.Name != name {
		return Group{}, ErrGroupNotFound
	}
	return group, nil
}

func (l *LinuxUserManager) ListUsers(ctx context.Context) ([]User, error) {
	output, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: l.command(l.Commands.Getent, "getent"),
		Args:    []string{"passwd"},
	})
	if err != nil {
		return nil, err
	}

	users := []User{}
	for _, line := range strings.Split(output.STDOUT, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		user, err := parsePasswdLine(line)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (l *LinuxUserManager) AddUser(ctx context.Context, opts AddUserOptions) error {
	if opts.Login == "" {
		return errors.New("useradd: empty login")
	}

	args := []string{}
	if opts.CreateHome {
		args = append(args, "-m")
	}
	if len(opts.Groups) > 0 {
		args = append(args, "-G", strings.Join(opts.Groups, ","))
	}
	if opts.BaseDir != "" {
		args = append(args, "-b", opts.BaseDir)
	}
	args = append(args, opts.Login)

	_, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: l.command(l.Commands.Useradd, "useradd"),
		Args:    args,
	})
	return err
}

func (l *LinuxUserManager) AddGroup(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("groupadd: empty group name")
	}

	_, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: l.command(l.Commands.Groupadd, "groupadd"),
		Args:    []string{name},
	})
	return err
}

func (l *LinuxUserManager) DeleteUser(ctx context.Context, opts DeleteUserOptions) error {
	if opts.Login == "" {
		return errors.New("userdel: empty login")
	}

	args := []string{}
	if opts.RemoveHome {
		args = append(args, "-r")
	}
	args = append(args, opts.Login)

	_, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: l.command(l.Commands.Userdel, "userdel"),
		Args:    args,
	})
	return err
}

func (l *LinuxUserManager) command(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func isNotFound(err error) bool {
	var exitErr *cm.ExitError
	return errors.As(err, &exitErr) && exitErr.Result.ExitCode == getentNotFound
}

// parsePasswdLine parses name:passwd:uid:gid:gecos:dir:shell.
func parsePasswdLine(line string) (User, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), ":", 7)
	if len(parts) < 7 {
		return User{}, fmt.Errorf("unexpected passwd format: %q", line)
	}

	uid, err := strconv.Atoi(parts[2])
	if err != nil {
		return User{}, fmt.Errorf("invalid uid for %s: %w", parts[0], err)
	}
	gid, err := strconv.Atoi(parts[3])
	if err != nil {
		return User{}, fmt.Errorf("invalid gid for %s: %w", parts[0], err)
	}

	return User{
		Username: parts[0],
		UID:      uid,
		GID:      gid,
		Comment:  parts[4],
		HomeDir:  parts[5],
		Shell:    parts[6],
	}, nil
}

// parseGroupLine parses name:passwd:gid:member,member.
func parseGroupLine(line string) (Group, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), ":", 4)
	if len(parts) < 4 {
		return Group{}, fmt.Errorf("unexpected group format: %q", line)
	}

	gid, err := strconv.Atoi(parts[2])
	if err != nil {
		return Group{}, fmt.Errorf("invalid gid for group %s: %w", parts[0], err)
	}

	var members []string
	if parts[3] != "" {
		members = strings.Split(parts[3], ",")
	}

	return Group{Name: parts[0], GID: gid, Members: members}, nil
}
