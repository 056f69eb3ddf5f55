// Package provisioner creates, inspects and removes the POSIX accounts of a
// single host. It reads the account database through a
// usermanager.AccountReader, changes it through a usermanager.AccountMutator
// and installs SSH keys through a filemanager.HomeFileWriter.
//
// Nothing is retried and nothing is rolled back: an account whose key
// installation failed stays in place for the operator to inspect.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/steelcutops/onboard/logger"
	"github.com/steelcutops/onboard/onboard/filemanager"
	"github.com/steelcutops/onboard/onboard/usermanager"
)

const (
	DefaultHomeRoot    = "/home"
	AuthorizedKeysFile = "authorized_keys"

	sshDirMode  = 0o700
	keyFileMode = 0o600
)

type Provisioner struct {
	reader   usermanager.AccountReader
	mutator  usermanager.AccountMutator
	files    filemanager.HomeFileWriter
	homeRoot string
	chown    bool
	logger   logger.Logger
}

func New(reader usermanager.AccountReader, mutator usermanager.AccountMutator, files filemanager.HomeFileWriter, options ...Option) *Provisioner {
	p := &Provisioner{
		reader:   reader,
		mutator:  mutator,
		files:    files,
		homeRoot: DefaultHomeRoot,
		logger:   logger.Discard(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// HomeRoot is the directory holding the home directories of new accounts.
func (p *Provisioner) HomeRoot() string {
	return p.homeRoot
}

// SSHDir returns <homeRoot>/<login>/.ssh.
func (p *Provisioner) SSHDir(login string) string {
	return filepath.Join(p.homeRoot, login, ".ssh")
}

func (p *Provisioner) AccountExists(ctx context.Context, login string) (bool, error) {
	_, found, err := p.lookupAccount(ctx, login)
	return found, err
}

func (p *Provisioner) GroupExists(ctx context.Context, name string) (bool, error) {
	_, found, err := p.lookupGroup(ctx, name)
	return found, err
}

func (p *Provisioner) lookupAccount(ctx context.Context, login string) (usermanager.User, bool, error) {
	user, err := p.reader.GetUser(ctx, login)
	switch {
	case err == nil:
		p.logger.Debug("Account found", "login", login)
		return user, true, nil
	case errors.Is(err, usermanager.ErrUserNotFound):
		p.logger.Debug("Account not found", "login", login)
		return usermanager.User{}, false, nil
	default:
		return usermanager.User{}, false, newError(ErrLookup, login, err)
	}
}

func (p *Provisioner) lookupGroup(ctx context.Context, name string) (usermanager.Group, bool, error) {
	group, err := p.reader.GetGroup(ctx, name)
	switch {
	case err == nil:
		p.logger.Debug("Group found", "group", name)
		return group, true, nil
	case errors.Is(err, usermanager.ErrGroupNotFound):
		p.logger.Debug("Group not found", "group", name)
		return usermanager.Group{}, false, nil
	default:
		return usermanager.Group{}, false, newError(ErrLookup, name, err)
	}
}

// CreateAccount adds login with a home directory and group as a
// supplementary group, then installs publicKey. Key installation is only
// attempted once the account exists.
func (p *Provisioner) CreateAccount(ctx context.Context, login, group, publicKey string) error {
	opts := usermanager.AddUserOptions{
		Login:      login,
		Groups:     []string{group},
		CreateHome: true,
	}
	if p.homeRoot != DefaultHomeRoot {
		opts.BaseDir = p.homeRoot
	}

	if err := p.mutator.AddUser(ctx, opts); err != nil {
		p.logger.Error("Failed to create account", "login", login, "group", group, "error", err)
		return newError(ErrAccountCreation, login, err)
	}
	p.logger.Info("Created account", "login", login, "group", group)

	return p.InstallSSHKey(ctx, login, publicKey)
}

func (p *Provisioner) CreateGroup(ctx context.Context, name string) error {
	if err := p.mutator.AddGroup(ctx, name); err != nil {
		p.logger.Error("Failed to create group", "group", name, "error", err)
		return newError(ErrGroupCreation, name, err)
	}
	p.logger.Info("Created group", "group", name)
	return nil
}

// InstallSSHKey writes publicKey verbatim to the account's authorized_keys,
// replacing whatever was there. The key is not validated.
func (p *Provisioner) InstallSSHKey(ctx context.Context, login, publicKey string) error {
	if err := checkLogin(login); err != nil {
		return newError(ErrSSHKeyInstall, login, err)
	}

	sshDir := p.SSHDir(login)
	keyFile := filepath.Join(sshDir, AuthorizedKeysFile)

	if err := p.files.EnsureDirectory(sshDir, sshDirMode); err != nil {
		return p.keyInstallFailed(login, fmt.Errorf("create %s: %w", sshDir, err))
	}
	if err := p.files.WriteFile(keyFile, []byte(publicKey), keyFileMode); err != nil {
		return p.keyInstallFailed(login, fmt.Errorf("write %s: %w", keyFile, err))
	}

	if p.chown {
		user, err := p.reader.GetUser(ctx, login)
		if err != nil {
			return p.keyInstallFailed(login, fmt.Errorf("look up owner: %w", err))
		}
		for _, path := range []string{sshDir, keyFile} {
			if err := p.files.Chown(path, user.UID, user.GID); err != nil {
				return p.keyInstallFailed(login, fmt.Errorf("chown %s: %w", path, err))
			}
		}
	}

	if fingerprint, ok := keyFingerprint(publicKey); ok {
		p.logger.Info("Installed SSH key", "login", login, "path", keyFile, "fingerprint", fingerprint)
	} else {
		p.logger.Warn("Installed SSH key that does not parse as an authorized key", "login", login, "path", keyFile)
	}
	return nil
}

func (p *Provisioner) keyInstallFailed(login string, err error) error {
	p.logger.Error("Failed to install SSH key", "login", login, "error", err)
	return newError(ErrSSHKeyInstall, login, err)
}

// RemoveAccount deletes login together with its home directory.
func (p *Provisioner) RemoveAccount(ctx context.Context, login string) error {
	err := p.mutator.DeleteUser(ctx, usermanager.DeleteUserOptions{
		Login:      login,
		RemoveHome: true,
	})
	if err != nil {
		p.logger.Error("Failed to remove account", "login", login, "error", err)
		return newError(ErrAccountRemoval, login, err)
	}
	p.logger.Info("Removed account", "login", login)
	return nil
}

// ListAccounts reads one snapshot of the account database and keeps the
// records whose uid is at least minUID, in database order.
func (p *Provisioner) ListAccounts(ctx context.Context, minUID int) (Accounts, error) {
	users, err := p.reader.ListUsers(ctx)
	if err != nil {
		return nil, newError(ErrLookup, "passwd", err)
	}

	accounts := Accounts{}
	for _, u := range users {
		if u.UID >= minUID {
			accounts = append(accounts, u)
		}
	}
	p.logger.Debug("Listed accounts", "min_uid", minUID, "total", len(users), "matched", len(accounts))
	return accounts, nil
}

// Accounts is a materialized snapshot; iterating it never reads the
// database again.
type Accounts []usermanager.User

func (a Accounts) Logins() []string {
	logins := make([]string, 0, len(a))
	for _, u := range a {
		logins = append(logins, u.Username)
	}
	return logins
}

func (a Accounts) UIDs() []int {
	uids := make([]int, 0, len(a))
	for _, u := range a {
		uids = append(uids, u.UID)
	}
	return uids
}

// checkLogin keeps the key path inside the home root.
func checkLogin(login string) error {
	if login == "" || login == "." || login == ".." || strings.ContainsRune(login, '/') {
		return fmt.Errorf("invalid login %q", login)
	}
	return nil
}

func keyFingerprint(publicKey string) (string, bool) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", false
	}
	return ssh.FingerprintSHA256(key), true
}
