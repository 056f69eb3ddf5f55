package usermanager

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("group not found")
)

// User represents an individual user account on the system.
type User struct {
	Username string `json:"login" yaml:"login"`     // user login name
	UID      int    `json:"uid" yaml:"uid"`         // user ID
	GID      int    `json:"gid" yaml:"gid"`         // group ID
	Comment  string `json:"comment" yaml:"comment"` // user full name or comment
	HomeDir  string `json:"home" yaml:"home"`       // user home directory
	Shell    string `json:"shell" yaml:"shell"`     // user's shell
}

// Group represents an entry of the group database.
type Group struct {
	Name    string
	GID     int
	Members []string
}

// AddUserOptions are the inputs to an account creation.
type AddUserOptions struct {
	Login      string
	Groups     []string // supplementary groups
	CreateHome bool
	BaseDir    string // parent of the home directory, system default when empty
}

// DeleteUserOptions are the inputs to an account removal.
type DeleteUserOptions struct {
	Login      string
	RemoveHome bool
}

// AccountReader reads the account and group databases.
type AccountReader interface {
	// GetUser returns ErrUserNotFound when no account has that login.
	GetUser(ctx context.Context, username string) (User, error)

	// GetGroup returns ErrGroupNotFound when no group has that name.
	GetGroup(ctx context.Context, name string) (Group, error)

	// ListUsers returns every account in database order.
	ListUsers(ctx context.Context) ([]User, error)
}

// AccountMutator changes the account and group databases. Each call is a
// single external invocation that either succeeds or fails as a whole.
type AccountMutator interface {
	AddUser(ctx context.Context, opts AddUserOptions) error
	AddGroup(ctx context.Context, name string) error
	DeleteUser(ctx context.Context, opts DeleteUserOptions) error
}

// UserManager encompasses operations related to user management.
type UserManager interface {
	AccountReader
	AccountMutator
}
