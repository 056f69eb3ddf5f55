package provisioner

import (
	"errors"
	"fmt"
)

// Kinds of provisioning failure. Match them with errors.Is.
var (
	ErrLookup          = errors.New("account database lookup failed")
	ErrAccountCreation = errors.New("account creation failed")
	ErrGroupCreation   = errors.New("group creation failed")
	ErrAccountRemoval  = errors.New("account removal failed")
	ErrSSHKeyInstall   = errors.New("ssh key installation failed")
)

// Error reports which step failed, for which login or group, and why.
type Error struct {
	Kind error
	Name string
	Err  error
}

func newError(kind error, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v for %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("%v for %q: %v", e.Kind, e.Name, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
