package provisioner

import (
	"path/filepath"

	"github.com/steelcutops/onboard/logger"
)

type Option func(*Provisioner)

// WithHomeRoot returns an Option that sets the parent of account home
// directories. Anything other than DefaultHomeRoot is also passed to the
// account creation so both agree on where homes live.
func WithHomeRoot(dir string) Option {
	return func(p *Provisioner) {
		if dir != "" {
			p.homeRoot = filepath.Clean(dir)
		}
	}
}

// WithLogger returns an Option that sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithKeyOwnership returns an Option that hands the .ssh directory and the
// authorized_keys file over to the account after writing them.
func WithKeyOwnership(enabled bool) Option {
	return func(p *Provisioner) {
		p.chown = enabled
	}
}
