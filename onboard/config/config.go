// Package config loads the INI configuration shared by the onboard commands.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/steelcutops/onboard/onboard/usermanager"
)

type Config struct {
	Accounts Accounts `ini:"accounts"`
	Commands Commands `ini:"commands"`
	Log      Log      `ini:"log"`
}

type Accounts struct {
	HomeRoot  string `ini:"home_root"`
	MinUID    int    `ini:"min_uid"`
	ChownKeys bool   `ini:"chown_keys"`
}

type Commands struct {
	Useradd  string `ini:"useradd"`
	Groupadd string `ini:"groupadd"`
	Userdel  string `ini:"userdel"`
	Getent   string `ini:"getent"`
}

type Log struct {
	Level string `ini:"level"`
	File  string `ini:"file"` // stderr when empty
}

func Default() Config {
	cmds := usermanager.DefaultCommands()
	return Config{
		Accounts: Accounts{
			HomeRoot:  "/home",
			MinUID:    1000,
			ChownKeys: true,
		},
		Commands: Commands{
			Useradd:  cmds.Useradd,
			Groupadd: cmds.Groupadd,
			Userdel:  cmds.Userdel,
			Getent:   cmds.Getent,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := file.MapTo(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !filepath.IsAbs(c.Accounts.HomeRoot) {
		return fmt.Errorf("home_root must be an absolute path, got %q", c.Accounts.HomeRoot)
	}
	if c.Accounts.MinUID < 0 {
		return fmt.Errorf("min_uid must not be negative, got %d", c.Accounts.MinUID)
	}
	if c.Commands.Useradd == "" || c.Commands.Groupadd == "" || c.Commands.Userdel == "" || c.Commands.Getent == "" {
		return errors.New("command names must not be empty")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the parsed log level; call Validate first.
func (c Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (c Config) UserCommands() usermanager.Commands {
	return usermanager.Commands{
		Useradd:  c.Commands.Useradd,
		Groupadd: c.Commands.Groupadd,
		Userdel:  c.Commands.Userdel,
		Getent:   c.Commands.Getent,
	}
}
