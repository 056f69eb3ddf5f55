package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/steelcutops/onboard/logger"
	"github.com/steelcutops/onboard/onboard/commandmanager"
	"github.com/steelcutops/onboard/onboard/config"
	"github.com/steelcutops/onboard/onboard/filemanager"
	"github.com/steelcutops/onboard/onboard/provisioner"
	"github.com/steelcutops/onboard/onboard/roster"
	"github.com/steelcutops/onboard/onboard/usermanager"
)

// errAbsent makes -exists and -group-exists exit with status 1.
var errAbsent = errors.New("absent")

type flags struct {
	ConfigPath  string
	Create      string
	CreateGroup string
	Debug       bool
	Exists      string
	Format      string
	Group       string
	GroupExists string
	HomeRoot    string
	InstallKey  string
	Key         string
	KeyFile     string
	List        bool
	LogFileName string
	MinUID      int
	MinUIDSet   bool
	Remove      loginsValue
	RosterPath  string
	Yes         bool
}

type loginsValue []string

func (l *loginsValue) String() string {
	return strings.Join(*l, ",")
}

func (l *loginsValue) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("onboard", flag.ContinueOnError)
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	fs.BoolVar(&f.List, "list", false, "List accounts with a uid of at least -min-uid")
	fs.BoolVar(&f.Yes, "yes", false, "Do not ask before removing accounts")
	fs.IntVar(&f.MinUID, "min-uid", 0, "Lowest uid listed (default from config)")
	fs.StringVar(&f.ConfigPath, "config", "", "Path to INI configuration file")
	fs.StringVar(&f.Create, "create", "", "Create an account with this login")
	fs.StringVar(&f.CreateGroup, "create-group", "", "Create a group with this name")
	fs.StringVar(&f.Exists, "exists", "", "Report whether an account exists")
	fs.StringVar(&f.Format, "format", "text", "Output format for -list: text, json or yaml")
	fs.StringVar(&f.Group, "group", "", "Supplementary group for -create")
	fs.StringVar(&f.GroupExists, "group-exists", "", "Report whether a group exists")
	fs.StringVar(&f.HomeRoot, "home-root", "", "Parent directory of home directories (default from config)")
	fs.StringVar(&f.InstallKey, "install-key", "", "Install the SSH key for an existing account")
	fs.StringVar(&f.Key, "key", "", "SSH public key for -create or -install-key")
	fs.StringVar(&f.KeyFile, "key-file", "", "File holding the SSH public key for -create or -install-key")
	fs.StringVar(&f.LogFileName, "log", "", "Log file name (default from config, stderr when unset)")
	fs.StringVar(&f.RosterPath, "roster", "", "Path to INI roster of groups and member keys to onboard")
	fs.Var(&f.Remove, "remove", "Remove an account and its home directory (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "min-uid" {
			f.MinUIDSet = true
		}
	})
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if !f.hasAction() {
		fs.Usage()
		return nil, errors.New("no action given")
	}
	switch f.Format {
	case "text", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown format %q", f.Format)
	}
	return f, nil
}

func (f *flags) hasAction() bool {
	return f.List || f.Create != "" || f.CreateGroup != "" || f.Exists != "" ||
		f.GroupExists != "" || f.InstallKey != "" || len(f.Remove) > 0 || f.RosterPath != ""
}

type app struct {
	prov    *provisioner.Provisioner
	log     logger.Logger
	out     io.Writer
	confirm func(prompt string) (bool, error)
	minUID  int
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, closeLog, err := configureLogger(f, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()

	a := newApp(cfg, log, os.Stdout, stdinConfirm(os.Stdin, os.Stdout))
	err = a.execute(context.Background(), f)
	closeLog()
	switch {
	case err == nil:
	case errors.Is(err, errAbsent):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(f *flags) (config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if f.HomeRoot != "" {
		cfg.Accounts.HomeRoot = f.HomeRoot
	}
	if f.MinUIDSet {
		cfg.Accounts.MinUID = f.MinUID
	}
	if f.LogFileName != "" {
		cfg.Log.File = f.LogFileName
	}
	if f.Debug {
		cfg.Log.Level = logrus.DebugLevel.String()
	}
	return cfg, cfg.Validate()
}

func configureLogger(f *flags, cfg config.Config) (logger.Logger, func(), error) {
	if cfg.Log.File == "" {
		return logger.NewWithOutput(os.Stderr, cfg.LogLevel()), func() {}, nil
	}

	file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	l := logger.NewWithOutput(file, cfg.LogLevel())
	if f.Debug {
		l.Debug("Debug mode enabled")
	}
	var closed bool
	return l, func() {
		if !closed {
			closed = true
			file.Close()
		}
	}, nil
}

func newApp(cfg config.Config, log logger.Logger, out io.Writer, confirm func(string) (bool, error)) *app {
	cmdManager := commandmanager.NewUnixCommandManager(log)
	userManager := usermanager.NewLinuxUserManager(cmdManager, cfg.UserCommands())
	fileManager := filemanager.NewFileManager(nil)

	prov := provisioner.New(userManager, userManager, fileManager,
		provisioner.WithHomeRoot(cfg.Accounts.HomeRoot),
		provisioner.WithLogger(log),
		provisioner.WithKeyOwnership(cfg.Accounts.ChownKeys),
	)
	return &app{prov: prov, log: log, out: out, confirm: confirm, minUID: cfg.Accounts.MinUID}
}

// execute runs every requested action in a fixed order: groups before the
// accounts that need them, removals last among the mutations, queries after.
func (a *app) execute(ctx context.Context, f *flags) error {
	if f.CreateGroup != "" {
		if err := a.prov.CreateGroup(ctx, f.CreateGroup); err != nil {
			return err
		}
	}

	if f.Create != "" {
		if f.Group == "" {
			return errors.New("-create needs -group")
		}
		key, err := readKey(f)
		if err != nil {
			return err
		}
		if err := a.prov.CreateAccount(ctx, f.Create, f.Group, key); err != nil {
			return err
		}
	}

	if f.InstallKey != "" {
		key, err := readKey(f)
		if err != nil {
			return err
		}
		if err := a.prov.InstallSSHKey(ctx, f.InstallKey, key); err != nil {
			return err
		}
	}

	if f.RosterPath != "" {
		if err := a.onboardRoster(ctx, f.RosterPath); err != nil {
			return err
		}
	}

	if len(f.Remove) > 0 {
		if err := a.removeAccounts(ctx, f.Remove, f.Yes); err != nil {
			return err
		}
	}

	var absent bool
	if f.Exists != "" {
		exists, err := a.prov.AccountExists(ctx, f.Exists)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "account %s: %s\n", f.Exists, presence(exists))
		absent = absent || !exists
	}

	if f.GroupExists != "" {
		exists, err := a.prov.GroupExists(ctx, f.GroupExists)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "group %s: %s\n", f.GroupExists, presence(exists))
		absent = absent || !exists
	}

	if f.List {
		accounts, err := a.prov.ListAccounts(ctx, a.minUID)
		if err != nil {
			return err
		}
		if err := printAccounts(a.out, accounts, f.Format); err != nil {
			return err
		}
	}

	if absent {
		return errAbsent
	}
	return nil
}

func (a *app) onboardRoster(ctx context.Context, path string) error {
	teams, err := roster.Load(path)
	if err != nil {
		return fmt.Errorf("reading roster %s: %w", path, err)
	}

	var result *multierror.Error
	for _, team := range teams {
		teamLogger := a.log.With("group", team.Group)
		res, err := a.prov.Onboard(ctx, team)
		teamLogger.Info("Onboarded team", "created", len(res.Created), "skipped", len(res.Skipped), "group_created", res.GroupCreated)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("group %s: %w", team.Group, err))
		}
	}

	if result != nil {
		for _, err := range result.Errors {
			a.log.Error("Onboarding error", "error", err)
		}
		return result
	}
	return nil
}

func (a *app) removeAccounts(ctx context.Context, logins []string, yes bool) error {
	var result *multierror.Error
	for _, login := range logins {
		if !yes {
			ok, err := a.confirm(fmt.Sprintf("Remove account %s and its home directory? [y/N] ", login))
			if err != nil {
				return err
			}
			if !ok {
				a.log.Info("Skipped removal", "login", login)
				continue
			}
		}
		if err := a.prov.RemoveAccount(ctx, login); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func stdinConfirm(in *os.File, out io.Writer) func(string) (bool, error) {
	return func(prompt string) (bool, error) {
		if !term.IsTerminal(int(in.Fd())) {
			return false, errors.New("refusing to remove accounts without -yes when stdin is not a terminal")
		}
		return confirmFrom(in, out, prompt)
	}
}

func confirmFrom(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readKey returns the key exactly as given; files are not trimmed.
func readKey(f *flags) (string, error) {
	switch {
	case f.Key != "" && f.KeyFile != "":
		return "", errors.New("use either -key or -key-file, not both")
	case f.Key != "":
		return f.Key, nil
	case f.KeyFile != "":
		data, err := os.ReadFile(f.KeyFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", errors.New("an SSH public key is required (-key or -key-file)")
}

func presence(exists bool) string {
	if exists {
		return "present"
	}
	return "absent"
}

func printAccounts(w io.Writer, accounts provisioner.Accounts, format string) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(accounts, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(accounts); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LOGIN\tUID\tGID\tHOME\tSHELL")
		for _, u := range accounts {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", u.Username, u.UID, u.GID, u.HomeDir, u.Shell)
		}
		return tw.Flush()
	}
}
