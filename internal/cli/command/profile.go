package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/servicelayer-go/internal/cli/config"
	"github.com/yndnr/servicelayer-go/internal/cli/output"
	"github.com/yndnr/servicelayer-go/internal/cli/sessioncache"
)

// ProfileCommand returns the profile subcommand group.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage saved connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List profiles",
				Action:  profileList,
			},
			{
				Name:      "show",
				Usage:     "Show a profile (default: the current one)",
				ArgsUsage: "[NAME]",
				Action:    profileShow,
			},
			{
				Name:      "set",
				Usage:     "Create or update a profile",
				ArgsUsage: "NAME",
				Flags:     profileFlags(),
				Action:    profileSet,
			},
			{
				Name:      "use",
				Usage:     "Make a profile the current one",
				ArgsUsage: "NAME",
				Action:    profileUse,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a profile and its cached session",
				ArgsUsage: "NAME",
				Action:    profileRemove,
			},
		},
	}
}

func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "Service Layer host"},
		&cli.IntFlag{Name: "port", Usage: "Service Layer port"},
		&cli.StringFlag{Name: "api-version", Usage: "API version (v1, v2)"},
		&cli.StringFlag{Name: "company", Usage: "Company database"},
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "User name"},
		&cli.StringFlag{Name: "password", Usage: "Password, stored sealed"},
		&cli.BoolFlag{Name: "ask-password", Usage: "Prompt for the password"},
		&cli.BoolFlag{Name: "insecure", Usage: "Skip TLS certificate verification"},
		&cli.StringFlag{Name: "ca-file", Usage: "PEM bundle of additional trusted CAs"},
		&cli.BoolFlag{Name: "debug", Usage: "Log session diagnostics"},
		&cli.DurationFlag{Name: "login-timeout", Usage: "Bound on one login call"},
		&cli.BoolFlag{Name: "use", Usage: "Also make it the current profile"},
	}
}

// profileView is a profile as shown to the user.
type profileView struct {
	Current  bool   `json:"current" yaml:"current"`
	Name     string `json:"name" yaml:"name"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Version  string `json:"version" yaml:"version"`
	Company  string `json:"company" yaml:"company"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Insecure bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	CAFile   string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

func newProfileView(cfg *config.CLIConfig, name string, p config.Profile) profileView {
	pw := "(not set)"
	if p.Password != "" {
		pw = "(sealed)"
	}
	return profileView{
		Current:  cfg.CurrentProfile == name,
		Name:     name,
		Host:     p.Host,
		Port:     p.Port,
		Version:  p.Version,
		Company:  p.Company,
		Username: p.Username,
		Password: pw,
		Insecure: p.Insecure,
		CAFile:   p.CAFile,
	}
}

func profileList(c *cli.Context) error {
	st := GetState(c)
	names := make([]string, 0, len(st.Config.Profiles))
	for name := range st.Config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	f, err := st.format(c, output.FormatTable)
	if err != nil {
		return err
	}
	if f != output.FormatTable {
		views := make([]profileView, 0, len(names))
		for _, name := range names {
			views = append(views, newProfileView(st.Config, name, st.Config.Profiles[name]))
		}
		return output.NewFormatter(f).Format(st.Stdout, views)
	}

	if len(names) == 0 {
		_, err := fmt.Fprintln(st.Stdout, "No profiles. Create one with 'sl-cli profile set NAME --host ...'.")
		return err
	}
	table := &output.Table{Headers: []string{"", "NAME", "HOST", "PORT", "COMPANY", "USERNAME"}}
	for _, name := range names {
		p := st.Config.Profiles[name]
		mark := ""
		if name == st.Config.CurrentProfile {
			mark = "*"
		}
		table.AddRow(mark, name, p.Host, strconv.Itoa(p.Port), p.Company, p.Username)
	}
	return output.NewFormatter(f).Format(st.Stdout, table)
}

func profileShow(c *cli.Context) error {
	st := GetState(c)
	name := c.Args().First()
	if name == "" {
		name = st.Config.CurrentProfile
	}
	if name == "" {
		return errors.New("no current profile; pass a profile name")
	}
	p, ok := st.Config.Profile(name)
	if !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	return st.printAs(c, output.FormatTable, newProfileView(st.Config, name, p))
}

func profileSet(c *cli.Context) error {
	st := GetState(c)
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}

	p, _ := st.Config.Profile(name)
	if c.IsSet("host") {
		p.Host = c.String("host")
	}
	if c.IsSet("port") {
		p.Port = c.Int("port")
	}
	if c.IsSet("api-version") {
		p.Version = c.String("api-version")
	}
	if c.IsSet("company") {
		p.Company = c.String("company")
	}
	if c.IsSet("username") {
		p.Username = c.String("username")
	}
	if c.IsSet("insecure") {
		p.Insecure = c.Bool("insecure")
	}
	if c.IsSet("ca-file") {
		p.CAFile = c.String("ca-file")
	}
	if c.IsSet("debug") {
		p.Debug = c.Bool("debug")
	}
	if c.IsSet("login-timeout") {
		p.LoginTimeout = c.Duration("login-timeout")
	}

	password := c.String("password")
	if c.Bool("ask-password") {
		if st.Prompt == nil {
			return errors.New("--ask-password needs a terminal")
		}
		var err error
		if password, err = st.Prompt("Password: "); err != nil {
			return err
		}
	}
	if password != "" {
		box, err := st.sealBox()
		if err != nil {
			return err
		}
		if err := config.SealPassword(box, name, &p, password); err != nil {
			return err
		}
	}

	st.Config.SetProfile(name, p)
	if c.Bool("use") {
		st.Config.CurrentProfile = name
	}
	if err := config.Save(st.Config, st.Paths.Config); err != nil {
		return err
	}
	st.resetClient()

	_, err := fmt.Fprintf(st.Stdout, "Profile %q saved.\n", name)
	return err
}

func profileUse(c *cli.Context) error {
	st := GetState(c)
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	if _, ok := st.Config.Profile(name); !ok {
		return fmt.Errorf("unknown profile %q", name)
	}

	st.Config.CurrentProfile = name
	if err := config.Save(st.Config, st.Paths.Config); err != nil {
		return err
	}
	st.resetClient()

	_, err := fmt.Fprintf(st.Stdout, "Switched to profile %q.\n", name)
	return err
}

func profileRemove(c *cli.Context) error {
	st := GetState(c)
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	if !st.Config.RemoveProfile(name) {
		return fmt.Errorf("unknown profile %q", name)
	}
	if err := config.Save(st.Config, st.Paths.Config); err != nil {
		return err
	}
	if err := sessioncache.New(st.Paths.Sessions, name, nil).Clear(c.Context); err != nil {
		st.Log.Warn("cannot remove cached session", "profile", name, "error", err)
	}
	st.resetClient()

	_, err := fmt.Fprintf(st.Stdout, "Profile %q removed.\n", name)
	return err
}
