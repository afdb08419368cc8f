// Package command provides the sl-cli command definitions.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and the interactive shell, where one client and its
// session serve every command.
package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/servicelayer-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return newApp(nil)
}

// newApp builds the application around st. A nil st is created by the
// Before hook from the parsed flags.
func newApp(st *State) *cli.App {
	app := &cli.App{
		Name:    "sl-cli",
		Usage:   "SAP Business One Service Layer command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			StatusCommand(),
			GetCommand(),
			FindCommand(),
			PostCommand(),
			PutCommand(),
			PatchCommand(),
			DeleteCommand(),
			ProfileCommand(),
			ShellCommand(),
			VersionCommand(),
		},
		Metadata: map[string]any{},
		Before: func(c *cli.Context) error {
			if st := GetState(c); st != nil {
				return nil
			}
			st, err := NewState(c, os.Stdin, os.Stdout, os.Stderr)
			if err != nil {
				return err
			}
			c.App.Metadata[stateKey] = st
			return nil
		},
		// Errors are reported by main; the shell keeps running after them.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	if st != nil {
		app.Metadata[stateKey] = st
		app.Writer = st.Stdout
		app.ErrWriter = st.Stderr
	}
	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI configuration file (default ~/.servicelayer/cli.yaml)",
			EnvVars: []string{"SERVICELAYER_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Saved connection profile",
			EnvVars: []string{"SERVICELAYER_PROFILE"},
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Service Layer host, e.g. https://sap.example.com",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Service Layer port",
		},
		&cli.StringFlag{
			Name:  "api-version",
			Usage: "Service Layer API version (v1, v2)",
		},
		&cli.StringFlag{
			Name:  "company",
			Usage: "Company database",
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "User name",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Password (prompted when missing on a terminal)",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle of additional trusted CAs",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Log session diagnostics",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: json, yaml, table, raw",
			EnvVars: []string{"SERVICELAYER_OUTPUT"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "warn",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Do not reuse or store the session between runs",
		},
	}
}

// connectionFlags maps connection flags to configuration keys.
var connectionFlags = []struct {
	flag string
	key  string
}{
	{"host", "host"},
	{"port", "port"},
	{"api-version", "version"},
	{"company", "company"},
	{"username", "username"},
	{"password", "password"},
	{"insecure", "insecure_skip_verify"},
	{"ca-file", "ca_file"},
	{"debug", "debug"},
}

// connectionOverrides returns the connection flags given explicitly.
func connectionOverrides(c *cli.Context) map[string]any {
	out := map[string]any{}
	for _, f := range connectionFlags {
		if !c.IsSet(f.flag) {
			continue
		}
		switch f.flag {
		case "port":
			out[f.key] = c.Int(f.flag)
		case "insecure", "debug":
			out[f.key] = c.Bool(f.flag)
		default:
			out[f.key] = c.String(f.flag)
		}
	}
	return out
}

// reportedError is a failure whose document was already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already printed to the user.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			st := GetState(c)
			info := buildinfo.Get()
			if c.IsSet("output") {
				return st.Print(c, info)
			}
			_, err := fmt.Fprintln(st.Stdout, "sl-cli "+buildinfo.String())
			return err
		},
	}
}
