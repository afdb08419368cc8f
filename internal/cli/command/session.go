package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/servicelayer-go/internal/cli/output"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// LoginCommand opens a new session, replacing any cached one.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Log in and cache the session",
		Action: login,
	}
}

// LogoutCommand ends the session on the server.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and forget it",
		Action: logout,
	}
}

// StatusCommand shows the connection and session without contacting the
// server.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show connection and session state",
		Action: status,
	}
}

// sessionStatus is the output of login and status.
type sessionStatus struct {
	Profile   string `json:"profile,omitempty" yaml:"profile,omitempty"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Company   string `json:"company" yaml:"company"`
	Username  string `json:"username" yaml:"username"`
	Active    bool   `json:"active" yaml:"active"`
	Session   string `json:"session,omitempty" yaml:"session,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Remaining string `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

func newSessionStatus(profile string, cfg servicelayer.Config, sess *servicelayer.Session, now time.Time) sessionStatus {
	st := sessionStatus{
		Profile:  profile,
		BaseURL:  cfg.BaseURL(),
		Company:  cfg.Company,
		Username: cfg.Username,
	}
	if !sess.Valid(now) || !sess.Matches(cfg) {
		return st
	}
	st.Active = true
	st.Session = logger.MaskValue(sess.ID)
	st.ExpiresAt = sess.ExpiresAt.Local().Format(time.RFC3339)
	st.Remaining = sess.Remaining(now).Truncate(time.Second).String()
	return st
}

func login(c *cli.Context) error {
	st := GetState(c)
	client, err := st.Client(c, true)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	spin := output.NewSpinner(st.Stderr, "Logging in")
	spin.Start()
	err = client.CreateSession(ctx, servicelayer.Config{})
	spin.Stop()
	if err != nil {
		return st.Fail(err)
	}

	return st.printAs(c, output.FormatTable, newSessionStatus(st.profile, client.Config(), client.Session(), time.Now()))
}

func logout(c *cli.Context) error {
	st := GetState(c)
	client, err := st.Client(c, false)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := client.Logout(ctx); err != nil {
		return st.Fail(err)
	}
	_, err = fmt.Fprintln(st.Stdout, "Logged out.")
	return err
}

func status(c *cli.Context) error {
	st := GetState(c)
	client, err := st.Client(c, false)
	if err != nil {
		return err
	}

	sess := client.Session()
	if sess == nil && st.store != nil {
		if sess, err = st.store.Load(c.Context); err != nil {
			st.Log.Warn("cannot read session cache", "error", err)
		}
	}
	return st.printAs(c, output.FormatTable, newSessionStatus(st.profile, client.Config(), sess, time.Now()))
}
