package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/servicelayer-go/internal/cli/config"
	"github.com/yndnr/servicelayer-go/internal/cli/output"
	"github.com/yndnr/servicelayer-go/internal/cli/sessioncache"
	"github.com/yndnr/servicelayer-go/internal/infra/buildinfo"
	"github.com/yndnr/servicelayer-go/internal/infra/confloader"
	"github.com/yndnr/servicelayer-go/internal/infra/sealbox"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

const stateKey = "state"

// requestTimeout bounds one command's calls to the server.
const requestTimeout = 2 * time.Minute

// State is shared by the commands of one process. In the shell it keeps
// the client, and so the session, alive between commands.
type State struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Paths  config.Paths
	Config *config.CLIConfig
	Log    logger.Logger

	// Prompt reads a secret from the user. Nil disables prompting.
	Prompt func(label string) (string, error)

	// Options are appended to the client options.
	Options []servicelayer.Option

	mu      sync.Mutex
	box     *sealbox.Box
	client  *servicelayer.Client
	store   *sessioncache.Store
	profile string
	output  string
}

// NewState loads the CLI configuration named by the global flags of c.
func NewState(c *cli.Context, in io.Reader, out, errOut io.Writer) (*State, error) {
	paths := config.PathsFor(c.String("config"))
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	level := c.String("log-level")
	if c.Bool("debug") && !c.IsSet("log-level") {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "text", Output: errOut})
	if err != nil {
		return nil, err
	}

	st := &State{
		Stdin:  in,
		Stdout: out,
		Stderr: errOut,
		Paths:  paths,
		Config: cfg,
		Log:    log,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		st.Prompt = terminalPrompt(f, errOut)
	}
	return st, nil
}

// GetState retrieves the State from the application metadata.
func GetState(c *cli.Context) *State {
	if c == nil || c.App == nil {
		return nil
	}
	st, _ := c.App.Metadata[stateKey].(*State)
	return st
}

func terminalPrompt(f *os.File, w io.Writer) func(string) (string, error) {
	return func(label string) (string, error) {
		fmt.Fprint(w, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
}

// sealBox opens the local key, creating it on first use.
func (s *State) sealBox() (*sealbox.Box, error) {
	if s.box != nil {
		return s.box, nil
	}
	box, err := sealbox.OpenKeyFile(s.Paths.Key)
	if err != nil {
		return nil, err
	}
	s.box = box
	return box, nil
}

// Client returns the shared client, building it from the profile, the
// environment and the flags of c on first use. Later calls apply any
// connection flags of c as a partial update.
//
// With forLogin unset the password is only prompted for when no cached
// session can be reused.
func (s *State) Client(c *cli.Context, forLogin bool) (*servicelayer.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides := connectionOverrides(c)
	if s.client != nil {
		if len(overrides) == 0 {
			return s.client, nil
		}
		partial, err := decodeConfig(overrides)
		if err != nil {
			return nil, err
		}
		if err := s.client.Configure(partial); err != nil {
			return nil, err
		}
		return s.client, nil
	}

	box, err := s.sealBox()
	if err != nil {
		return nil, err
	}
	cfg, name, err := config.Resolve(s.Config, box, config.ResolveOptions{
		Profile:   c.String("profile"),
		Overrides: overrides,
	})
	if err != nil {
		return nil, err
	}

	opts := []servicelayer.Option{
		servicelayer.WithLogger(s.Log),
		servicelayer.WithUserAgent(buildinfo.UserAgent("sl-cli")),
	}
	var store *sessioncache.Store
	if !c.Bool("no-cache") {
		store = sessioncache.New(s.Paths.Sessions, name, box)
		opts = append(opts, servicelayer.WithSessionStore(store))
	}
	opts = append(opts, s.Options...)

	if cfg.Password == "" && cfg.Username != "" && s.Prompt != nil &&
		(forLogin || !reusable(c.Context, store, cfg)) {
		pw, err := s.Prompt(fmt.Sprintf("Password for %s: ", cfg.Username))
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}

	client, err := servicelayer.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.store = store
	s.profile = name
	return client, nil
}

// reusable reports whether store holds a session the client would adopt.
func reusable(ctx context.Context, store *sessioncache.Store, cfg servicelayer.Config) bool {
	if store == nil {
		return false
	}
	sess, err := store.Load(ctx)
	return err == nil && sess.Valid(time.Now()) && sess.Matches(cfg)
}

// resetClient drops the shared client, e.g. after the current profile
// changed.
func (s *State) resetClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.store = nil
	s.profile = ""
}

func decodeConfig(values map[string]any) (servicelayer.Config, error) {
	l := confloader.NewLoader(confloader.WithEnvPrefix(""))
	if err := l.LoadMap(values); err != nil {
		return servicelayer.Config{}, err
	}
	var cfg servicelayer.Config
	if err := l.Unmarshal(&cfg); err != nil {
		return servicelayer.Config{}, fmt.Errorf("decode flags: %w", err)
	}
	return cfg, nil
}

// format returns the output format for c.
func (s *State) format(c *cli.Context, fallback output.Format) (output.Format, error) {
	switch {
	case c.IsSet("output"):
		return output.ParseFormat(c.String("output"))
	case s.output != "":
		return output.ParseFormat(s.output)
	case fallback != "":
		return fallback, nil
	default:
		return output.ParseFormat(s.Config.DefaultOutput)
	}
}

// Print writes data in the selected output format.
func (s *State) Print(c *cli.Context, data any) error {
	return s.printAs(c, "", data)
}

func (s *State) printAs(c *cli.Context, fallback output.Format, data any) error {
	f, err := s.format(c, fallback)
	if err != nil {
		return err
	}
	return output.NewFormatter(f).Format(s.Stdout, data)
}

// Fail prints the failure document of a Service Layer error and returns
// an error that main reports only through the exit status. Other errors
// are returned unchanged.
func (s *State) Fail(err error) error {
	var slErr *servicelayer.Error
	if !errors.As(err, &slErr) {
		return err
	}
	if perr := (&output.JSONFormatter{}).Format(s.Stdout, servicelayer.ResultOf(err)); perr != nil {
		return perr
	}
	s.Log.Debug("command failed", "error", err)
	return &reportedError{err: err}
}

// withTimeout returns the context for one command.
func withTimeout(c *cli.Context) (context.Context, context.CancelFunc) {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}
