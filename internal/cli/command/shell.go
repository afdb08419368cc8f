package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/servicelayer-go/internal/cli/repl"
)

// ShellCommand runs commands interactively. Every command in the shell
// shares one client, so a session opened by the first call serves the
// following ones until it expires and is renewed.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start an interactive shell",
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	st := GetState(c)

	// Build the client now so the shell's own connection flags apply to
	// every command typed in it.
	if _, err := st.Client(c, false); err != nil {
		return err
	}
	if c.IsSet("output") {
		st.output = c.String("output")
	}

	hist := repl.NewHistory(st.Paths.History)
	if err := hist.Load(); err != nil {
		st.Log.Warn("cannot load shell history", "error", err)
	}
	defer func() {
		if err := hist.Save(); err != nil {
			st.Log.Warn("cannot save shell history", "error", err)
		}
	}()

	fmt.Fprintln(st.Stdout, "sl-cli shell. Type 'help' for commands, 'exit' to quit.")
	r := repl.New(shellExecutor(st),
		repl.WithIO(st.Stdin, st.Stdout),
		repl.WithPrompt(shellPrompt(st)),
		repl.WithHistory(hist),
	)
	return r.Run(c.Context)
}

// shellExecutor runs one shell line as an sl-cli invocation sharing st.
func shellExecutor(st *State) repl.Executor {
	return func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			return errors.New("already in a shell")
		}
		err := newApp(st).RunContext(ctx, append([]string{"sl-cli"}, args...))
		if IsReported(err) {
			return nil
		}
		return err
	}
}

func shellPrompt(st *State) string {
	if st.profile != "" {
		return "sl:" + st.profile + "> "
	}
	return "sl> "
}
