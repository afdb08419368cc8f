package repl

import "strings"

// Completer lists the commands available in the shell.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for the sl-cli command set.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"login", "logout", "status",
			"get", "find", "post", "put", "patch", "delete",
			"profile list", "profile show", "profile set", "profile use", "profile remove",
			"version",
			"help", "history", "exit", "quit",
		},
	}
}

// Complete returns the commands starting with prefix, in declaration order.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
