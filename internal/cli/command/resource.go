package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/servicelayer-go/pkg/odata"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// queryFlags are the OData options of get and find.
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "OData $filter expression"},
		&cli.StringSliceFlag{Name: "select", Aliases: []string{"s"}, Usage: "Fields to return ($select)"},
		&cli.StringSliceFlag{Name: "expand", Usage: "Navigation properties to expand ($expand)"},
		&cli.StringSliceFlag{Name: "orderby", Usage: "Sort order, e.g. 'DocDate desc' ($orderby)"},
		&cli.IntFlag{Name: "top", Aliases: []string{"n"}, Usage: "Maximum number of entities ($top)"},
		&cli.IntFlag{Name: "skip", Usage: "Entities to skip ($skip)"},
		&cli.BoolFlag{Name: "count", Usage: "Include the total count ($count)"},
		&cli.IntFlag{Name: "page-size", Usage: "Server page size (Prefer: odata.maxpagesize)"},
		&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "Extra request header as 'Name: value'"},
	}
}

// writeFlags are the options of post, put and patch.
func writeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "Extra request header as 'Name: value'"},
	}
}

// GetCommand reads a resource.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read a resource",
		ArgsUsage: "RESOURCE",
		Flags:     queryFlags(),
		Action: func(c *cli.Context) error {
			return resourceCall(c, http.MethodGet, false)
		},
	}
}

// FindCommand queries a collection. It issues the same request as get.
func FindCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Query a collection",
		ArgsUsage: "QUERY",
		Flags:     queryFlags(),
		Action: func(c *cli.Context) error {
			return resourceCall(c, http.MethodGet, false)
		},
	}
}

// PostCommand creates an entity or invokes an action.
func PostCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Create an entity or invoke an action",
		ArgsUsage: "RESOURCE [BODY|@FILE|-]",
		Flags:     writeFlags(),
		Action: func(c *cli.Context) error {
			return resourceCall(c, http.MethodPost, true)
		},
	}
}

// PutCommand replaces an entity.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "Replace an entity",
		ArgsUsage: "RESOURCE [BODY|@FILE|-]",
		Flags:     writeFlags(),
		Action: func(c *cli.Context) error {
			return resourceCall(c, http.MethodPut, true)
		},
	}
}

// PatchCommand updates entity fields.
func PatchCommand() *cli.Command {
	flags := append(writeFlags(), &cli.BoolFlag{
		Name:  "replace-collections",
		Usage: "Replace collection properties instead of merging them",
	})
	return &cli.Command{
		Name:      "patch",
		Usage:     "Update entity fields",
		ArgsUsage: "RESOURCE [BODY|@FILE|-]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			return resourceCall(c, http.MethodPatch, true)
		},
	}
}

// DeleteCommand removes an entity.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete an entity",
		ArgsUsage: "RESOURCE",
		Flags:     writeFlags(),
		Action: func(c *cli.Context) error {
			return resourceCall(c, http.MethodDelete, false)
		},
	}
}

func resourceCall(c *cli.Context, method string, withBody bool) error {
	resource := c.Args().First()
	if resource == "" {
		return errors.New("resource required")
	}
	st := GetState(c)

	var body any
	if withBody && c.Args().Len() > 1 {
		data, err := readBody(c.Args().Get(1), st.Stdin)
		if err != nil {
			return err
		}
		body = json.RawMessage(data)
	}

	opts, err := requestOptions(c)
	if err != nil {
		return err
	}

	client, err := st.Client(c, false)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	resp, err := client.Request(ctx, method, resource, body, opts...)
	if err != nil {
		return st.Fail(err)
	}
	if len(resp) == 0 {
		return nil
	}
	return st.Print(c, json.RawMessage(resp))
}

// readBody resolves a body argument: "@path" reads a file, "-" reads in,
// anything else is the JSON document itself.
func readBody(arg string, in io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case arg == "-":
		data, err = io.ReadAll(in)
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(arg[1:])
	default:
		data = []byte(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(data) {
		return nil, errors.New("body is not valid JSON")
	}
	return data, nil
}

// requestOptions collects the query and header flags of c.
func requestOptions(c *cli.Context) ([]servicelayer.RequestOption, error) {
	var opts []servicelayer.RequestOption

	q := odata.Query{
		Filter:  c.String("filter"),
		Select:  splitList(c.StringSlice("select")),
		Expand:  splitList(c.StringSlice("expand")),
		OrderBy: c.StringSlice("orderby"),
		Top:     c.Int("top"),
		Skip:    c.Int("skip"),
		Count:   c.Bool("count"),
	}
	if !q.IsZero() {
		opts = append(opts, servicelayer.WithODataQuery(q))
	}
	if n := c.Int("page-size"); n > 0 {
		opts = append(opts, servicelayer.WithMaxPageSize(n))
	}
	if c.Bool("replace-collections") {
		opts = append(opts, servicelayer.WithReplaceCollections())
	}
	for _, h := range c.StringSlice("header") {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		opts = append(opts, servicelayer.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return opts, nil
}

// splitList accepts both repeated flags and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
