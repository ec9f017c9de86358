package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-shiftboard/recordset"
)

type listOptions struct {
	filters    []string
	batch      int
	limit      int
	operation  string
	resolve    []string
	timeclocks bool
	sorted     bool
}

func newListCommand(root *rootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List the records of a kind",
		Long: `List pages through every record of a kind matching the filter and prints
them as a JSON array.

Usage examples:

1. Shifts of one workgroup with their workgroups resolved:

	shiftctl list shift --filter workgroup=226084 --resolve workgroup

2. Covering members resolved against accounts:

	shiftctl list shift --resolve account:covering_member

3. Who is on right now, with timeclocks:

	shiftctl list shift --op whosOn --timeclocks
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, root, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.filters, "filter", nil, "Filter as key=value; repeatable, commas make a list")
	flags.IntVar(&opts.batch, "batch", 0, "Page size (defaults to the configured batch)")
	flags.IntVar(&opts.limit, "limit", 0, "Print at most this many records (0 for all)")
	flags.StringVar(&opts.operation, "op", string(recordset.OpList), "List operation, e.g. whosOn")
	flags.StringSliceVar(&opts.resolve, "resolve", nil, "References to resolve in bulk, as kind or kind:field")
	flags.BoolVar(&opts.timeclocks, "timeclocks", false, "Attach the covering member's timeclock to each shift")
	flags.BoolVar(&opts.sorted, "sort", false, "Sort with the kind's natural order")
	return cmd
}

func runList(cmd *cobra.Command, root *rootOptions, opts *listOptions, kind string) error {
	ctx := cmd.Context()
	session, err := root.session()
	if err != nil {
		return err
	}
	filter, err := parseFilter(opts.filters)
	if err != nil {
		return err
	}

	c, err := session.Collection(kind,
		recordset.WithFilter(filter),
		recordset.WithBatch(opts.batch),
		recordset.WithOperation(recordset.Operation(opts.operation)),
	)
	if err != nil {
		return err
	}

	for _, spec := range opts.resolve {
		target, resolveOpts, err := parseResolve(spec)
		if err != nil {
			return err
		}
		if err := c.ResolveReferences(ctx, target, resolveOpts...); err != nil {
			return err
		}
	}
	if opts.timeclocks {
		if err := session.AttachTimeclocks(ctx, c); err != nil {
			return err
		}
	}

	var records []*recordset.Record
	if opts.limit > 0 {
		n, err := c.Len(ctx)
		if err != nil {
			return err
		}
		records, err = c.Slice(ctx, 0, min(opts.limit, n))
		if err != nil {
			return err
		}
	} else {
		records, err = c.Records(ctx)
		if err != nil {
			return err
		}
	}
	if opts.sorted {
		recordset.SortRecords(records, c.Kind().Compare)
	}
	return writeJSON(cmd.OutOrStdout(), plainRecords(records))
}

// parseResolve splits "kind" or "kind:field" into ResolveReferences arguments.
func parseResolve(spec string) (string, []recordset.ResolveOption, error) {
	target, field, ok := strings.Cut(spec, ":")
	if target == "" || (ok && field == "") {
		return "", nil, fmt.Errorf("invalid --resolve %q, expected kind or kind:field", spec)
	}
	if !ok {
		return target, nil, nil
	}
	return target, []recordset.ResolveOption{recordset.Field(field)}, nil
}
