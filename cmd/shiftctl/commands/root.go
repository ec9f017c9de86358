// Package commands holds the shiftctl command tree.
package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-shiftboard/pkg/di"
	"github.com/goliatone/go-shiftboard/recordset"
)

// ContainerFactory builds the client stack from the config file path given
// with --config (empty when not set).
type ContainerFactory func(configPath string) (*di.Container, error)

// FromConfigFile is the ContainerFactory used by the binary.
func FromConfigFile(configPath string) (*di.Container, error) {
	return di.NewContainerFromFile(configPath)
}

type rootOptions struct {
	configPath string
	factory    ContainerFactory
	container  *di.Container
}

// NewRoot returns the root command. Subcommands that talk to the API build
// their container through factory on first use.
func NewRoot(factory ContainerFactory) *cobra.Command {
	opts := &rootOptions{factory: factory}

	root := &cobra.Command{
		Use:   "shiftctl",
		Short: "Query shifts, workgroups and accounts",
		Long: `shiftctl reads records from the shift scheduling JSON-RPC API.

Credentials and settings come from SHIFTBOARD_* environment variables or a
config file:

	SHIFTBOARD_ACCESS_KEY_ID=... SHIFTBOARD_SIGNATURE_KEY=... shiftctl list shift
	shiftctl --config shiftboard.yaml get workgroup 226084
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config file (yaml, json or toml)")

	root.AddCommand(
		newListCommand(opts),
		newGetCommand(opts),
		newSelfCommand(opts),
		newKindsCommand(),
	)
	return root
}

func (o *rootOptions) session() (*recordset.Session, error) {
	if o.container == nil {
		if o.factory == nil {
			return nil, errors.New("no container factory configured")
		}
		c, err := o.factory(o.configPath)
		if err != nil {
			return nil, err
		}
		o.container = c
	}
	return o.container.Session(), nil
}

// parseFilter turns "key=value" pairs into a filter. Values with commas
// become lists, which the API treats as "any of".
func parseFilter(pairs []string) (recordset.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	f := make(recordset.Filter, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", pair)
		}
		if strings.Contains(value, ",") {
			var values []any
			for _, v := range strings.Split(value, ",") {
				values = append(values, v)
			}
			f[key] = values
			continue
		}
		f[key] = value
	}
	return f, nil
}
