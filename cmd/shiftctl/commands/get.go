package commands

import (
	"github.com/spf13/cobra"
)

func newGetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := root.session()
			if err != nil {
				return err
			}
			rec, err := session.Record(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plain(rec, 0))
		},
	}
}

func newSelfCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "self",
		Short: "Print the account the credentials belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := root.session()
			if err != nil {
				return err
			}
			rec, err := session.Self(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plain(rec, 0))
		},
	}
}
