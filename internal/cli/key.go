package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKeyCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "key <token>",
		Short: "Store the API key used for completion requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.store.SetAPIKey(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "API key saved.")
			return nil
		},
	}
}
