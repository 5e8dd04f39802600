package cli

import (
	"fmt"

	"github.com/Marble879/simpletranscribe/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "simpletranscribe v%s\n", version.Resolve())
			if version.Date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", version.Date)
			}
			return nil
		},
	}
}
