package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/Marble879/simpletranscribe/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newModelsCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models and whether they are downloaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tARTIFACT\tSIZE\tSTATUS")
			for _, id := range model.IDs() {
				entry, _ := model.Lookup(id)

				status := "missing"
				present, err := model.Present(string(id), modelDir)
				switch {
				case err != nil:
					app.log().Warn("cannot inspect model artifact", zap.String("model", string(id)), zap.Error(err))
					status = "error"
				case present:
					status = "present"
				}
				fmt.Fprintf(tw, "%s\t%s.bin\t%s\t%s\n", id, entry.ArtifactName, entry.ApproxSize, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nModel directory: %s\n", modelDir)
			return nil
		},
	}
}
