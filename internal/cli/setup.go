package cli

import (
	"fmt"

	"github.com/Marble879/simpletranscribe/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetupCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download the speech model without transcribing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			present, err := model.Present(app.model, modelDir)
			if err != nil {
				return err
			}

			store, err := model.Acquire(cmd.Context(), app.model, modelDir, app.acquireOptions()...)
			if err != nil {
				return err
			}

			if present {
				app.log().Info("model already present", zap.String("model", string(store.ID())), zap.String("path", store.ArtifactPath()))
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s already present at %s\n", store.ID(), store.ArtifactPath())
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model %s installed at %s\n", store.ID(), store.ArtifactPath())
			return nil
		},
	}
}
