package cmd

import (
	"ProctorGuard/pkg/proctor"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var catalogueFile string

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Validate a catalogue file and print it normalised, or print the default",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogue := proctor.DefaultCatalogue()

		path := catalogueFile
		if path == "" {
			path = os.Getenv("CATALOGUE_PATH")
		}
		if path != "" {
			loaded, err := proctor.LoadCatalogueFile(path)
			if err != nil {
				return fmt.Errorf("invalid catalogue %s: %w", path, err)
			}
			catalogue = loaded
		}

		out, err := proctor.MarshalCatalogue(catalogue)
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	catalogueCmd.Flags().StringVarP(&catalogueFile, "file", "f", "", "Catalogue YAML to validate (defaults to CATALOGUE_PATH)")
	rootCmd.AddCommand(catalogueCmd)
}
