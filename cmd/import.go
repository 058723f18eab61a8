package cmd

import (
	"github.com/astromechza/bloog/pkg/importer"
	"github.com/foomo/keel/log"
	"github.com/spf13/cobra"
)

func NewImportCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "import <file.md>...",
		Short: "Import markdown files with a yaml front matter as posts",
		Args:  cobra.MinimumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return []string{"md"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.Logger()

			s, closer, err := createStore(cmd.Context(), v, l)
			if err != nil {
				return err
			}
			defer func() {
				_ = closer(cmd.Context())
			}()

			return importer.New(l, s, importer.WithOverwrite(overwriteFlag(v))).ImportFiles(cmd.Context(), args...)
		},
	}

	flags := cmd.Flags()
	addStoreFlags(flags, v)
	addOverwriteFlag(flags, v)

	return cmd
}
