package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sergiogswv/sentinel/internal/bootstrap"
	"github.com/sergiogswv/sentinel/internal/ui"
)

var (
	projectRootFlag string
	jsonOutputFlag  bool
	debugFlag       bool
	noColorFlag     bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Sentinel watches a project and keeps a model-backed code-quality guardian running alongside it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&projectRootFlag, "project-root", ".", "project root directory")
	root.PersistentFlags().BoolVar(&jsonOutputFlag, "json", false, "emit machine-readable JSON output")
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	cobra.OnInitialize(func() {
		ui.InitColors(noColorFlag || os.Getenv("NO_COLOR") != "")
	})

	root.AddCommand(
		newInitCmd(),
		newProCmd(),
		newIndexCmd(),
		newIgnoreCmd(),
		newHookCmd(),
	)
	return root
}

func openApp() (*bootstrap.App, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if projectRootFlag != "." {
		root = projectRootFlag
	}
	return bootstrap.Open(bootstrap.Options{
		ProjectRoot: root,
		Debug:       debugFlag,
		JSON:        jsonOutputFlag,
	})
}
