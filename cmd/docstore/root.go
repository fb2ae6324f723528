package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docstore/internal/config"
	"docstore/internal/output"
)

type outputFlags struct {
	json bool
	yaml bool
}

// structured reports whether the command should print a machine-readable
// payload instead of plain lines.
func (o *outputFlags) structured() bool {
	return o.json || o.yaml
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	out := &outputFlags{}
	var logLevel string

	cmd := &cobra.Command{
		Use:           "docstore",
		Short:         "Docstore keeps documents, their contents and their PDF renditions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if out.json && out.yaml {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			outputFormatter = output.JSONFormatter{}
			if out.yaml {
				outputFormatter = output.YAMLFormatter{}
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newInfoCmd(cfg, out),
		newDocCmd(cfg, out),
		newUploadCmd(cfg, out),
		newContentsCmd(cfg, out),
		newDownloadCmd(cfg),
		newRenderCmd(cfg, out),
		newJobCmd(cfg, out),
		newFormatsCmd(cfg, out),
		newVerifyCmd(cfg, out),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, out),
		newTokenCmd(),
	)

	return cmd
}
