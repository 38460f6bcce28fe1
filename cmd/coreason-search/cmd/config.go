package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CoReason-AI/coreason-search/configs"
	"github.com/CoReason-AI/coreason-search/internal/config"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the annotated default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return cserrors.ValidationError(
					fmt.Sprintf("%s already exists, use --force to overwrite", path), nil)
			}
			if err := os.WriteFile(path, []byte(configs.DefaultConfigTemplate), 0o644); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after file and environment overrides,
with the source file that was loaded, if any.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path, _ := config.ResolveConfigPath(configPath)
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Fprintf(out, "# loaded from %s\n", path)
			} else {
				fmt.Fprintln(out, "# built-in defaults, no config file found")
			}
			encoded, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(encoded)
			return err
		},
	}
}
