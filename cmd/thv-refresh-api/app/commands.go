// Package app provides the entry point for the ToolHive refresh API application.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stacklok/toolhive-refresh-server/internal/config"
	"github.com/stacklok/toolhive-refresh-server/internal/versions"
)

// NewRootCmd creates a new root command for the refresh API.
// The debug flag lowers level to debug for the whole process.
func NewRootCmd(level zap.AtomicLevel) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(config.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "thv-refresh-api",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "ToolHive refresh coordination server",
		Long: `ToolHive refresh coordination server keeps data views fresh. It runs background
refresh passes while the user is active, fans out refreshes along a dependency graph
and reacts to triggers announced by the backend.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if v.GetBool("debug") {
				level.SetLevel(zapcore.DebugLevel)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := v.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newStatusCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to read format flag: %w", err)
			}

			switch format {
			case "json":
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			case "":
				_, err = fmt.Fprint(cmd.OutOrStdout(), info.String())
				return err
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
