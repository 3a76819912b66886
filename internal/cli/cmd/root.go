// Package cmd implements the mesactl commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mesa/internal/cli/client"
	"mesa/internal/cli/config"
	"mesa/internal/cli/output"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mesactl",
	Short: "Staff CLI for the mesa table ordering server",
	Long: `mesactl manages tables and follows orders on a mesa server.
Table tokens can also be inspected and verified offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mesactl/config.yaml)")
	rootCmd.PersistentFlags().String("server-url", "", "mesa server URL")
	rootCmd.PersistentFlags().String("token", "", "session token")
	output.AddFormatFlag(rootCmd)

	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server-url"))
	_ = viper.BindPFlag("auth.token", rootCmd.PersistentFlags().Lookup("token"))
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return cfg
}

func newClient() *client.Client {
	return client.New(cfg.Server.URL, cfg.Auth.Token)
}

func newFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.GetFormatFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	f := output.New(format)
	f.SetWriter(cmd.OutOrStdout())
	return f, nil
}

// requireSession wraps API errors that mean the stored session is unusable.
func requireSession(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w\nrun 'mesactl login' to start a session", err)
	}
	return err
}
