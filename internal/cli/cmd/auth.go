package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mesa/internal/auth"
	"mesa/internal/cli/client"
)

var (
	loginUsername string
	loginPassword string
	loginKitchen  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Start a staff session",
	Long: `Log in with a staff account and store the session token in the
mesactl config file. --kitchen uses the kitchen login, which admins may
also use.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		username := loginUsername
		if username == "" {
			username = auth.AdminUsername
			if loginKitchen {
				username = auth.KitchenUsername
			}
		}

		password := loginPassword
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimSpace(string(passwordBytes))
		}

		c := client.New(cfg.Server.URL, "")
		result, err := c.Login(cmd.Context(), username, password, loginKitchen)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Auth.Token = c.Token()
		cfg.Auth.Username = username
		cfg.Auth.Role = string(result.Role)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s (%s)\n", cfg.Server.URL, username, result.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the staff session and forget its token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.Auth.Token == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}

		if err := newClient().Logout(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
		}

		cfg.Auth.Token = ""
		cfg.Auth.Role = ""
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "staff username (default admin, or cocina with --kitchen)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginKitchen, "kitchen", false, "use the kitchen login")
}
