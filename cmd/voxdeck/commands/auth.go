package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	loginPassword string
	inviteRole    string
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and persist the session",
	Long: `Exchange operator credentials for a session token. The session is
persisted in the context's cache, so later commands run signed in
until logout.

The password comes from --password or the VOXDECK_PASSWORD
environment variable.

Examples:
  voxdeck login op@example.com --password secret
  VOXDECK_PASSWORD=secret voxdeck login op@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv("VOXDECK_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("password required (use --password or VOXDECK_PASSWORD)")
		}

		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		sess, err := c.SignIn(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(map[string]any{
				"email":  sess.User.Email,
				"role":   sess.User.Role,
				"status": "signed-in",
			})
		}
		fmt.Printf("Signed in as %s\n", sess.User.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and drop the persisted copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SignOut(cmd.Context()); err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(map[string]any{"status": "signed-out"})
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		user := c.Whoami()
		if user == nil {
			return fmt.Errorf("not signed in (run 'voxdeck login <email>')")
		}

		if formatOutput == "json" {
			return printJSON(user)
		}
		if user.Role != "" {
			fmt.Printf("%s (%s)\n", user.Email, user.Role)
		} else {
			fmt.Println(user.Email)
		}
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite <email>",
	Short: "Invite an operator to the workspace",
	Long: `Send a workspace invitation. The backend mails a signup link; the
invitee picks their own password.

Examples:
  voxdeck invite teammate@example.com
  voxdeck invite teammate@example.com --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Invite(cmd.Context(), args[0], inviteRole); err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(map[string]any{"email": args[0], "role": inviteRole, "status": "invited"})
		}
		fmt.Printf("Invited %s\n", args[0])
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "operator password")
	inviteCmd.Flags().StringVar(&inviteRole, "role", "member", "role for the invitee")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(inviteCmd)
}
