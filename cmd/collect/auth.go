package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"redditcollector/pkg/auth"
	"redditcollector/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Reddit API credentials",
	Long: `Manage stored Reddit "script" app credentials.

Credentials are looked up in this order:
  - REDDIT_API_CREDENTIALS (JSON array, also read from .env)
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Reddit API credentials securely",
	Long: `Store the client id and secret of a Reddit script app together with the
account it was registered under.

You will be prompted for:
  - Reddit username (if not provided)
  - Client ID and client secret
  - Account password`,
	Example: `  # Interactive login
  collect auth login

  # Login with username
  collect auth login myaccount`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials.

If no username is provided you choose from the stored accounts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with secrets masked.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowAppRegistrationGuide()

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	} else if username, err = prompt(reader, "Reddit username: "); err != nil {
		return err
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		answer, _ := prompt(reader, fmt.Sprintf("Account '%s' already exists. Update credentials? (y/N): ", username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	clientID, err := prompt(reader, "Client ID: ")
	if err != nil {
		return err
	}
	fmt.Fprint(ui.Output, "Client secret: ")
	secret, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}
	fmt.Fprint(ui.Output, "Password: ")
	password, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	creds := &auth.Credentials{
		ClientID:     clientID,
		ClientSecret: secret,
		Username:     username,
		Password:     password,
	}
	if err := manager.Store(creds); err != nil {
		return err
	}

	ui.PrintSuccess("Account saved: " + username)
	fmt.Fprintln(ui.Output, "\nStart collecting with:")
	fmt.Fprintln(ui.Output, "  $ collect run --subreddit <name>")
	fmt.Fprintf(ui.Output, "  $ collect run --subreddit <name> --account %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) == 1 {
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	fmt.Fprintln(ui.Output, "Select account to remove:")
	for i, account := range accounts {
		fmt.Fprintf(ui.Output, "  %d. %s\n", i+1, account.Username)
	}
	fmt.Fprintf(ui.Output, "  0. Cancel\n\n")

	reader := bufio.NewReader(os.Stdin)
	input, err := prompt(reader, "Choice: ")
	if err != nil {
		return err
	}
	var choice int
	if _, err := fmt.Sscanf(input, "%d", &choice); err != nil || choice < 0 || choice > len(accounts) {
		return fmt.Errorf("invalid choice %q", input)
	}
	if choice == 0 {
		return nil
	}

	username := accounts[choice-1].Username
	if err := manager.Delete(username); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + username)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'collect auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Output)
	for i, account := range accounts {
		masked := auth.Sanitize(account)
		fmt.Fprintf(ui.Output, "%d. Username: %s\n", i+1, masked.Username)
		fmt.Fprintf(ui.Output, "   Client ID: %s\n", masked.ClientID)
		fmt.Fprintf(ui.Output, "   Client secret: %s\n", masked.ClientSecret)
		if !masked.LastModified.IsZero() {
			fmt.Fprintf(ui.Output, "   Last Modified: %s\n", masked.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(ui.Output)
	}
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(ui.Output, label)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
