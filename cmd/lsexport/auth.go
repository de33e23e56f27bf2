package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lsexport/pkg/auth"
	"lsexport/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Lightspeed API credentials",
	Long: `Manage stored Lightspeed personal access tokens securely.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [domain]",
	Short: "Store a Lightspeed personal token securely",
	Long: `Store a Lightspeed personal access token in the system keychain or an
encrypted file, keyed by retailer domain.

You will be prompted for:
  - Retailer domain (if not provided), e.g. mystore.retail.lightspeed.app
  - Personal access token (hidden as you type)

Generate a token in the Lightspeed back office under
Setup > Personal Tokens.`,
	Example: `  # Interactive login
  lsexport auth login

  # Login for a specific domain
  lsexport auth login mystore.retail.lightspeed.app`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status [domain]",
	Short: "Show stored credential status",
	Long:  `Show whether a token is stored for the given retailer domain.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [domain]",
	Short: "Remove a stored token",
	Long:  `Remove the stored token for a retailer domain from every credential store.`,
	Example: `  # Remove a stored token
  lsexport auth logout mystore.retail.lightspeed.app`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	domain := argOrPromptDomain(args)
	if domain == "" {
		ui.PrintError("Domain is required", "")
		os.Exit(1)
	}

	if manager.Exists(domain) {
		fmt.Printf("A token for %s is already stored. Replace it? (y/N): ", domain)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return
		}
	}

	fmt.Print("Personal access token (hidden): ")
	tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		ui.PrintError("Failed to read token", err.Error())
		os.Exit(1)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		ui.PrintError("Token is required", "")
		os.Exit(1)
	}

	if err := manager.Store(&auth.Credential{Domain: domain, Token: token}); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials stored for " + domain)
	fmt.Println("\nRun an export with:")
	fmt.Printf("  lsexport export --domain %s\n", domain)
}

func runStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	domain := argOrEnvDomain(args)
	if domain == "" {
		ui.PrintError("Domain is required", "pass it as an argument or set LIGHTSPEED_DOMAIN")
		os.Exit(1)
	}

	cred, err := manager.Retrieve(domain)
	if err != nil {
		ui.PrintWarning("No stored token for " + domain)
		fmt.Println("Store one with: lsexport auth login " + domain)
		os.Exit(1)
	}

	ui.PrintInfo("Domain", cred.Domain)
	ui.PrintInfo("Token", maskToken(cred.Token))
	if !cred.LastModified.IsZero() {
		ui.PrintInfo("Stored", cred.LastModified.Format("2006-01-02 15:04:05"))
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	domain := argOrPromptDomain(args)
	if domain == "" {
		ui.PrintError("Domain is required", "")
		os.Exit(1)
	}

	if err := manager.Delete(domain); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Removed stored token for " + domain)
}

func argOrPromptDomain(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(args[0])
	}
	fmt.Print("Retailer domain: ")
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}

func argOrEnvDomain(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(args[0])
	}
	return strings.TrimSpace(os.Getenv("LIGHTSPEED_DOMAIN"))
}

// maskToken shows just enough of a token to identify it
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + strings.Repeat("*", 8) + token[len(token)-4:]
}
