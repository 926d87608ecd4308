package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/mycroft/credentials"
)

// Auth command flags.
var (
	authClientID     string
	authClientSecret string
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Gmail authentication",
		Long: `Manage the Gmail OAuth credentials the watcher and sender use.

Credentials are stored encrypted in ~/.mycroft/credentials.yaml. The
encryption key lives in the system keyring, or in MYCROFT_ENCRYPTION_KEY
(hex, 32 bytes) on headless hosts.`,
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize Gmail access",
		Long: `Run the OAuth device flow for a Gmail account.

You need an OAuth client (desktop type) from the Google Cloud console.
The command prints an authorization URL; open it, grant access, and paste
the code back.

Examples:
  mycroft auth login --client-id <id> --client-secret <secret>
  mycroft auth login                   (prompts for both)`,
		RunE: runAuthLogin,
	}
	loginCmd.Flags().StringVar(&authClientID, "client-id", "", "OAuth client ID")
	loginCmd.Flags().StringVar(&authClientSecret, "client-secret", "", "OAuth client secret")

	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show stored credential state",
		RunE:  runAuthStatus,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE:  runAuthLogout,
	})

	return authCmd
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore(mustConfigDir())
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	clientID := authClientID
	if clientID == "" {
		fmt.Print("OAuth client ID: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading client ID: %w", err)
		}
		clientID = strings.TrimSpace(line)
	}
	if clientID == "" {
		return fmt.Errorf("client ID is required")
	}

	clientSecret := authClientSecret
	if clientSecret == "" {
		fmt.Print("OAuth client secret: ")
		secretBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			// Terminal not available, fall back to plain input.
			line, readErr := reader.ReadString('\n')
			if readErr != nil {
				return fmt.Errorf("reading client secret: %w", readErr)
			}
			clientSecret = strings.TrimSpace(line)
		} else {
			clientSecret = strings.TrimSpace(string(secretBytes))
		}
	}
	if clientSecret == "" {
		return fmt.Errorf("client secret is required")
	}

	fmt.Println()
	fmt.Println("Open this URL in a browser and grant access:")
	fmt.Println()
	fmt.Printf("  %s\n", credentials.AuthURL(clientID, clientSecret))
	fmt.Println()
	fmt.Print("Authorization code: ")

	codeLine, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code := strings.TrimSpace(codeLine)
	if code == "" {
		return fmt.Errorf("authorization code is required")
	}

	if err := credentials.Exchange(cmd.Context(), store, clientID, clientSecret, code); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Login successful. Gmail access is ready.")
	fmt.Println("Enable the watcher with gmail_enabled: true in the config file.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore(mustConfigDir())
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	creds, err := store.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			fmt.Println("Not authenticated. Run 'mycroft auth login'.")
			return nil
		}
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Println("Stored Credentials:")
	fmt.Printf("  Client ID:     %s\n", creds.ClientID)
	fmt.Printf("  Access token:  %s\n", credentials.MaskToken(creds.AccessToken))
	if creds.RefreshToken != "" {
		fmt.Println("  Refresh token: (present)")
	}
	if !creds.Expiry.IsZero() {
		fmt.Printf("  Token expires: %s\n", creds.Expiry.Format(time.RFC3339))
		if time.Now().After(creds.Expiry) && creds.RefreshToken == "" {
			fmt.Println("\nWarning: token expired and no refresh token stored. Run 'mycroft auth login' again.")
		}
	}
	if !creds.LastUpdated.IsZero() {
		fmt.Printf("  Last updated:  %s\n", creds.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore(mustConfigDir())
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	if !store.Exists() {
		fmt.Println("No stored credentials found.")
		return nil
	}
	if err := store.Delete(); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}
	fmt.Println("Logged out. Stored credentials have been removed.")
	return nil
}
