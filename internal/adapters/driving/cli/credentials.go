package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driving/oauth"
	"github.com/custodia-labs/sercha-drive/internal/connectors/google"
)

const loginTimeout = 5 * time.Minute

var openBrowser = oauth.OpenBrowser

var (
	credentialsUser  string
	credentialsEmail string
	credentialsToken string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage per-user Google Drive credentials",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a Google refresh token for a user",
	Long: `Stores the refresh token used to access the user's Google Drive. The
token is read from --token, or prompted for when omitted.`,
	Args: cobra.NoArgs,
	RunE: runCredentialsSet,
}

var credentialsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Grant Drive access in the browser and store the refresh token",
	Long: `Opens Google's consent page for read-only Drive access and stores the
refresh token it returns. Requires google.client_id and
google.client_secret; the OAuth client must allow loopback redirects.`,
	Args: cobra.NoArgs,
	RunE: runCredentialsLogin,
}

var credentialsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a user has a stored credential",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsCheck,
}

func init() {
	credentialsCmd.PersistentFlags().StringVarP(&credentialsUser, "user", "u", "", "user id")
	credentialsSetCmd.Flags().StringVar(&credentialsEmail, "email", "", "Google account email")
	credentialsSetCmd.Flags().StringVar(&credentialsToken, "token", "", "refresh token")
	credentialsLoginCmd.Flags().StringVar(&credentialsEmail, "email", "", "Google account email")
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsLoginCmd)
	credentialsCmd.AddCommand(credentialsCheckCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func runCredentialsSet(cmd *cobra.Command, _ []string) error {
	if err := requireUser(credentialsUser); err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	token := credentialsToken
	if token == "" {
		cmd.Print("Refresh token: ")
		token = readSecret(cmd.InOrStdin())
		cmd.Println()
	}
	if token == "" {
		return errors.New("refresh token is required")
	}

	if err := s.Credentials.SaveCredential(cmd.Context(), credentialsUser, token, credentialsEmail); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	cmd.Printf("Credential saved for %s.\n", credentialsUser)
	return nil
}

func runCredentialsLogin(cmd *cobra.Command, _ []string) error {
	if err := requireUser(credentialsUser); err != nil {
		return err
	}
	settings, err := requireSettings()
	if err != nil {
		return err
	}
	if settings.Google.ClientID == "" || settings.Google.ClientSecret == "" {
		return errors.New("google.client_id and google.client_secret are required")
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	flow := &oauth.Flow{
		Config: google.OAuthClient{
			ClientID:     settings.Google.ClientID,
			ClientSecret: settings.Google.ClientSecret,
		}.Config(),
		Open: openBrowser,
		Out:  cmd.OutOrStdout(),
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()
	cmd.Println("Waiting for authorization in the browser...")
	token, err := flow.Run(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if err := s.Credentials.SaveCredential(cmd.Context(), credentialsUser, token.RefreshToken, credentialsEmail); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	cmd.Printf("Credential saved for %s.\n", credentialsUser)
	return nil
}

func runCredentialsCheck(cmd *cobra.Command, _ []string) error {
	if err := requireUser(credentialsUser); err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	ok, err := s.Credentials.HasCredential(cmd.Context(), credentialsUser)
	if err != nil {
		return fmt.Errorf("failed to check credential: %w", err)
	}
	if ok {
		cmd.Printf("%s has a stored credential.\n", credentialsUser)
	} else {
		cmd.Printf("%s has no stored credential.\n", credentialsUser)
	}
	return nil
}

// readSecret reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
