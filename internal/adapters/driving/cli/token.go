package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driving/httpapi"
)

var (
	tokenUser  string
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	Long: `Issues an HS256 token signed with the http.jwt_secret setting. The token
identifies the user to the /drive routes.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime (0 = no expiry)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if err := requireUser(tokenUser); err != nil {
		return err
	}
	settings, err := requireSettings()
	if err != nil {
		return err
	}
	if settings.HTTP.JWTSecret == "" {
		return errors.New("http.jwt_secret is not set")
	}

	token, err := httpapi.IssueToken(settings.HTTP.JWTSecret, tokenUser, tokenEmail, tokenTTL)
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}
