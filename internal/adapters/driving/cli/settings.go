package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in config.toml.

Environment variables override the file: SERCHA_<SECTION>_<KEY>, plus
OPENAI_API_KEY, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, JWT_SECRET,
REDIS_ADDR and DATABASE_URL.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a config file value",
	Long: `Sets a dotted key in config.toml, for example:

  sercha-drive settings set queue.driver rabbitmq
  sercha-drive settings set vector.qdrant_port 6334
  sercha-drive settings set worker.cooldown 10s`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}
	settings, err := requireSettings()
	if err != nil {
		cmd.Printf("Warning: %v\n\n", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", store.Path())
	cmd.Println()
	printSettings(cmd, &settings)
	return nil
}

func printSettings(cmd *cobra.Command, s *domain.Settings) {
	cmd.Println("[Store]")
	cmd.Printf("  Driver: %s\n", s.Store.Driver)
	if s.Store.Driver == domain.StorePostgres {
		cmd.Printf("  DSN: %s\n", maskAPIKey(s.Store.PostgresDSN))
	} else if s.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", s.DataDir)
	}
	cmd.Println()

	cmd.Println("[Queue]")
	cmd.Printf("  Driver: %s\n", s.Queue.Driver)
	switch s.Queue.Driver {
	case domain.QueueRedis:
		cmd.Printf("  Redis: %s (db %d)\n", s.Queue.RedisAddr, s.Queue.RedisDB)
	case domain.QueueRabbitMQ:
		cmd.Printf("  AMQP URL: %s\n", maskAPIKey(s.Queue.AMQPURL))
	}
	cmd.Println()

	cmd.Println("[Vector]")
	cmd.Printf("  Driver: %s\n", s.Vector.Driver)
	if s.Vector.Driver == domain.VectorQdrant {
		cmd.Printf("  Qdrant: %s:%d (tls: %t)\n", s.Vector.QdrantHost, s.Vector.QdrantPort, s.Vector.QdrantTLS)
		cmd.Printf("  Collection: %s\n", s.Vector.Collection)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Model: %s (%d dimensions)\n", s.Embedding.Model, s.Embedding.Dimensions)
	if s.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", s.Embedding.BaseURL)
	}
	cmd.Printf("  API Key: %s\n", secretStatus(s.Embedding.APIKey))
	cmd.Println()

	cmd.Println("[Google]")
	cmd.Printf("  Client ID: %s\n", secretStatus(s.Google.ClientID))
	cmd.Printf("  Client Secret: %s\n", secretStatus(s.Google.ClientSecret))
	cmd.Println()

	cmd.Println("[Archive]")
	if s.Blob.Enabled {
		cmd.Printf("  MinIO: %s/%s\n", s.Blob.Endpoint, s.Blob.Bucket)
	} else {
		cmd.Println("  Disabled")
	}
	cmd.Println()

	cmd.Println("[HTTP]")
	cmd.Printf("  Address: %s\n", s.HTTP.Addr)
	cmd.Printf("  JWT Secret: %s\n", secretStatus(s.HTTP.JWTSecret))
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}
	key, raw := args[0], args[1]
	if err := store.Set(key, parseValue(raw)); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("%s updated.\n", key)
	return nil
}

// parseValue keeps numbers and booleans typed in the TOML file.
func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func secretStatus(v string) string {
	if v == "" {
		return "(not set)"
	}
	return maskAPIKey(v)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
