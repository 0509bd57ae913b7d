package main

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvcrn/etrade-mcp/internal/auth"
	"github.com/dvcrn/etrade-mcp/internal/config"
	"github.com/dvcrn/etrade-mcp/internal/credentials"
	"github.com/dvcrn/etrade-mcp/internal/logger"
	"github.com/dvcrn/etrade-mcp/internal/registry"
	"github.com/dvcrn/etrade-mcp/internal/server"
)

var (
	flagEnvFile    string
	flagTokensFile string
)

func main() {
	root := &cobra.Command{
		Use:           "etrade-mcp",
		Short:         "Read-only E*TRADE MCP server with persistent OAuth sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "optional .env file to load before reading configuration")
	root.PersistentFlags().StringVar(&flagTokensFile, "tokens-file", "", "override the token store location (default: $XDG_CONFIG_HOME/etrade-mcp/tokens.json)")
	root.AddCommand(serveCmd(), authorizeCmd())

	if err := root.Execute(); err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			reg, store, err := buildRegistry(log)
			if err != nil {
				return err
			}

			validateTokensAtStartup(reg, store, log)

			log.Info().Strs("profiles", reg.ProfileIDs()).Msg("Starting E*TRADE MCP server on stdio")
			return server.New(reg, log).Start()
		},
	}
}

func authorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize [profile...]",
		Short: "Run or refresh the OAuth authorization flow for one or all profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			reg, _, err := buildRegistry(log)
			if err != nil {
				return err
			}

			ids := args
			if len(ids) == 0 {
				ids = reg.ProfileIDs()
			}

			for _, id := range ids {
				entry, err := reg.Get(id)
				if err != nil {
					return err
				}
				err = entry.Manager.EnsureAuthorized()

				var renewErr *auth.RenewalError
				if errors.As(err, &renewErr) {
					log.Warn().Err(renewErr).Msg("Renewal failed, running full authorization")
					err = entry.Manager.Authorize()
				}
				if err != nil {
					return err
				}
				log.Info().Str("profile", id).Time("expires_at", entry.Manager.ExpiresAt()).Msg("✅ Profile authorized")
			}
			return nil
		},
	}
}

func buildRegistry(log zerolog.Logger) (*registry.Registry, *credentials.Store, error) {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return nil, nil, err
		}
	} else {
		// Best-effort default; a missing .env is fine.
		_ = godotenv.Load()
	}

	profiles, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}

	tokensPath := flagTokensFile
	if tokensPath == "" {
		tokensPath = credentials.DefaultTokensPath()
	}
	store := credentials.NewStore(tokensPath)

	log.Info().Int("profiles", len(profiles)).Str("tokens_file", tokensPath).Msg("Configuration loaded")
	return registry.New(profiles, store, log), store, nil
}

// validateTokensAtStartup reports each profile's persisted token status so a
// headless start makes its authorization needs visible immediately.
func validateTokensAtStartup(reg *registry.Registry, store *credentials.Store, log zerolog.Logger) {
	for _, entry := range reg.Entries() {
		rec, err := store.Load(entry.Profile.ID, string(entry.Profile.Environment))
		if err != nil {
			log.Warn().Err(err).Str("profile", entry.Profile.ID).Msg("⚠️  Could not read persisted tokens")
			continue
		}
		if rec == nil {
			log.Warn().Str("profile", entry.Profile.ID).Msg("⚠️  No persisted tokens, authorization will run on first use")
			continue
		}

		minutesUntilExpiry := int64(time.Until(rec.ExpiresAt).Minutes())
		switch {
		case minutesUntilExpiry <= 0:
			log.Warn().
				Str("profile", entry.Profile.ID).
				Int64("minutes_expired", -minutesUntilExpiry).
				Msg("⚠️  Persisted token is already expired")
		case minutesUntilExpiry <= 30:
			log.Warn().
				Str("profile", entry.Profile.ID).
				Int64("minutes_until_expiry", minutesUntilExpiry).
				Msg("⚠️  Persisted token expires soon, will renew on first use")
		default:
			log.Info().
				Str("profile", entry.Profile.ID).
				Int64("minutes_until_expiry", minutesUntilExpiry).
				Msg("✅ Persisted token is valid")
		}
	}
}
