package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cchalm/duet/internal/ai"
	"github.com/cchalm/duet/internal/config"
	"github.com/cchalm/duet/internal/discord"
	"github.com/cchalm/duet/internal/document"
	"github.com/cchalm/duet/internal/logging"
	"github.com/cchalm/duet/internal/relay"
	"github.com/cchalm/duet/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect both bots and relay messages until interrupted",
	Long: `Connects the lead and follower bots to Discord and relays messages between them
until the process receives an interrupt. If a transcript directory is configured, each
bot's conversation is exported there on shutdown.`,
	RunE: runRelay,
}

func init() {
	flags := runCmd.Flags()
	flags.Int("max-replies", 0, "Replies each bot may send before it stops; zero means unbounded")
	flags.String("transcript-dir", "", "Directory to export conversation transcripts to on shutdown")

	_ = v.BindPFlag("max_replies", flags.Lookup("max-replies"))
	_ = v.BindPFlag("transcript_dir", flags.Lookup("transcript-dir"))

	rootCmd.AddCommand(runCmd)
}

func runRelay(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Options{FilePath: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logCloser.Close()

	if dotEnvErr != nil {
		if errors.Is(dotEnvErr, fs.ErrNotExist) {
			logger.Info().Msg("No .env file found, using environment variables")
		} else {
			logger.Warn().Err(dotEnvErr).Msg("Failed to load .env file")
		}
	}

	ctx, cancel := setupContext(logger)
	defer cancel()

	runID := telemetry.NewRunID()
	logger = logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Str("version", versionInfo.version).
		Str("model", cfg.Model).
		Int("max_replies", cfg.MaxReplies).
		Msg("Starting duet")

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Version:  versionInfo.version,
		RunID:    runID,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create telemetry provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to shut down telemetry")
		}
	}()

	personas := relay.Personas(cfg.LeadName, cfg.FollowerName)
	bots, r, err := buildRelay(cfg, personas, logger)
	if err != nil {
		return err
	}

	accountIDs := map[relay.Role]string{}
	overrides := map[relay.Role]string{
		relay.RoleLead:     cfg.LeadAccountID,
		relay.RoleFollower: cfg.FollowerAccountID,
	}
	for role, bot := range bots {
		id, err := bot.Open(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := bot.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close discord session")
			}
		}()
		if overrides[role] != "" {
			id = overrides[role]
		}
		accountIDs[role] = id
	}

	if err := r.Connect(accountIDs); err != nil {
		return fmt.Errorf("failed to connect identities: %w", err)
	}
	for role, bot := range bots {
		remove := bot.Forward(ctx, r.Identity(role))
		defer remove()
	}

	logger.Info().Msg("Relay running, press Ctrl+C to stop")
	outcome, err := r.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("relay stopped with error: %w", err)
	}

	if cfg.TranscriptDir != "" {
		exportTranscripts(cfg.TranscriptDir, runID, personas, outcome, logger)
	}
	return nil
}

// buildRelay wires a bot, a generator and an identity for each role
func buildRelay(cfg config.Config, personas map[relay.Role]ai.Persona, logger zerolog.Logger) (map[relay.Role]*discord.Bot, *relay.Relay, error) {
	credentials := map[relay.Role]struct{ discordToken, apiKey string }{
		relay.RoleLead:     {cfg.LeadDiscordToken, cfg.LeadAnthropicAPIKey},
		relay.RoleFollower: {cfg.FollowerDiscordToken, cfg.FollowerAnthropicAPIKey},
	}
	generatorOpts := ai.GeneratorOptions{
		Model:           anthropic.Model(cfg.Model),
		MaxOutputTokens: cfg.MaxOutputTokens,
		TopK:            cfg.TopK,
	}
	fetcher := discord.NewFetcher(rateLimitedHTTPClient(logger), discord.DefaultMaxAttachmentSize)
	extractor := document.NewExtractor(logger)

	bots := map[relay.Role]*discord.Bot{}
	identities := map[relay.Role]*relay.Identity{}
	for _, role := range []relay.Role{relay.RoleLead, relay.RoleFollower} {
		persona := personas[role]
		roleLogger := logger.With().Str("persona", persona.Name).Logger()

		bot, err := discord.New(persona.Name, credentials[role].discordToken, roleLogger)
		if err != nil {
			return nil, nil, err
		}
		client := createAnthropicClient(credentials[role].apiKey)
		generator := ai.NewGenerator(ai.NewSingleShotMessageSender(client), generatorOpts, roleLogger)

		identityCfg := relay.IdentityConfig{
			Role:       role,
			Persona:    persona,
			Responder:  generator,
			Outbox:     bot,
			MaxReplies: cfg.MaxReplies,
			InboxSize:  cfg.InboxSize,
			Logger:     roleLogger,
		}
		if role == relay.RoleLead {
			identityCfg.Fetcher = fetcher
			identityCfg.Extractor = extractor
		}
		identity, err := relay.NewIdentity(identityCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s identity: %w", role, err)
		}

		bots[role] = bot
		identities[role] = identity
	}

	r, err := relay.New(identities[relay.RoleLead], identities[relay.RoleFollower], logger)
	if err != nil {
		return nil, nil, err
	}
	return bots, r, nil
}

func exportTranscripts(dir string, runID string, personas map[relay.Role]ai.Persona, outcome relay.Outcome, logger zerolog.Logger) {
	store := ai.NewFileSystemTranscriptStore(dir)
	states := map[relay.Role]relay.State{
		relay.RoleLead:     outcome.Lead,
		relay.RoleFollower: outcome.Follower,
	}
	for role, state := range states {
		if state.History.Empty() {
			continue
		}
		key := fmt.Sprintf("%s-%s", runID, role)
		transcript := ai.NewTranscript(runID, personas[role], state.Task, state.History)
		if err := store.Save(key, transcript); err != nil {
			logger.Error().Err(err).Str("role", role.String()).Msg("Failed to export transcript")
			continue
		}
		logger.Info().Str("role", role.String()).Str("dir", dir).Str("key", key).Msg("Transcript exported")
	}
}
