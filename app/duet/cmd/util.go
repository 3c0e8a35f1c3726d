package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/cchalm/duet/internal/transport"
)

func setupContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		logger.Info().Msg("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		logger.Fatal().Msg("Forcing shutdown")
	}()

	return ctx, cancel
}

// rateLimitedHTTPClient is used for attachment downloads only
func rateLimitedHTTPClient(logger zerolog.Logger) *http.Client {
	return &http.Client{
		Transport: transport.WithRateLimiting(nil, transport.WithLogger(logger)),
	}
}

// createAnthropicClient returns a client that sends each request exactly once. A failed call becomes the fallback reply
// straight away rather than being retried
func createAnthropicClient(apiKey string, opts ...option.RequestOption) anthropic.Client {
	opts = append([]option.RequestOption{
		option.WithHTTPClient(&http.Client{}),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return anthropic.NewClient(opts...)
}
