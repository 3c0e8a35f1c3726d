package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FallbackReply is delivered in place of a model response whenever the backend call fails
const FallbackReply = "Sorry, I encountered an error while processing your request."

var tracer = otel.Tracer("github.com/cchalm/duet/internal/ai")

// GeneratorOptions holds the request parameters sent with every backend call
type GeneratorOptions struct {
	Model           anthropic.Model
	MaxOutputTokens int64
	TopK            int64 // Zero leaves sampling at the API default
}

// Generator produces one model reply for a conversation history
type Generator struct {
	sender MessageSender
	opts   GeneratorOptions
	logger zerolog.Logger
}

func NewGenerator(sender MessageSender, opts GeneratorOptions, logger zerolog.Logger) *Generator {
	return &Generator{
		sender: sender,
		opts:   opts,
		logger: logger.With().Str("component", "generator").Logger(),
	}
}

// Generate submits the whole history with the persona's system prompt and returns the model's text. Any failure is
// logged and turned into FallbackReply, so callers never see an error
func (g *Generator) Generate(ctx context.Context, persona Persona, task string, history History) string {
	ctx, span := tracer.Start(ctx, "ai.generate", trace.WithAttributes(
		attribute.String("llm.request.model", string(g.opts.Model)),
		attribute.String("llm.persona", persona.Name),
		attribute.Int("llm.history.turns", history.Len()),
	))
	defer span.End()

	text, err := g.generate(ctx, persona, task, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
		g.logger.Error().Err(err).Str("persona", persona.Name).Int("turns", history.Len()).Msg("Failed to generate response")
		return FallbackReply
	}
	return text
}

func (g *Generator) generate(ctx context.Context, persona Persona, task string, history History) (string, error) {
	system, err := BuildSystemPrompt(persona, task)
	if err != nil {
		return "", fmt.Errorf("failed to build system prompt: %w", err)
	}

	messages := history.MessageParams()
	if len(messages) == 0 {
		return "", fmt.Errorf("history has no sendable turns")
	}

	params := anthropic.MessageNewParams{
		Model:     g.opts.Model,
		MaxTokens: g.opts.MaxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: messages,
	}
	if g.opts.TopK > 0 {
		params.TopK = anthropic.Int(g.opts.TopK)
	}

	g.logger.Debug().Str("persona", persona.Name).Int("messages", len(messages)).Msg("Sending request to Anthropic API")

	response, err := g.sender.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int64("llm.usage.input_tokens", response.Usage.InputTokens),
		attribute.Int64("llm.usage.output_tokens", response.Usage.OutputTokens),
		attribute.String("llm.stop_reason", string(response.StopReason)),
	)

	var text strings.Builder
	for _, block := range response.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("response contained no text content")
	}

	g.logger.Debug().
		Str("persona", persona.Name).
		Int64("input_tokens", response.Usage.InputTokens).
		Int64("output_tokens", response.Usage.OutputTokens).
		Msg("Received response from Anthropic API")

	return text.String(), nil
}
