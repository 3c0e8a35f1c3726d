package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/duet/internal/ai"
)

func TestCreateAnthropicClient_SingleRequestPerFailure(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter)
	}{
		{"server error", func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"rate limited", func(w http.ResponseWriter) {
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"overloaded", func(w http.ResponseWriter) {
			w.WriteHeader(529)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				tt.respond(w)
			}))
			defer server.Close()

			client := createAnthropicClient("test-key", option.WithBaseURL(server.URL))
			generator := ai.NewGenerator(ai.NewSingleShotMessageSender(client), ai.GeneratorOptions{
				Model:           anthropic.ModelClaudeSonnet4_0,
				MaxOutputTokens: 450,
				TopK:            2,
			}, zerolog.Nop())

			history := ai.NewHistory(ai.HumanTurn("write a lexer"))
			reply := generator.Generate(context.Background(), ai.Persona{Name: "JJ", Partner: "CHOW-MEIN"}, "write a lexer", history)

			require.Equal(t, ai.FallbackReply, reply)
			require.EqualValues(t, 1, requests.Load())
		})
	}
}
