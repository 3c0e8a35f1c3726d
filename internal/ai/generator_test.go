package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type senderStub struct {
	response *anthropic.Message
	err      error

	calls  int
	params anthropic.MessageNewParams
}

func (ss *senderStub) SendMessage(_ context.Context, params anthropic.MessageNewParams, _ ...anthropt.RequestOption) (*anthropic.Message, error) {
	ss.calls++
	ss.params = params
	return ss.response, ss.err
}

// newAnthropicResponse creates an *anthropic.Message, which is difficult to create otherwise because the SDK only
// intends users to get one by deserializing an API response
func newAnthropicResponse(t *testing.T, content ...anthropic.ContentBlockParamUnion) *anthropic.Message {
	t.Helper()

	paramJSON, err := json.Marshal(anthropic.NewAssistantMessage(content...))
	require.NoError(t, err)

	var msg anthropic.Message
	require.NoError(t, json.Unmarshal(paramJSON, &msg))
	return &msg
}

func testGenerator(sender MessageSender) *Generator {
	return NewGenerator(sender, GeneratorOptions{
		Model:           anthropic.ModelClaudeSonnet4_0,
		MaxOutputTokens: 450,
		TopK:            2,
	}, zerolog.Nop())
}

var testPersona = Persona{Name: "JJ", Partner: "CHOW-MEIN"}

func TestGenerate_ReturnsResponseText(t *testing.T) {
	sender := &senderStub{response: newAnthropicResponse(t, anthropic.NewTextBlock("func main() {}"))}
	history := NewHistory(HumanTurn("write main"))

	reply := testGenerator(sender).Generate(context.Background(), testPersona, "write main", history)

	require.Equal(t, "func main() {}", reply)
	require.Equal(t, 1, sender.calls)
}

func TestGenerate_RequestParameters(t *testing.T) {
	sender := &senderStub{response: newAnthropicResponse(t, anthropic.NewTextBlock("ok"))}
	history := NewHistory(
		HumanTurn("", "the task"),
		HumanTurn("the task"),
		AssistantTurn("first reply"),
		HumanTurn("peer reply"),
	)

	testGenerator(sender).Generate(context.Background(), testPersona, "the task", history)

	params := sender.params
	require.Equal(t, anthropic.ModelClaudeSonnet4_0, params.Model)
	require.Equal(t, int64(450), params.MaxTokens)
	require.Equal(t, int64(2), params.TopK.Or(0))
	require.Len(t, params.System, 1)
	require.Contains(t, params.System[0].Text, "You are JJ")
	require.Contains(t, params.System[0].Text, "the task")

	require.Len(t, params.Messages, 4)
	// The empty document segment is dropped from the combined turn
	require.Len(t, params.Messages[0].Content, 1)
	require.Equal(t, "the task", params.Messages[0].Content[0].OfText.Text)
	require.Equal(t, anthropic.MessageParamRoleUser, params.Messages[0].Role)
	require.Equal(t, anthropic.MessageParamRoleAssistant, params.Messages[2].Role)
	require.Equal(t, "peer reply", params.Messages[3].Content[0].OfText.Text)
}

func TestGenerate_BackendErrorYieldsFallback(t *testing.T) {
	sender := &senderStub{err: errors.New("529 overloaded")}

	reply := testGenerator(sender).Generate(context.Background(), testPersona, "task", NewHistory(HumanTurn("task")))

	require.Equal(t, FallbackReply, reply)
	require.Equal(t, 1, sender.calls)
}

func TestGenerate_NoTextContentYieldsFallback(t *testing.T) {
	sender := &senderStub{response: newAnthropicResponse(t)}

	reply := testGenerator(sender).Generate(context.Background(), testPersona, "task", NewHistory(HumanTurn("task")))

	require.Equal(t, FallbackReply, reply)
}

func TestGenerate_EmptyHistoryYieldsFallbackWithoutCall(t *testing.T) {
	sender := &senderStub{response: newAnthropicResponse(t, anthropic.NewTextBlock("unused"))}

	reply := testGenerator(sender).Generate(context.Background(), testPersona, "task", NewHistory(HumanTurn("  ")))

	require.Equal(t, FallbackReply, reply)
	require.Equal(t, 0, sender.calls)
}

func TestGenerate_ConcatenatesTextBlocks(t *testing.T) {
	sender := &senderStub{response: newAnthropicResponse(t,
		anthropic.NewTextBlock("part one, "),
		anthropic.NewTextBlock("part two"),
	)}

	reply := testGenerator(sender).Generate(context.Background(), testPersona, "task", NewHistory(HumanTurn("task")))

	require.Equal(t, "part one, part two", reply)
}
