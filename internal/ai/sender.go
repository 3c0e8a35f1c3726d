package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
)

// MessageSender sends a single request to the Messages API and returns the complete response
type MessageSender interface {
	SendMessage(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropt.RequestOption) (*anthropic.Message, error)
}

// SingleShotMessageSender sends non-streaming requests with an Anthropic client
type SingleShotMessageSender struct {
	client anthropic.Client
}

func NewSingleShotMessageSender(client anthropic.Client) SingleShotMessageSender {
	return SingleShotMessageSender{
		client: client,
	}
}

func (sms SingleShotMessageSender) SendMessage(
	ctx context.Context,
	params anthropic.MessageNewParams,
	opts ...anthropt.RequestOption,
) (*anthropic.Message, error) {
	response, err := sms.client.Messages.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	if response == nil {
		return nil, fmt.Errorf("empty response")
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			b = []byte(fmt.Sprintf("<unmarshalable: %v>", err))
		}
		return nil, fmt.Errorf("malformed message: %s", string(b))
	}

	return response, nil
}
