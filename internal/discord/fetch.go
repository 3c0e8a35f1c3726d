package discord

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cchalm/duet/internal/relay"
)

// DefaultMaxAttachmentSize bounds how much of an attachment is downloaded
const DefaultMaxAttachmentSize = 25 << 20

// Fetcher downloads attachments from Discord's CDN
type Fetcher struct {
	client  *http.Client
	maxSize int
}

func NewFetcher(client *http.Client, maxSize int) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxAttachmentSize
	}
	return &Fetcher{client: client, maxSize: maxSize}
}

func (f *Fetcher) Fetch(ctx context.Context, attachment relay.Attachment) ([]byte, error) {
	if attachment.URL == "" {
		return nil, fmt.Errorf("attachment %q has no URL", attachment.Name)
	}
	if attachment.Size > f.maxSize {
		return nil, fmt.Errorf("attachment %q is %d bytes, over the %d byte limit", attachment.Name, attachment.Size, f.maxSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for attachment %q: %w", attachment.Name, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment %q: %w", attachment.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download attachment %q: unexpected status %s", attachment.Name, resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxSize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %q: %w", attachment.Name, err)
	}
	if len(b) > f.maxSize {
		return nil, fmt.Errorf("attachment %q exceeds the %d byte limit", attachment.Name, f.maxSize)
	}
	return b, nil
}
