package google

import (
	"bufio"
	"context"
	"fmt"

	"github.com/ikigai/ikigai/internal/provider"
)

// Provider implements provider.Provider against the Gemini
// generateContent/streamGenerateContent REST API (SPEC_FULL.md §4.3, §6).
type Provider struct {
	client *Client
	model  string
}

// New constructs a Provider bound to the given client and default model.
func New(client *Client, model string) *Provider {
	return &Provider{client: client, model: model}
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) modelFor(req *provider.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

// StartRequest performs a buffered generateContent call and parses the
// resulting JSON body with parseResponse.
func (p *Provider) StartRequest(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := buildRequestBody(req)
	raw, err := p.client.doJSON(ctx, p.client.generateURL(p.modelFor(req)), body)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, fmt.Errorf("google: %w", apiErr)
		}
		return nil, err
	}
	return parseResponse(raw)
}

// StartStream issues a streamGenerateContent SSE request and feeds decoded
// chunks through a streamContext, emitting StreamEvents on the returned
// channel. The channel is closed once the terminal Done/Error event (or a
// transport failure) has been delivered, per SPEC_FULL.md §8's ordering
// invariant.
func (p *Provider) StartStream(ctx context.Context, req *provider.Request) (<-chan provider.StreamEvent, error) {
	body := buildRequestBody(req)
	events := make(chan provider.StreamEvent, 16)

	reader, err := p.client.openStream(ctx, p.client.streamURL(p.modelFor(req)), body)
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(events)
		defer reader.Close()

		sc := newStreamContext(func(ev provider.StreamEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})

		br := bufio.NewReader(reader)
		for {
			payload, readErr := readSSEEvent(br)
			if payload != "" {
				sc.processChunk([]byte(payload))
			}
			if readErr != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	return events, nil
}
