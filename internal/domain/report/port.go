package report

import "context"

// Generator sends a built prompt to the search-grounded AI service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (RawResponse, error)
}

// Responder answers a follow-up question scoped to a report.
type Responder interface {
	Ask(ctx context.Context, req FollowUpRequest) (string, error)
}

// Client is implemented by AI adapters that serve both calls.
type Client interface {
	Generator
	Responder
}

// ArtifactStore keeps exported documents and returns a URL for them.
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}
