// Package llm defines the provider contract the matching engine uses to
// generate values for prompt memories and to map labels onto intents.
//
// Example usage:
//
//	provider, err := openai.NewProvider(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o-mini"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg, err := provider.Complete(ctx, []*types.Message{types.NewUserMessage("Hello!")})
package llm

import (
	"context"

	"github.com/entrhq/formless/pkg/types"
)

// Provider is an LLM integration.
type Provider interface {
	// StreamCompletion sends messages and streams back response chunks. The
	// channel is closed when the response ends; stream-time failures arrive
	// as chunks with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages and returns the whole assistant message.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	GetModelInfo() *types.ModelInfo
	GetModel() string
	GetBaseURL() string
}

// StreamChunk is one piece of a streamed response.
type StreamChunk struct {
	Role     string
	Content  string
	Finished bool
	Error    error
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}
