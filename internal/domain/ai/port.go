package ai

import "context"

// Vision sends one label image to the model and returns its raw text.
type Vision interface {
	DescribeLabel(ctx context.Context, img Image) (string, error)
}

// Chatter answers a free-text prompt.
type Chatter interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

// Client is a provider that can do both.
type Client interface {
	Vision
	Chatter
	Name() string
}
