// Package llm wraps the language-model collaborators: capture
// classification, voice transcription, image description and the
// conversational agent behind /ask. All calls are fallible and are
// never retried here; the user re-issuing a command is the retry path.
package llm

import (
	"context"

	"keeperbot/internal/models"
)

type Client interface {
	// Classify assigns free text to one of the four classifier
	// categories with a confidence score and extracted fields.
	Classify(ctx context.Context, text string) (models.Classification, error)
	// Transcribe downloads the voice file at fileURL and returns its
	// transcript.
	Transcribe(ctx context.Context, fileURL string) (string, error)
	// DescribeImage returns a short textual description of the image
	// at imageURL.
	DescribeImage(ctx context.Context, imageURL string) (string, error)
	// Ask relays a free-form question to the conversational agent.
	Ask(ctx context.Context, question string) (string, error)
}
