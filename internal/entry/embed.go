package entry

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Vectorizer turns entry text into embedding vectors. It is shared by
// entry creation (indexing) and the search_entries tool (querying), so
// both sides of the similarity comparison use the same model.
type Vectorizer struct {
	embedder ai.Embedder
}

// NewVectorizer wraps a Genkit embedder.
func NewVectorizer(embedder ai.Embedder) *Vectorizer {
	return &Vectorizer{embedder: embedder}
}

// Vector embeds a single text. Returns an error on an empty embedding so
// callers never index a zero vector.
func (v *Vectorizer) Vector(ctx context.Context, text string) ([]float32, error) {
	resp, err := v.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return resp.Embeddings[0].Embedding, nil
}

// EntryText is the canonical text representation indexed for an entry:
// title plus description, newline separated.
func EntryText(title string, description *string) string {
	if description == nil || *description == "" {
		return title
	}
	return title + "\n" + *description
}
