package ports

import "context"

// PhotoStore persists accepted selfie images.
type PhotoStore interface {
	// Save stores content (already validated as an image of mimeType) and
	// returns a relative reference resolvable by the static file server.
	Save(ctx context.Context, userID string, content []byte, mimeType string) (string, error)
	// Delete removes a previously saved photo and its derivatives.
	Delete(ctx context.Context, ref string) error
}
