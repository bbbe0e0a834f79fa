package repo

import "context"

// RewriteRepo is the external text-rewriting service.
// It may fail; callers fall back to a locally cleaned copy of the
// original text and treat any output as untrusted markdown.
type RewriteRepo interface {
	Rewrite(ctx context.Context, text string) (string, error)
}
