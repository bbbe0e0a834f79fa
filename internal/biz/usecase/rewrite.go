package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"telepost/internal/biz/repo"
)

// RewriteUsecase wraps the external rewrite service with the local
// fallback cleaning the pipeline applies when the service fails, and the
// post-cleaning applied to its untrusted markdown output.
type RewriteUsecase struct {
	rewriteRepo repo.RewriteRepo
	sources     []string // subscribed feed names, stripped from fallback text
}

// NewRewriteUsecase creates a rewrite usecase
func NewRewriteUsecase(rewriteRepo repo.RewriteRepo, sources []string) *RewriteUsecase {
	return &RewriteUsecase{rewriteRepo: rewriteRepo, sources: sources}
}

var (
	mdLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBold   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic = regexp.MustCompile(`\*([^*]+)\*`)

	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Rewrite runs the text through the external service. Texts shorter than
// the minimum length pass through unchanged; on any service failure the
// locally cleaned original is returned instead, never an error.
func (uc *RewriteUsecase) Rewrite(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	if utf8.RuneCountInString(text) < MinTextLength {
		return text
	}

	out, err := uc.rewriteRepo.Rewrite(ctx, text)
	if err != nil {
		slog.Warn("[Rewrite] Service failed, using cleaned original",
			slog.String("error", err.Error()))
		return uc.cleanLocal(text)
	}

	return MarkdownToHTML(strings.TrimSpace(out))
}

// cleanLocal strips known feed self-references and collapses whitespace
func (uc *RewriteUsecase) cleanLocal(text string) string {
	for _, source := range uc.sources {
		text = strings.ReplaceAll(text, "https://t.me/"+source, "")
		text = strings.ReplaceAll(text, "t.me/"+source, "")
		text = strings.ReplaceAll(text, "@"+source, "")
	}
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// MarkdownToHTML converts the markdown constructs the rewrite service
// tends to emit (links, bold, italic) into Telegram HTML markup.
func MarkdownToHTML(text string) string {
	text = mdLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = mdBold.ReplaceAllString(text, "<b>$1</b>")
	text = mdItalic.ReplaceAllString(text, "<i>$1</i>")
	return text
}
