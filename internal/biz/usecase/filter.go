package usecase

import (
	"strings"
	"sync"
	"unicode/utf8"

	"telepost/internal/biz/domain"
)

const (
	// MaxFingerprints bounds the recent-content fingerprint cache
	MaxFingerprints = 100

	// MinTextLength is the minimum caption length for posts without media
	MinTextLength = 20
)

// defaultAdKeywords is the static ad/spam keyword list. Matching is a
// case-insensitive substring check against the pre-rewrite text.
var defaultAdKeywords = []string{
	"реклама",
	"промокод",
	"скидка",
	"подпишись",
	"подписывайся",
	"розыгрыш",
	"erid",
	"партнерский материал",
	"#ad",
	"sponsored",
}

// FilterUsecase holds the ad filter and the duplicate filter with its
// bounded fingerprint cache.
type FilterUsecase struct {
	keywords []string

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string // FIFO eviction order
}

// NewFilterUsecase creates a filter usecase with the static keyword list
func NewFilterUsecase() *FilterUsecase {
	return &FilterUsecase{
		keywords: defaultAdKeywords,
		seen:     make(map[string]struct{}, MaxFingerprints),
	}
}

// PassesGate applies the minimum-content gate, checked before the
// filters: short captions without media are considered noise.
func (uc *FilterUsecase) PassesGate(text string, mediaCount int) bool {
	if mediaCount > 0 {
		return true
	}
	return utf8.RuneCountInString(text) >= MinTextLength
}

// IsAd reports whether the text matches the ad keyword list. Empty text
// is never an ad.
func (uc *FilterUsecase) IsAd(text string) bool {
	if text == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, kw := range uc.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// IsDuplicate computes the text's fingerprint and checks it against the
// recent-content cache. A hit returns true without mutating the cache; a
// miss inserts the fingerprint and returns false. Check-and-insert is
// atomic so two identical submissions cannot both pass.
func (uc *FilterUsecase) IsDuplicate(text string) bool {
	fp := domain.Fingerprint(text)
	if fp == "" {
		return false
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if _, ok := uc.seen[fp]; ok {
		return true
	}

	if len(uc.order) >= MaxFingerprints {
		oldest := uc.order[0]
		uc.order = uc.order[1:]
		delete(uc.seen, oldest)
	}
	uc.seen[fp] = struct{}{}
	uc.order = append(uc.order, fp)
	return false
}

// ResetCache drops all remembered fingerprints (janitor sweep)
func (uc *FilterUsecase) ResetCache() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.seen = make(map[string]struct{}, MaxFingerprints)
	uc.order = nil
}

// CacheSize returns the number of cached fingerprints
func (uc *FilterUsecase) CacheSize() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.order)
}
