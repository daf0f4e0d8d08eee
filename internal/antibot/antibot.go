package antibot

import (
	"errors"
	"strings"
)

// ErrDetected is the content-level block signal. It is never retried; the
// crawler either aborts the run or skips the unit, depending on configuration.
var ErrDetected = errors.New("anti-bot page detected")

// indicators only match obvious block pages. False negatives are acceptable;
// a false positive would abort or skip a crawl unit, so the set stays narrow.
var indicators = []string{
	"captcha",
	"verify you are human",
	"cloudflare",
	"attention required",
	"unusual traffic",
}

// IsBlocked reports whether the page content is an anti-bot interstitial.
// Pure, case-insensitive substring check.
func IsBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
