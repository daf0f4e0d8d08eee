package antibot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		blocked bool
	}{
		{
			name:    "captcha page",
			html:    `<html><body><div class="captcha-container">Please slide to verify</div></body></html>`,
			blocked: true,
		},
		{
			name:    "human verification",
			html:    `<html><body>Verify you are human before continuing</body></html>`,
			blocked: true,
		},
		{
			name:    "cloudflare interstitial",
			html:    `<html><head><title>Attention Required! | Cloudflare</title></head></html>`,
			blocked: true,
		},
		{
			name:    "mixed case",
			html:    `<html><body>UNUSUAL TRAFFIC from your network</body></html>`,
			blocked: true,
		},
		{
			name:    "regular product page",
			html:    `<html><body><h1>Wireless Earbuds</h1><span>US $12.99</span></body></html>`,
			blocked: false,
		},
		{
			name:    "empty page",
			html:    "",
			blocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocked, IsBlocked(tt.html))
		})
	}
}
