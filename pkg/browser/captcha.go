package browser

import (
	"context"
	"strings"
)

// captchaPatterns are matched case-insensitively against page markup and
// frame URLs.
var captchaPatterns = []string{
	"recaptcha",
	"g-recaptcha",
	"captcha",
	"hcaptcha",
	"cf-turnstile",
}

// DetectCaptcha reports the first CAPTCHA marker found in rawHTML or in any
// of frameURLs.
func DetectCaptcha(rawHTML string, frameURLs []string) (string, bool) {
	content := strings.ToLower(rawHTML)
	for _, p := range captchaPatterns {
		if strings.Contains(content, p) {
			return p, true
		}
	}
	for _, u := range frameURLs {
		lower := strings.ToLower(u)
		for _, p := range captchaPatterns {
			if strings.Contains(lower, p) {
				return p, true
			}
		}
	}
	return "", false
}

// PageHasCaptcha inspects a live page. Failing to read the page counts as
// no CAPTCHA.
func PageHasCaptcha(ctx context.Context, p Page) bool {
	content, err := p.HTML(ctx)
	if err != nil {
		content = ""
	}
	_, found := DetectCaptcha(content, p.FrameURLs())
	return found
}
