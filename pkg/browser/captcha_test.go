package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCaptcha(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		frames  []string
		want    string
		wantHit bool
	}{
		{name: "recaptcha div", html: `<div class="g-recaptcha" data-sitekey="x"></div>`, want: "recaptcha", wantHit: true},
		{name: "hcaptcha uppercase", html: `<div class="H-CAPTCHA"></div>`, want: "captcha", wantHit: true},
		{name: "turnstile", html: `<div class="cf-turnstile"></div>`, want: "cf-turnstile", wantHit: true},
		{name: "frame url only", html: `<form></form>`, frames: []string{"about:blank", "https://newassets.hcaptcha.com/captcha/v1"}, want: "captcha", wantHit: true},
		{name: "clean page", html: `<form><input name="email"></form>`, frames: []string{"https://example.com/contact"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := DetectCaptcha(tt.html, tt.frames)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubPage struct {
	Page
	html    string
	htmlErr error
	frames  []string
}

func (p *stubPage) HTML(context.Context) (string, error) { return p.html, p.htmlErr }
func (p *stubPage) FrameURLs() []string                  { return p.frames }

func TestPageHasCaptcha(t *testing.T) {
	ctx := context.Background()

	assert.True(t, PageHasCaptcha(ctx, &stubPage{html: `<div class="g-recaptcha"></div>`}))
	assert.False(t, PageHasCaptcha(ctx, &stubPage{html: `<form></form>`}))
	assert.True(t, PageHasCaptcha(ctx, &stubPage{htmlErr: errors.New("detached"), frames: []string{"https://challenges.cloudflare.com/cf-turnstile"}}))
	assert.False(t, PageHasCaptcha(ctx, &stubPage{htmlErr: errors.New("detached")}))
}
