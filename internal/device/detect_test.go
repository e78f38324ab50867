package device

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

const (
	desktopChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	androidChromeUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
	androidWVUA     = "Mozilla/5.0 (Linux; Android 14; Pixel 8; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/124.0.0.0 Mobile Safari/537.36"
	iosWebViewUA    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/21E236"
)

func newRequest(method, ua string) *http.Request {
	r := httptest.NewRequest(method, "/v1/me", nil)
	if ua != "" {
		r.Header.Set("User-Agent", ua)
	}
	return r
}

func TestIsPWARequest_Priority(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  bool
	}{
		{
			name: "explicit standalone header wins over desktop UA",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", desktopChromeUA)
				r.Header.Set("X-PWA-Mode", "standalone")
			},
			want: true,
		},
		{
			name: "explicit header with other value is final false",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", androidWVUA)
				r.Header.Set("X-PWA-Mode", "browser")
			},
			want: false,
		},
		{
			name: "standalone header is case-insensitive",
			setup: func(r *http.Request) {
				r.Header.Set("X-PWA-Mode", "Standalone")
			},
			want: true,
		},
		{
			name: "boolean header truthy 1",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", desktopChromeUA)
				r.Header.Set("X-Standalone-Mode", "1")
			},
			want: true,
		},
		{
			name: "boolean header truthy TRUE",
			setup: func(r *http.Request) {
				r.Header.Set("X-Standalone-Mode", "TRUE")
			},
			want: true,
		},
		{
			name: "boolean header falsy is final",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", androidWVUA)
				r.Header.Set("X-Standalone-Mode", "0")
			},
			want: false,
		},
		{
			name: "pwa_mode cookie",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", desktopChromeUA)
				r.AddCookie(&http.Cookie{Name: "pwa_mode", Value: "standalone"})
			},
			want: true,
		},
		{
			name: "pwa_mode cookie case-insensitive",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "pwa_mode", Value: "STANDALONE"})
			},
			want: true,
		},
		{
			name: "android webview user agent",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", androidWVUA)
				r.Header.Set("Referer", "https://app.example.com/")
			},
			want: true,
		},
		{
			name: "ios webview user agent",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", iosWebViewUA)
				r.Header.Set("Referer", "https://app.example.com/")
			},
			want: true,
		},
		{
			name: "plain desktop chrome with no other signals",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", desktopChromeUA)
			},
			want: false,
		},
		{
			name: "direct mobile navigation with no referer",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", androidChromeUA)
			},
			want: true,
		},
		{
			name: "mobile navigation with referer is web",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", androidChromeUA)
				r.Header.Set("Referer", "https://www.example.com/")
			},
			want: false,
		},
		{
			name: "direct desktop navigation is web",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", desktopChromeUA)
			},
			want: false,
		},
		{
			name:  "no signals at all",
			setup: func(r *http.Request) {},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(http.MethodGet, "")
			tt.setup(r)
			if got := IsPWARequest(r); got != tt.want {
				t.Errorf("IsPWARequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPWARequest_HeuristicOnlyOnGet(t *testing.T) {
	r := newRequest(http.MethodPost, androidChromeUA)
	if IsPWARequest(r) {
		t.Error("no-referer heuristic should not apply to POST requests")
	}
}

func TestIsPWARequest_MalformedSignals(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{
			name: "10k header value",
			setup: func(r *http.Request) {
				r.Header.Set("X-PWA-Mode", strings.Repeat("a", 10000))
			},
		},
		{
			name: "oversized standalone value",
			setup: func(r *http.Request) {
				r.Header.Set("X-PWA-Mode", "standalone"+strings.Repeat(" ", 300))
			},
		},
		{
			name: "control characters in header",
			setup: func(r *http.Request) {
				r.Header.Set("X-Standalone-Mode", "tru\x01e")
			},
		},
		{
			name: "oversized cookie value",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "pwa_mode", Value: strings.Repeat("s", 1000)})
			},
		},
		{
			name: "oversized user agent",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", strings.Repeat("Mobile ", 2000))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if rec := recover(); rec != nil {
					t.Fatalf("detector panicked: %v", rec)
				}
			}()
			r := newRequest(http.MethodGet, "")
			tt.setup(r)
			if IsPWARequest(r) {
				t.Error("malformed signal should resolve to the web branch")
			}
		})
	}
}

func TestClassify_Durations(t *testing.T) {
	pwa := newRequest(http.MethodGet, "")
	pwa.Header.Set("X-PWA-Mode", "standalone")
	if c := Classify(pwa); !c.IsPWA || c.Duration != domain.PWASessionDuration {
		t.Errorf("Classify(pwa) = %+v, want 7-day PWA classification", c)
	}
	if domain.PWASessionDuration.Seconds() != 604800 {
		t.Errorf("PWA duration = %v seconds, want 604800", domain.PWASessionDuration.Seconds())
	}

	web := newRequest(http.MethodGet, desktopChromeUA)
	if c := Classify(web); c.IsPWA || c.Duration != domain.WebSessionDuration {
		t.Errorf("Classify(web) = %+v, want 24-hour web classification", c)
	}
	if domain.WebSessionDuration.Seconds() != 86400 {
		t.Errorf("web duration = %v seconds, want 86400", domain.WebSessionDuration.Seconds())
	}
}
