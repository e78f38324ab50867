// Package device classifies the requesting client as an installed (PWA)
// app or a plain web browser, and maps the class to a session duration.
package device

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// maxSignalLength bounds header and cookie values considered by the
// detector. Anything longer is treated as absent rather than parsed.
const maxSignalLength = 256

// In-app browser user-agent signatures. Android WebViews advertise "; wv)"
// or the Version/x.x Chrome shape; iOS standalone/web-view agents carry
// the Mobile build token without the Safari token.
var inAppSignatures = []string{
	"; wv)",
	" wv)",
	"webview",
	"standalone",
}

// Classification is the detector's verdict for one request.
type Classification struct {
	IsPWA    bool
	Duration time.Duration
}

// Classify evaluates the request's signals in strict priority order and
// returns the client class with its session duration. It never fails:
// malformed signals resolve to the web branch.
func Classify(r *http.Request) Classification {
	return classification(IsPWARequest(r))
}

// SessionDuration returns the session lifetime for the request's client class.
func SessionDuration(r *http.Request) time.Duration {
	return Classify(r).Duration
}

// IsPWARequest reports whether the request comes from an installed app.
// Signals are checked first match wins; see Classify.
func IsPWARequest(r *http.Request) bool {
	// 1. Explicit standalone-mode header is the final answer either way.
	if v, ok := signalValue(r.Header.Get("X-PWA-Mode")); ok {
		return strings.EqualFold(v, "standalone")
	}

	// 2. Boolean-ish header.
	if v, ok := signalValue(r.Header.Get("X-Standalone-Mode")); ok {
		return isTruthy(v)
	}

	// 3. Client-set cookie.
	if c, err := r.Cookie("pwa_mode"); err == nil {
		if v, ok := signalValue(c.Value); ok {
			return strings.EqualFold(v, "standalone")
		}
	}

	ua, uaOK := signalValue(r.UserAgent())
	if !uaOK {
		return false
	}
	lowerUA := strings.ToLower(ua)

	// 4. Known in-app browser signatures.
	for _, sig := range inAppSignatures {
		if strings.Contains(lowerUA, sig) {
			return true
		}
	}
	// iOS web views present the Mobile token without Safari.
	if strings.Contains(ua, "Mobile/") && !strings.Contains(ua, "Safari") {
		return true
	}

	// 5. Weak heuristic: direct mobile navigation with no referer.
	// Known to misclassify some direct mobile browser traffic as installed.
	if r.Method == http.MethodGet && r.Header.Get("Referer") == "" && isMobileUA(lowerUA) {
		return true
	}

	return false
}

func classification(isPWA bool) Classification {
	if isPWA {
		return Classification{IsPWA: true, Duration: domain.PWASessionDuration}
	}
	return Classification{IsPWA: false, Duration: domain.WebSessionDuration}
}

// signalValue sanity-checks a header or cookie value. Oversized or
// control-character-bearing values are reported as absent so that a hostile
// client cannot steer classification with garbage.
func signalValue(v string) (string, bool) {
	if v == "" || len(v) > maxSignalLength {
		return "", false
	}
	for _, r := range v {
		if unicode.IsControl(r) {
			return "", false
		}
	}
	return strings.TrimSpace(v), true
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func isMobileUA(lowerUA string) bool {
	for _, marker := range []string{"mobile", "android", "iphone", "ipad"} {
		if strings.Contains(lowerUA, marker) {
			return true
		}
	}
	return false
}
