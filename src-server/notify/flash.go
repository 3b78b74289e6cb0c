package notify

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"
)

// FlashCookieName holds toasts across the redirect that follows a form post.
const FlashCookieName = "attendex_flash"

const (
	maxFlashToasts = 5
	// browsers drop cookies above 4096 bytes including name and attributes
	maxFlashBytes = 3800
)

// WriteFlash stores toasts for the next request. Older toasts are dropped
// first, and a lone toast that still does not fit is truncated.
func WriteFlash(w http.ResponseWriter, toasts []Toast, secure bool) {
	toasts = normalize(toasts)
	if len(toasts) > maxFlashToasts {
		toasts = toasts[len(toasts)-maxFlashToasts:]
	}
	value := encodeFlash(toasts)
	if value == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadFlash returns the pending toasts and expires the cookie.
func ReadFlash(w http.ResponseWriter, r *http.Request, secure bool) []Toast {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cookie.Value))
	if err != nil {
		return nil
	}
	var toasts []Toast
	if err := json.Unmarshal(decoded, &toasts); err != nil {
		return nil
	}
	return normalize(toasts)
}

func encodeFlash(toasts []Toast) string {
	for len(toasts) > 0 {
		payload, err := json.Marshal(toasts)
		if err != nil {
			return ""
		}
		value := base64.RawURLEncoding.EncodeToString(payload)
		if len(value) <= maxFlashBytes {
			return value
		}
		if len(toasts) > 1 {
			toasts = toasts[1:]
			continue
		}
		over := (len(value)-maxFlashBytes)*3/4 + 1
		toasts[0].Message = truncate(toasts[0].Message, over)
		if toasts[0].Message == "" {
			return ""
		}
	}
	return ""
}

// truncate shortens s by at least n bytes on a rune boundary and marks the cut.
func truncate(s string, n int) string {
	const ellipsis = "…"
	cut := len(s) - n - len(ellipsis)
	if cut <= 0 {
		return ""
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

func normalize(toasts []Toast) []Toast {
	out := toasts[:0:0]
	for _, t := range toasts {
		t.Message = strings.TrimSpace(t.Message)
		if t.Message == "" {
			continue
		}
		switch t.Kind {
		case KindSuccess, KindInfo, KindWarning, KindError:
			out = append(out, t)
		}
	}
	return out
}
