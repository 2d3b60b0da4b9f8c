package device

import (
	"net/url"
	"strings"
	"unicode"
)

// NormalizeUserCode canonicalises a user code as typed by a person:
// hyphens and whitespace are dropped and letters upper-cased, so
// "abcd-1234" and "ABCD1234" compare equal.
func NormalizeUserCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// FormatUserCode renders a code as XXXX-XXXX for display. Codes that are
// not eight characters after normalisation are returned normalised.
func FormatUserCode(code string) string {
	n := NormalizeUserCode(code)
	if len(n) != 8 {
		return n
	}
	return n[:4] + "-" + n[4:]
}

// VerificationURL is the address shown to the user. The provider's
// verification_uri_complete wins; otherwise the code is attached to
// <server>/device so the consent page can pre-fill it.
func VerificationURL(s *Session, serverURL string) string {
	if s.VerificationURIComplete != "" {
		return s.VerificationURIComplete
	}
	base := strings.TrimSuffix(serverURL, "/")
	return base + "/device?user_code=" + url.QueryEscape(s.UserCode)
}
