// Package redact removes credentials from strings before they are logged.
// Database URLs and driver errors routinely embed passwords; everything that
// reports a connection string or a connection failure goes through here.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

// Placeholders substituted for redacted text.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	PasswordMask          = "****"
)

var (
	// scheme://user:password@ inside free text
	urlCredentialRegex = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://)[^/@\s]+@`)

	// password=secret in keyword/value DSNs and error messages
	passwordRegex = regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*=\s*('[^']*'|"[^"]*"|[^\s&;]+)`)
)

// String redacts credentials from free text.
func String(input string) string {
	if input == "" {
		return input
	}
	result := urlCredentialRegex.ReplaceAllString(input, "${1}"+CredentialPlaceholder+"@")
	return passwordRegex.ReplaceAllString(result, "${1}="+CredentialPlaceholder)
}

// Error redacts credentials from an error's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// DatabaseURL masks the password of a database URL while keeping the user,
// host and database visible. Strings that do not parse as URLs are redacted
// as free text.
func DatabaseURL(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return String(dsn)
	}
	masked := false
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.User(u.User.Username())
			masked = true
		}
	}
	u.RawQuery = maskQueryPassword(u.RawQuery)

	// url escapes the mask, so it is spliced in after the user name.
	s := u.String()
	if masked {
		prefix := u.Scheme + "://" + u.User.String()
		s = prefix + ":" + PasswordMask + strings.TrimPrefix(s, prefix)
	}
	return s
}

// maskQueryPassword replaces the value of every password parameter, keeping
// the other parameters as written.
func maskQueryPassword(rawQuery string) string {
	if rawQuery == "" {
		return rawQuery
	}
	params := strings.Split(rawQuery, "&")
	for i, p := range params {
		key, _, _ := strings.Cut(p, "=")
		if name, err := url.QueryUnescape(key); err == nil && strings.EqualFold(name, "password") {
			params[i] = key + "=" + PasswordMask
		}
	}
	return strings.Join(params, "&")
}
