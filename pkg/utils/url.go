package utils

import (
	"net/url"
	"strings"
)

// IsExternalURL reports whether the destination points outside of the site.
func IsExternalURL(str string) bool {
	return strings.HasPrefix(str, "http://") || strings.HasPrefix(str, "https://")
}

// RedactURL strips credentials and query options from a storage url so it can be logged.
func RedactURL(str string) string {
	u, err := url.Parse(str)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

// Scheme returns the lower cased url scheme or an empty string.
func Scheme(str string) string {
	u, err := url.Parse(str)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
