package db

import (
	"net/url"
	"regexp"
	"strings"
)

var passwordPair = regexp.MustCompile(`(password=)([^\s]+)`)

// MaskDSN hides the password of a key=value or URL style DSN for logging.
func MaskDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		u, err := url.Parse(s)
		if err != nil || u.User == nil {
			return s
		}
		if pw, ok := u.User.Password(); ok && pw != "" {
			return strings.Replace(s, ":"+pw+"@", ":***@", 1)
		}
		return s
	}
	return passwordPair.ReplaceAllString(s, `${1}***`)
}
