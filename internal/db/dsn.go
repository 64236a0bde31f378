package db

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// IsPostgres reports whether the DSN targets postgres, either URL style
// (postgres://...) or lib/pq key=value form. Anything else is treated as a
// sqlite path.
func IsPostgres(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	return kvPairRegex.MatchString(dsn)
}

// NormalizeDSN trims quotes and whitespace and, for key=value form, ensures
// an sslmode is present (defaulting to disable).
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// PostgresURL rewrites a key=value DSN into postgres:// URL form, which
// golang-migrate requires. URL-form DSNs pass through unchanged.
func PostgresURL(dsn string) (string, error) {
	s := strings.TrimSpace(dsn)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s, nil
	}
	if !kvPairRegex.MatchString(s) {
		return "", fmt.Errorf("not a postgres DSN: %q", dsn)
	}
	kv := map[string]string{}
	for _, f := range strings.Fields(s) {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("malformed DSN field %q", f)
		}
		kv[strings.ToLower(parts[0])] = parts[1]
	}
	host := kv["host"]
	if host == "" {
		host = "localhost"
	}
	if port := kv["port"]; port != "" {
		host += ":" + port
	}
	u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + kv["dbname"]}
	if user := kv["user"]; user != "" {
		if pass, ok := kv["password"]; ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	if ssl := kv["sslmode"]; ssl != "" {
		q := url.Values{}
		q.Set("sslmode", ssl)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
