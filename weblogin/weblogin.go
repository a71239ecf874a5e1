// Package weblogin builds the browser redirect URLs for the web app variant
// of sign-in. The browser navigation is the whole state transition: the
// backend runs the provider exchange and sets its own session, so no local
// state machine or storage is involved.
package weblogin

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	loginGooglePath = "/api/account/login-google"
	logoutPath      = "/api/account/logout"

	returnToParam = "returnTo"
)

// LoginURL returns the backend sign-in redirect URL. returnTo is the path the
// backend sends the browser back to after the session is established; unsafe
// values are replaced with "/".
func LoginURL(baseURL, returnTo string) (string, error) {
	u, err := parseBase(baseURL)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + loginGooglePath
	query := u.Query()
	query.Set(returnToParam, SafeReturnPath(returnTo))
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// LogoutURL returns the backend sign-out redirect URL.
func LogoutURL(baseURL string) (string, error) {
	u, err := parseBase(baseURL)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + logoutPath
	return u.String(), nil
}

// SafeReturnPath accepts only same-site relative paths, guarding the returnTo
// parameter against open redirects. Anything else becomes "/".
func SafeReturnPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "/"
	}
	if strings.ContainsAny(path, "\\\r\n") {
		return "/"
	}
	return path
}

func parseBase(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	return u, nil
}
