package weblogin_test

import (
	"testing"

	"github.com/recipevault/go-client-auth/weblogin"
	"github.com/stretchr/testify/require"
)

func TestLoginURL(t *testing.T) {
	url, err := weblogin.LoginURL("https://api.example.com", "/recipes/42")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/account/login-google?returnTo=%2Frecipes%2F42", url)
}

func TestLoginURLWithBasePath(t *testing.T) {
	url, err := weblogin.LoginURL("https://example.com/backend/", "/favorites")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/backend/api/account/login-google?returnTo=%2Ffavorites", url)
}

func TestLoginURLRejectsRelativeBase(t *testing.T) {
	_, err := weblogin.LoginURL("/api", "/recipes")
	require.Error(t, err)
}

func TestLogoutURL(t *testing.T) {
	url, err := weblogin.LogoutURL("https://api.example.com")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/account/logout", url)
}

func TestSafeReturnPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain path", in: "/recipes", want: "/recipes"},
		{name: "path with query", in: "/recipes?sort=new", want: "/recipes?sort=new"},
		{name: "empty", in: "", want: "/"},
		{name: "absolute url", in: "https://evil.example.com", want: "/"},
		{name: "protocol relative", in: "//evil.example.com", want: "/"},
		{name: "backslash trick", in: "/\\evil.example.com", want: "/"},
		{name: "newline injection", in: "/recipes\r\nSet-Cookie: x", want: "/"},
		{name: "no leading slash", in: "recipes", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, weblogin.SafeReturnPath(tt.in))
		})
	}
}
