package fetcher

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// NewClient returns an HTTP client with a cookie jar scoped with the public
// suffix list, ready to be seeded with session cookies.
func NewClient() (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	return &http.Client{Jar: jar}, nil
}

// SeedCookies stores cookies in the client jar for origin.
func SeedCookies(client *http.Client, origin string, cookies []*http.Cookie) error {
	if client.Jar == nil || len(cookies) == 0 {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil {
		return err
	}

	client.Jar.SetCookies(u, cookies)

	return nil
}

// ParseCookieHeader parses a "name=value; name2=value2" header string.
func ParseCookieHeader(header string) []*http.Cookie {
	if header == "" {
		return nil
	}

	req := &http.Request{Header: http.Header{"Cookie": {header}}}

	return req.Cookies()
}
