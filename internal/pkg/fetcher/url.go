package fetcher

import "net/url"

// origin returns scheme://host of target, or "" when it cannot be parsed.
func origin(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
