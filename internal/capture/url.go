package capture

import (
	"fmt"
	"net/url"
)

func withCredentials(raw, user, pass string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("capture: parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("capture: URL %q must be absolute", raw)
	}
	u.User = url.UserPassword(user, pass)
	return u.String(), nil
}
