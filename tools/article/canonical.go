package article

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// click-tracker params stripped before fetching; everything else is kept.
var trackerParams = map[string]struct{}{
	"gclid":   {},
	"dclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"igshid":  {},
}

// CanonicalURL normalises a URL before it is fetched: defaults the scheme to
// https, lowercases scheme and host, drops default ports, fragments and
// tracking parameters, and cleans the path. Feed links and LLM-produced args
// arrive in all of these shapes.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "//") {
		raw = "https://" + raw
	} else if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.New("url has no host")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("only http and https urls are supported")
	}
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	if u.Path != "" {
		trailing := strings.HasSuffix(u.Path, "/") && u.Path != "/"
		u.Path = path.Clean(u.Path)
		if trailing {
			u.Path += "/"
		}
	}

	q := u.Query()
	for key := range q {
		if _, tracker := trackerParams[strings.ToLower(key)]; tracker || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String(), nil
}
