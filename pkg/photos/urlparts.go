package photos

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Query parameters that select a rendition of the same photo
var renditionParams = map[string]bool{"size": true, "crop": true}

// Trailing size token such as _800x600 or -400x300
var sizeToken = regexp.MustCompile(`[_-]\d+x\d+$`)

type urlParts struct {
	normalized string
	segments   []string
}

// splitURL breaks a photo URL into the pieces the equivalence rules compare.
// URLs that do not parse are split by hand on '?' and '/'
func splitURL(raw string) urlParts {
	u, err := url.Parse(raw)
	if err != nil {
		return splitManually(raw)
	}

	q := u.Query()
	for p := range renditionParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return urlParts{
		normalized: u.String(),
		segments:   pathSegments(u.Path),
	}
}

func splitManually(raw string) urlParts {
	raw, _, _ = strings.Cut(raw, "#")
	base, query, _ := strings.Cut(raw, "?")

	var kept []string
	if query != "" {
		for _, kv := range strings.Split(query, "&") {
			if kv == "" {
				continue
			}
			key, _, _ := strings.Cut(kv, "=")
			if renditionParams[key] {
				continue
			}
			kept = append(kept, kv)
		}
	}
	sort.Strings(kept)

	normalized := base
	if len(kept) > 0 {
		normalized += "?" + strings.Join(kept, "&")
	}

	path := base
	if _, rest, ok := strings.Cut(base, "://"); ok {
		// drop the host
		if _, p, found := strings.Cut(rest, "/"); found {
			path = p
		} else {
			path = ""
		}
	}

	return urlParts{normalized: normalized, segments: pathSegments(path)}
}

func pathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// filenameStem is the last path segment without extension and size token
func (p urlParts) filenameStem() string {
	if len(p.segments) == 0 {
		return ""
	}
	name := p.segments[len(p.segments)-1]
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return sizeToken.ReplaceAllString(name, "")
}

// pathSuffix is the last two path segments, directory and filename
func (p urlParts) pathSuffix() string {
	if len(p.segments) < 2 {
		return ""
	}
	return strings.Join(p.segments[len(p.segments)-2:], "/")
}
