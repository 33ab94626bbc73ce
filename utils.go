package works

import (
	"net/url"
	"strings"
)

func (t WorkType) String() string {
	switch t {
	case WorkTypeURL:
		return "URL"
	case WorkTypeFile:
		return "FILE"
	default:
		return "Unknown"
	}
}

func (t ActivityType) String() string {
	switch t {
	case ActivityTypeNew:
		return "NEW"
	case ActivityTypeUpdate:
		return "UPDATE"
	default:
		return "Unknown"
	}
}

// HasFiles reports whether the form must be sent as multipart.
func (f WorkForm) HasFiles() bool {
	return f.Thumbnail != nil || f.Content != nil
}

// JoinURL appends path to base, keeping any path prefix base already has.
func JoinURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return u.String(), nil
}
