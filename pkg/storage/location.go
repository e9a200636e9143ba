// Package storage stages binary containers between their configured location
// and a local working path. The loader only ever sees local files.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

const (
	s3Scheme   = "s3://"
	fileScheme = "file://"
)

// Location identifies where a container lives
type Location struct {
	// Bucket and Key are set for s3:// locations
	Bucket string
	Key    string
	// Path is set for local locations
	Path string
}

// ParseLocation parses s3://bucket/key, file:///path or a plain local path
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Location{}, errors.New(errors.ErrorTypeConfig, "empty location")
	}

	switch {
	case strings.HasPrefix(s, s3Scheme):
		rest := strings.TrimPrefix(s, s3Scheme)
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, errors.New(errors.ErrorTypeConfig, "s3 location needs a bucket and an object key").
				WithDetail("location", s)
		}
		return Location{Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(s, fileScheme):
		path := strings.TrimPrefix(s, fileScheme)
		if path == "" {
			return Location{}, errors.New(errors.ErrorTypeConfig, "file location has no path").
				WithDetail("location", s)
		}
		return Location{Path: filepath.Clean(path)}, nil
	default:
		return Location{Path: filepath.Clean(s)}, nil
	}
}

// IsRemote reports whether the location is an object store
func (l Location) IsRemote() bool {
	return l.Bucket != ""
}

// Base returns the final element of the key or path
func (l Location) Base() string {
	if l.IsRemote() {
		return filepath.Base(l.Key)
	}
	return filepath.Base(l.Path)
}

func (l Location) String() string {
	if l.IsRemote() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}
