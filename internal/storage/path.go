// Package storage removes uploaded request media from object storage.
package storage

import (
	"net/url"
	"strings"
)

// Object names one stored file. Bucket is empty when the url does not
// carry one.
type Object struct {
	Bucket string
	Path   string
}

// ObjectFromURL derives the storage object behind a media url. Supported
// shapes are gs://bucket/path, https://storage.googleapis.com/bucket/path,
// https://bucket.storage.googleapis.com/path,
// https://firebasestorage.googleapis.com/v0/b/bucket/o/escaped-path and
// https://bucket.s3[.region].amazonaws.com/path. Anything else is taken as
// the object path itself.
func ObjectFromURL(raw string) Object {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "gs://"); ok {
		bucket, path, _ := strings.Cut(rest, "/")
		return Object{Bucket: bucket, Path: path}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return Object{Path: raw}
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case host == "storage.googleapis.com":
		bucket, object, ok := strings.Cut(path, "/")
		if ok && object != "" {
			return Object{Bucket: bucket, Path: object}
		}

	case host == "firebasestorage.googleapis.com":
		// /v0/b/<bucket>/o/<url-escaped object>
		escaped := strings.TrimPrefix(u.EscapedPath(), "/")
		parts := strings.SplitN(escaped, "/", 5)
		if len(parts) == 5 && parts[1] == "b" && parts[3] == "o" {
			object, err := url.PathUnescape(parts[4])
			if err == nil && object != "" {
				return Object{Bucket: parts[2], Path: object}
			}
		}

	case strings.HasSuffix(host, ".storage.googleapis.com"):
		if path != "" {
			return Object{Bucket: strings.TrimSuffix(host, ".storage.googleapis.com"), Path: path}
		}

	case strings.HasSuffix(host, ".amazonaws.com") && strings.Contains(host, ".s3"):
		bucket, _, _ := strings.Cut(host, ".s3")
		if path != "" {
			return Object{Bucket: bucket, Path: path}
		}
	}

	return Object{Path: raw}
}
