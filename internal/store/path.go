package store

import "strings"

// Join builds a path from alternating collection and document segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Parent returns the collection path a document path lives in.
func Parent(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Base returns the last path segment, the document id for document paths.
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// Group returns the collection name of a document path, e.g. "items" for
// users/u1/collections/c1/items/i1.
func Group(path string) string {
	return Base(Parent(path))
}

// Root returns the first two segments of a path. All documents under one root
// share a change-feed topic.
func Root(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 {
		return path
	}
	return parts[0] + "/" + parts[1]
}

// ValidateDocPath checks that path names a document: an even, non-zero number
// of non-empty segments.
func ValidateDocPath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	parts := strings.Split(path, "/")
	if len(parts)%2 != 0 {
		return ErrInvalidPath
	}
	for _, p := range parts {
		if p == "" {
			return ErrInvalidPath
		}
	}
	return nil
}
