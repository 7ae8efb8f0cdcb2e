// Package fileid derives stable identifiers for ingested sources, so re-ingesting a file
// addresses the same parent documents.
package fileid

import (
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// namespace scopes name-based UUIDs to kotae sources.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://hyperjump.tech/kotae/source"))

// SourceKey returns the cleaned absolute form of path. Relative paths resolve against the
// working directory; resolution errors fall back to the cleaned input.
func SourceKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ParentID returns the id of the index-th parent split from source.
// Same source and index always yield the same UUID.
func ParentID(source string, index int) string {
	name := filepath.Clean(source) + "#" + strconv.Itoa(index)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// NewParentID returns a random id for parents that have no source path.
func NewParentID() string {
	return uuid.New().String()
}

// ChunkID returns the id of the index-th child chunk of parentID.
func ChunkID(parentID string, index int) string {
	return parentID + "_" + strconv.Itoa(index)
}
