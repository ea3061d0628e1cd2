package curriculum

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Resource paths understood by the loader.
const (
	PathDefinitions = "definitions"
	PathGuideline   = "guideline"
)

// DomainOutlinePath returns the outline path of a domain.
func DomainOutlinePath(domainID string) string {
	return path.Join("domains", domainID, "outline")
}

// TopicOutlinePath returns the outline path of a topic.
func TopicOutlinePath(domainID, topicID string) string {
	return path.Join("domains", domainID, topicID, "outline")
}

// QuizPath returns the quiz path of a topic.
func QuizPath(domainID, topicID string) string {
	return path.Join("domains", domainID, topicID, "quiz")
}

// PageContentPath returns the content path of a page.
func PageContentPath(domainID, topicID, pageID string) string {
	return path.Join("domains", domainID, topicID, pageID, "content")
}

// ResourceStore returns raw JSON resources addressed by hierarchical path.
// Get must return an error wrapping ErrNotFound for absent resources.
type ResourceStore interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// FSStore serves resources from a file tree laid out as <path>.json.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore creates a store over fsys.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// NewDirStore creates a store rooted at a directory on disk.
func NewDirStore(dir string) (*FSStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", dir)
	}
	return NewFSStore(os.DirFS(dir)), nil
}

// guidelineFiles lists the accepted file names for the guideline, in order.
var guidelineFiles = []string{"learning-guideline.json", "guideline.json"}

// Get reads <path>.json from the file tree.
func (s *FSStore) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid resource path %q: %w", p, ErrNotFound)
	}

	candidates := []string{clean + ".json"}
	if clean == PathGuideline {
		candidates = guidelineFiles
	}

	for _, name := range candidates {
		data, err := fs.ReadFile(s.fsys, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
}

// MapStore is an in-memory ResourceStore keyed by path.
type MapStore map[string]string

// Get returns the resource stored under path.
func (m MapStore) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return []byte(v), nil
}
