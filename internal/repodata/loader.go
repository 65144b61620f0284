package repodata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xxxsen/repoinsight/internal/vectorstore"
)

// Loader is the external data-acquisition collaborator: it hands back the
// serialized document payload of a repository. Cloning and commit/issue
// extraction live behind this boundary and are out of scope here.
type Loader interface {
	Load(ctx context.Context, repoURL string) (string, error)
}

// DirLoader serves payloads prepared on disk by the acquisition pipeline:
// one <data_dir>/<repo_name>/repository_data.json per repository.
type DirLoader struct {
	dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

func (l *DirLoader) Load(ctx context.Context, repoURL string) (string, error) {
	name := vectorstore.DeriveCollectionKey(repoURL)
	path := filepath.Join(l.dir, name, "repository_data.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read repository payload %s: %w", path, err)
	}
	return string(data), nil
}
