package tablestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 從目錄讀取 <dir>/<name><ext>
type FileStore struct {
	dir string
	ext string
}

// NewFileStore 創建檔案儲存，ext 預設為 .md
func NewFileStore(dir, ext string) *FileStore {
	if ext == "" {
		ext = ".md"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &FileStore{dir: dir, ext: ext}
}

// Kind 儲存類型
func (s *FileStore) Kind() string { return "file" }

// Load 讀取資料表檔案
func (s *FileStore) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid table name %q", name)
	}

	path := filepath.Join(s.dir, name+s.ext)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read table %s: %w", name, err)
	}
	return string(data), nil
}
