package stats

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// File is a raw dataset cached on local storage.
type File struct {
	Dataset    string
	URL        string
	Path       string
	Size       int64
	SHA256     string
	Downloaded time.Time
}

// Fetch makes sure the dataset is available at path. An existing file is
// a cache hit and is returned without network access; downloaded reports
// whether a request was made.
func (f *Fetcher) Fetch(ctx context.Context, dataset, url, path string) (file *File, downloaded bool, err error) {
	if st, err := os.Stat(path); err == nil {
		f.log.WithFields(map[string]interface{}{"dataset": dataset, "path": path}).Debug("dataset cached")
		return &File{Dataset: dataset, URL: url, Path: path, Size: st.Size()}, false, nil
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, false, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	size, err := f.download(ctx, dataset, url, io.MultiWriter(tmp, h))
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close temp file: %w", cerr)
	}
	if err != nil {
		return nil, false, err
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return nil, false, fmt.Errorf("move download into place: %w", err)
	}

	return &File{
		Dataset:    dataset,
		URL:        url,
		Path:       path,
		Size:       size,
		SHA256:     hex.EncodeToString(h.Sum(nil)),
		Downloaded: time.Now().UTC(),
	}, true, nil
}
