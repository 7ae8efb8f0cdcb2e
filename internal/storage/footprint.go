package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/config"
)

// sqliteSidecars are the files SQLite keeps next to the database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// Footprint is the on-disk size of each persisted store, in bytes.
type Footprint struct {
	Database int64 `json:"database"`
	Keyword  int64 `json:"keyword_index"`
	Vector   int64 `json:"vector_index"`
}

// Total returns the combined size.
func (f Footprint) Total() int64 {
	return f.Database + f.Keyword + f.Vector
}

// MeasureFootprint sizes the database with its WAL sidecars, the bleve index directory and the
// vector index file. Stores that do not exist yet count as zero.
func MeasureFootprint(cfg config.StorageConfig) (Footprint, error) {
	var (
		f   Footprint
		err error
	)
	if cfg.DatabasePath != "" {
		for _, suffix := range append([]string{""}, sqliteSidecars...) {
			n, err := pathSize(cfg.DatabasePath + suffix)
			if err != nil {
				return Footprint{}, err
			}
			f.Database += n
		}
	}
	if f.Keyword, err = pathSize(cfg.BleveIndexPath); err != nil {
		return Footprint{}, err
	}
	if f.Vector, err = pathSize(cfg.VectorIndexPath); err != nil {
		return Footprint{}, err
	}
	return f, nil
}

func pathSize(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
