package feedback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
)

// Archive is a content-addressed object store for long-term learning data.
// Objects are sharded by the first two hash characters; identical records
// deduplicate naturally.
type Archive struct {
	basePath string
}

// NewArchive creates the archive layout under basePath.
func NewArchive(basePath string) (*Archive, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, ".askroute", "archive")
	}
	if err := os.MkdirAll(filepath.Join(basePath, "objects"), 0755); err != nil {
		return nil, err
	}
	return &Archive{basePath: basePath}, nil
}

// Put stores a JSON object by its SHA-256 content hash and returns the hash.
func (a *Archive) Put(obj any) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(a.basePath, "objects", hash[:2])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, hash+".json")
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return hash, nil
}

// Record implements Recorder by archiving the record object.
func (a *Archive) Record(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.Put(rec)
	return err
}
