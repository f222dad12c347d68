package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// FileStore keeps one plain-text integer file per account in Dir.
type FileStore struct {
	Dir string
	Now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Now: time.Now}
}

// Path returns the checkpoint file for account.
func (s *FileStore) Path(account string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("last_run_%s.txt", account))
}

func (s *FileStore) Get(_ context.Context, account string) (int64, error) {
	data, err := os.ReadFile(s.Path(account))
	if errors.Is(err, fs.ErrNotExist) {
		return StartOfDay(s.now()), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint for %s: %w", account, err)
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt checkpoint file %s: %w", s.Path(account), err)
	}
	return ts, nil
}

func (s *FileStore) Set(_ context.Context, account string, ts int64) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	if err := renameio.WriteFile(s.Path(account), []byte(strconv.FormatInt(ts, 10)), 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint for %s: %w", account, err)
	}
	return nil
}

func (s *FileStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
