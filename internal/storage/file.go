package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	logx "rebootplan/pkg/logx"

	"rebootplan/internal/task"
)

// fileStore is a dependency-free persistence backend.
//
// Files (derived from the configured path):
//   - <prefix>.tasks.json (full task collection, replaced on every save)
//   - <prefix>.counter    (next id as a decimal string)
//
// Both writes go through a tmp file + rename so a crash mid-save leaves the
// previous snapshot intact.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	tasksPath   string
	counterPath string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{
		log:         log,
		tasksPath:   prefix + ".tasks.json",
		counterPath: prefix + ".counter",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load(ctx context.Context) (State, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{NextID: 1}

	b, err := os.ReadFile(s.tasksPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run.
	case err != nil:
		return st, err
	default:
		var recs []taskRecord
		if jerr := json.Unmarshal(b, &recs); jerr != nil {
			// Malformed snapshot: start empty rather than refuse to start.
			s.log.Warn("tasks snapshot unreadable, starting empty",
				logx.String("path", s.tasksPath), logx.Err(jerr))
		} else {
			st.Tasks = make([]task.RebootTask, 0, len(recs))
			for _, r := range recs {
				st.Tasks = append(st.Tasks, migrateRecord(r))
			}
		}
	}

	cb, err := os.ReadFile(s.counterPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Keep default.
	case err != nil:
		return st, err
	default:
		n, perr := strconv.ParseInt(strings.TrimSpace(string(cb)), 10, 64)
		if perr != nil || n < 1 {
			s.log.Warn("counter entry unreadable, defaulting to 1",
				logx.String("path", s.counterPath), logx.Err(perr))
		} else {
			st.NextID = n
		}
	}

	return st, nil
}

func (s *fileStore) Save(ctx context.Context, st State) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]taskRecord, 0, len(st.Tasks))
	for _, t := range st.Tasks {
		recs = append(recs, toRecord(t))
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.tasksPath, b); err != nil {
		return err
	}
	return writeAtomic(s.counterPath, []byte(strconv.FormatInt(st.NextID, 10)))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
