package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"stylegen/internal/domain"
)

// FileContextStore keeps ResumableTaskContext records in one JSON file.
type FileContextStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileContextStore(path string, now func() time.Time) (*FileContextStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("tasks: context file path is required")
	}
	if now == nil {
		now = time.Now
	}
	return &FileContextStore{path: path, now: now}, nil
}

// DefaultContextPath returns the per-user context file location.
func DefaultContextPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "stylegen", "tasks.json")
}

// Save records tc, replacing an existing record with the same task id.
func (s *FileContextStore) Save(tc domain.ResumableTaskContext) error {
	if strings.TrimSpace(tc.TaskID) == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrInvalidRequest)
	}
	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	records[tc.TaskID] = tc
	return s.write(records)
}

// Load returns live contexts, oldest first. Expired records are dropped and
// never returned.
func (s *FileContextStore) Load() ([]domain.ResumableTaskContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.ResumableTaskContext, 0, len(records))
	pruned := false
	for id, tc := range records {
		if tc.Expired(now) {
			delete(records, id)
			pruned = true
			continue
		}
		out = append(out, tc)
	}
	if pruned {
		if err := s.write(records); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Remove forgets taskID.
func (s *FileContextStore) Remove(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := records[taskID]; !ok {
		return nil
	}
	delete(records, taskID)
	return s.write(records)
}

func (s *FileContextStore) read() (map[string]domain.ResumableTaskContext, error) {
	records := map[string]domain.ResumableTaskContext{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tasks: read contexts: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return records, nil
	}
	var list []domain.ResumableTaskContext
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("tasks: decode contexts: %w", err)
	}
	for _, tc := range list {
		records[tc.TaskID] = tc
	}
	return records, nil
}

func (s *FileContextStore) write(records map[string]domain.ResumableTaskContext) error {
	list := make([]domain.ResumableTaskContext, 0, len(records))
	for _, tc := range records {
		list = append(list, tc)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("tasks: encode contexts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("tasks: ensure directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("tasks: write contexts: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("tasks: commit contexts: %w", err)
	}
	return nil
}
