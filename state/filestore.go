package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/file"
)

// FileStore persists one JSON document per host identity under a state
// directory. Every Put rewrites the whole document through a temp file, fsync
// and rename, so readers always see either the previous or the new record set,
// never a torn one.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]RunRecord
	nextSeq int
}

type fileStoreDoc struct {
	Host    string      `json:"host"`
	Records []RunRecord `json:"records"`
}

// NewFileStore opens (or creates) the record set for hostID under dir.
// Existing records are loaded so a new process resumes where the last one
// stopped.
func NewFileStore(dir, hostID string) (*FileStore, error) {
	if hostID == "" {
		return nil, fmt.Errorf("host identity cannot be empty")
	}
	if err := file.CreateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	s := &FileStore{
		path:    filepath.Join(dir, sanitizeHostID(hostID)+".json"),
		records: make(map[string]RunRecord),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var doc fileStoreDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	for _, rec := range doc.Records {
		s.records[rec.StepName] = rec
		if rec.Seq >= s.nextSeq {
			s.nextSeq = rec.Seq + 1
		}
	}
	return s, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(stepName string) (RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[stepName]
	return rec, ok, nil
}

func (s *FileStore) Put(rec RunRecord) error {
	if rec.StepName == "" {
		return fmt.Errorf("record has no step name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.StepName]; ok {
		rec.Seq = existing.Seq
	} else {
		rec.Seq = s.nextSeq
		s.nextSeq++
	}

	previous, hadPrevious := s.records[rec.StepName]
	s.records[rec.StepName] = rec

	if err := s.persistLocked(); err != nil {
		// Keep memory and disk consistent on failure.
		if hadPrevious {
			s.records[rec.StepName] = previous
		} else {
			delete(s.records, rec.StepName)
			s.nextSeq--
		}
		return err
	}
	return nil
}

func (s *FileStore) Snapshot() ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *FileStore) persistLocked() error {
	recs := make([]RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	doc := fileStoreDoc{
		Host:    strings.TrimSuffix(filepath.Base(s.path), ".json"),
		Records: recs,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := file.WriteFileAtomic(s.path, data, common.FileMode0644); err != nil {
		return fmt.Errorf("failed to persist state to %s: %w", s.path, err)
	}
	return nil
}

// sanitizeHostID makes a host identity safe to use as a file name.
func sanitizeHostID(hostID string) string {
	replacer := strings.NewReplacer("/", "_", ":", "_", " ", "_")
	return replacer.Replace(hostID)
}
