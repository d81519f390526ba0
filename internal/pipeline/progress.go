// File: internal/pipeline/progress.go
// Brief: Durable per-stage progress snapshot with forgiving recovery.

package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const snapshotFormatVersion = "devup.dev/progress/v1"

// Stage status values. A stage is eligible to run while pending or
// failed; completed stages are skipped unless the run is forced.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StageStatus is the persisted state of one stage. Times are unix
// seconds; nil means the boundary has not been reached yet. A process
// killed mid-stage leaves in_progress with a start time and no end
// time, which the next run can detect.
type StageStatus struct {
	Name         string         `json:"name"`
	StageID      string         `json:"stageId"`
	Status       string         `json:"status"`
	Checksum     string         `json:"checksum,omitempty"`
	StartTime    *float64       `json:"startTime"`
	EndTime      *float64       `json:"endTime"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Details      map[string]any `json:"details"`
}

// Duration reports the stage's elapsed time, valid only when both
// timestamps are set.
func (s *StageStatus) Duration() (time.Duration, bool) {
	if s.StartTime == nil || s.EndTime == nil {
		return 0, false
	}
	return time.Duration((*s.EndTime - *s.StartTime) * float64(time.Second)), true
}

// Snapshot is the full persisted progress document. The stage map's key
// set always equals the definition table's name set after a load or
// initialization.
type Snapshot struct {
	LastUpdated      float64                 `json:"lastUpdated"`
	FormatVersion    string                  `json:"formatVersion"`
	SessionID        string                  `json:"sessionId"`
	ConfigChecksum   string                  `json:"configChecksum"`
	TotalStages      int                     `json:"totalStages"`
	CompletedStages  int                     `json:"completedStages"`
	StageDefinitions []StageDefinition       `json:"stageDefinitions"`
	Stages           map[string]*StageStatus `json:"stages"`
}

// Store persists progress snapshots for one workspace. Persistence is
// best-effort: load falls back to a fresh snapshot and save logs and
// swallows write failures, so the in-memory state stays authoritative.
type Store struct {
	path      string
	graph     *Graph
	liveSum   string
	sessionID string
	logger    *zap.Logger
	now       func() time.Time
}

// NewStore creates a store backed by the given file path. liveChecksum
// is the checksum of the tracked configuration subset at process start;
// fresh stage entries are stamped with it.
func NewStore(path string, graph *Graph, liveChecksum string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:      path,
		graph:     graph,
		liveSum:   liveChecksum,
		sessionID: uuid.NewString()[:8],
		logger:    logger,
		now:       time.Now,
	}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// LiveChecksum returns the checksum the store was opened with.
func (s *Store) LiveChecksum() string { return s.liveSum }

// Load reads the snapshot from disk. A missing or malformed file yields
// a fresh all-pending snapshot instead of an error. After loading, the
// stage map is reconciled against the definition table: orphaned
// entries are dropped and missing ones synthesized as pending.
func (s *Store) Load() *Snapshot {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read progress file, starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return s.fresh()
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.Warn("could not parse progress file, starting fresh",
			zap.String("path", s.path), zap.Error(err))
		return s.fresh()
	}
	if snap.Stages == nil {
		snap.Stages = map[string]*StageStatus{}
	}
	for name := range snap.Stages {
		if _, known := s.graph.Definition(name); !known {
			delete(snap.Stages, name)
		}
	}
	for _, name := range s.graph.Names() {
		if st := snap.Stages[name]; st != nil {
			if st.Details == nil {
				st.Details = map[string]any{}
			}
			continue
		}
		def, _ := s.graph.Definition(name)
		snap.Stages[name] = &StageStatus{
			Name:     name,
			StageID:  def.ID,
			Status:   StatusPending,
			Checksum: s.liveSum,
			Details:  map[string]any{},
		}
	}
	snap.FormatVersion = snapshotFormatVersion
	snap.StageDefinitions = s.graph.Definitions()
	if snap.SessionID == "" {
		snap.SessionID = s.sessionID
	}
	return &snap
}

func (s *Store) fresh() *Snapshot {
	stages := map[string]*StageStatus{}
	for _, def := range s.graph.Definitions() {
		stages[def.Name] = &StageStatus{
			Name:     def.Name,
			StageID:  def.ID,
			Status:   StatusPending,
			Checksum: s.liveSum,
			Details:  map[string]any{},
		}
	}
	return &Snapshot{
		FormatVersion:    snapshotFormatVersion,
		SessionID:        s.sessionID,
		ConfigChecksum:   s.liveSum,
		TotalStages:      s.graph.Len(),
		StageDefinitions: s.graph.Definitions(),
		Stages:           stages,
	}
}

// Save recomputes the aggregates and writes the snapshot atomically.
// Failures are logged, never propagated.
func (s *Store) Save(snap *Snapshot) {
	snap.LastUpdated = float64(s.now().UnixNano()) / float64(time.Second)
	snap.ConfigChecksum = s.liveSum
	snap.TotalStages = s.graph.Len()
	completed := 0
	for _, st := range snap.Stages {
		if st.Status == StatusCompleted {
			completed++
		}
	}
	snap.CompletedStages = completed
	if err := writeJSONAtomic(s.path, snap); err != nil {
		s.logger.Warn("could not save progress", zap.String("path", s.path), zap.Error(err))
	}
}

// Remove deletes the backing file, for a completed-and-cleaned-up run.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
