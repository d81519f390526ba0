// File: internal/pipeline/orchestrator.go
// Brief: Stage transitions, resume-point computation, and summaries.

package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Orchestrator drives stage transitions over a graph and persists every
// transition through the store. It holds the only in-memory copy of the
// snapshot; the store is read once at construction and rewritten after
// each transition.
type Orchestrator struct {
	graph  *Graph
	store  *Store
	snap   *Snapshot
	logger *zap.Logger
	now    func() time.Time
}

func NewOrchestrator(graph *Graph, store *Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		graph:  graph,
		store:  store,
		snap:   store.Load(),
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot exposes the live snapshot for reporting. Callers must not
// mutate it.
func (o *Orchestrator) Snapshot() *Snapshot { return o.snap }

func (o *Orchestrator) Graph() *Graph { return o.graph }

// StageStatus returns the tracked status for a stage name.
func (o *Orchestrator) StageStatus(name string) (*StageStatus, bool) {
	st, ok := o.snap.Stages[name]
	return st, ok
}

// IsCompleted reports whether a stage has completed.
func (o *Orchestrator) IsCompleted(name string) bool {
	st, ok := o.snap.Stages[name]
	return ok && st.Status == StatusCompleted
}

// ShouldSkip reports whether a stage can be skipped on this run.
func (o *Orchestrator) ShouldSkip(name string, force bool) bool {
	if force {
		return false
	}
	return o.IsCompleted(name)
}

// ResumePoint returns the first stage in declared order that is not
// completed, or false when every stage is done. Dependency edges are
// not consulted.
func (o *Orchestrator) ResumePoint() (string, bool) {
	for _, name := range o.graph.Names() {
		if st := o.snap.Stages[name]; st != nil && st.Status != StatusCompleted {
			return name, true
		}
	}
	return "", false
}

// Start marks a stage in_progress and persists. The previous end time
// and error are cleared so a re-run of a failed stage starts clean.
func (o *Orchestrator) Start(name string) error {
	st, err := o.stage(name)
	if err != nil {
		return err
	}
	nowSec := o.unixNow()
	st.Status = StatusInProgress
	st.StartTime = &nowSec
	st.EndTime = nil
	st.ErrorMessage = ""
	st.Checksum = o.store.LiveChecksum()
	o.store.Save(o.snap)
	o.logger.Info("stage started", zap.String("stage", name), zap.String("id", st.StageID))
	return nil
}

// Complete marks a stage completed, merging details into the existing
// map, and persists.
func (o *Orchestrator) Complete(name string, details map[string]any) error {
	st, err := o.stage(name)
	if err != nil {
		return err
	}
	nowSec := o.unixNow()
	st.Status = StatusCompleted
	st.EndTime = &nowSec
	mergeDetails(st, details)
	o.store.Save(o.snap)
	o.logger.Info("stage completed", zap.String("stage", name), zap.String("id", st.StageID))
	return nil
}

// Fail marks a stage failed with the given error message and persists.
func (o *Orchestrator) Fail(name string, errorMessage string, details map[string]any) error {
	st, err := o.stage(name)
	if err != nil {
		return err
	}
	nowSec := o.unixNow()
	st.Status = StatusFailed
	st.EndTime = &nowSec
	st.ErrorMessage = errorMessage
	mergeDetails(st, details)
	o.store.Save(o.snap)
	o.logger.Warn("stage failed", zap.String("stage", name), zap.String("error", errorMessage))
	return nil
}

// ResetFrom forces the named stage and every stage after it in declared
// order back to pending, clearing timestamps, errors, and details, then
// persists once.
func (o *Orchestrator) ResetFrom(name string) error {
	if _, ok := o.graph.Definition(name); !ok {
		return fmt.Errorf("unknown stage %q", name)
	}
	found := false
	for _, cur := range o.graph.Names() {
		if cur == name {
			found = true
		}
		if !found {
			continue
		}
		st := o.snap.Stages[cur]
		st.Status = StatusPending
		st.StartTime = nil
		st.EndTime = nil
		st.ErrorMessage = ""
		st.Details = map[string]any{}
	}
	o.store.Save(o.snap)
	o.logger.Info("stages reset", zap.String("from", name))
	return nil
}

// Summary aggregates the snapshot for reporting.
type Summary struct {
	Total        int
	Completed    int
	Failed       int
	InProgress   int
	Pending      int
	Percent      float64
	TimeSpent    time.Duration
	FailedStages []string
	NextStage    string
}

// Summary computes aggregate counts, cumulative elapsed time across
// stages with both timestamps, and the failed stage names.
func (o *Orchestrator) Summary() Summary {
	s := Summary{Total: o.graph.Len()}
	for _, name := range o.graph.Names() {
		st := o.snap.Stages[name]
		switch st.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
			s.FailedStages = append(s.FailedStages, name)
		case StatusInProgress:
			s.InProgress++
		}
		if d, ok := st.Duration(); ok {
			s.TimeSpent += d
		}
	}
	s.Pending = s.Total - s.Completed - s.Failed - s.InProgress
	if s.Total > 0 {
		s.Percent = float64(s.Completed) / float64(s.Total) * 100
	}
	for _, name := range o.graph.Names() {
		st := o.snap.Stages[name]
		if st.Status == StatusPending || st.Status == StatusFailed {
			s.NextStage = name
			break
		}
	}
	return s
}

func (o *Orchestrator) stage(name string) (*StageStatus, error) {
	st, ok := o.snap.Stages[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", name)
	}
	return st, nil
}

func (o *Orchestrator) unixNow() float64 {
	return float64(o.now().UnixNano()) / float64(time.Second)
}

func mergeDetails(st *StageStatus, details map[string]any) {
	if st.Details == nil {
		st.Details = map[string]any{}
	}
	for k, v := range details {
		st.Details[k] = v
	}
}
