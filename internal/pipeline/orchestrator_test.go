package pipeline

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	g := testGraph(t)
	return NewOrchestrator(g, testStore(t, g, "sha256:abc"), zap.NewNop())
}

func TestResumePoint_DeclaredOrder(t *testing.T) {
	o := testOrchestrator(t)

	got, ok := o.ResumePoint()
	if !ok || got != "alpha" {
		t.Fatalf("resume=%q ok=%v", got, ok)
	}

	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Complete("alpha", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, ok = o.ResumePoint()
	if !ok || got != "beta" {
		t.Fatalf("resume=%q ok=%v", got, ok)
	}
}

func TestResumePoint_AllCompleted(t *testing.T) {
	o := testOrchestrator(t)
	for _, name := range o.Graph().Names() {
		if err := o.Start(name); err != nil {
			t.Fatalf("start %s: %v", name, err)
		}
		if err := o.Complete(name, nil); err != nil {
			t.Fatalf("complete %s: %v", name, err)
		}
	}
	if got, ok := o.ResumePoint(); ok {
		t.Fatalf("resume=%q, want none", got)
	}
}

func TestFail_RecordsErrorAndStaysEligible(t *testing.T) {
	o := testOrchestrator(t)
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Fail("alpha", "boom", map[string]any{"exit": "1"}); err != nil {
		t.Fatalf("fail: %v", err)
	}
	st, _ := o.StageStatus("alpha")
	if st.Status != StatusFailed || st.ErrorMessage != "boom" {
		t.Fatalf("stage=%+v", st)
	}
	if st.EndTime == nil {
		t.Fatalf("missing end time")
	}
	if got, _ := o.ResumePoint(); got != "alpha" {
		t.Fatalf("resume=%q, failed stages must stay eligible", got)
	}
}

func TestTransitions_UnknownStage(t *testing.T) {
	o := testOrchestrator(t)
	if err := o.Start("nope"); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
	if err := o.Complete("nope", nil); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
	if err := o.Fail("nope", "x", nil); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
	if err := o.ResetFrom("nope"); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
	// Known stages stay untouched.
	for _, name := range o.Graph().Names() {
		st, _ := o.StageStatus(name)
		if st.Status != StatusPending {
			t.Fatalf("stage %s corrupted: %s", name, st.Status)
		}
	}
}

func TestDetails_MergedNotReplaced(t *testing.T) {
	o := testOrchestrator(t)
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Complete("alpha", map[string]any{"first": "1"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := o.Complete("alpha", map[string]any{"second": "2"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	st, _ := o.StageStatus("alpha")
	if st.Details["first"] != "1" || st.Details["second"] != "2" {
		t.Fatalf("details=%v", st.Details)
	}
}

func TestStartClearsPreviousFailure(t *testing.T) {
	o := testOrchestrator(t)
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Fail("alpha", "boom", nil); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	st, _ := o.StageStatus("alpha")
	if st.Status != StatusInProgress || st.ErrorMessage != "" || st.EndTime != nil {
		t.Fatalf("stage=%+v", st)
	}
	if st.StartTime == nil {
		t.Fatalf("missing start time")
	}
}

func TestResetFrom_ClearsLaterStagesOnly(t *testing.T) {
	o := testOrchestrator(t)
	for _, name := range []string{"alpha", "beta"} {
		if err := o.Start(name); err != nil {
			t.Fatalf("start %s: %v", name, err)
		}
		if err := o.Complete(name, map[string]any{"k": "v"}); err != nil {
			t.Fatalf("complete %s: %v", name, err)
		}
	}
	if err := o.ResetFrom("beta"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	alpha, _ := o.StageStatus("alpha")
	if alpha.Status != StatusCompleted {
		t.Fatalf("alpha=%s, must stay completed", alpha.Status)
	}
	for _, name := range []string{"beta", "gamma"} {
		st, _ := o.StageStatus(name)
		if st.Status != StatusPending || st.StartTime != nil || st.EndTime != nil ||
			st.ErrorMessage != "" || len(st.Details) != 0 {
			t.Fatalf("%s=%+v", name, st)
		}
	}
}

func TestTransitionsPersistAcrossRestart(t *testing.T) {
	g := testGraph(t)
	store := testStore(t, g, "sha256:abc")
	o := NewOrchestrator(g, store, zap.NewNop())
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Complete("alpha", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := o.Start("beta"); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Simulate a crash mid-stage: a second orchestrator over the same
	// path sees completed alpha and an in_progress beta with a start
	// time but no end time.
	o2 := NewOrchestrator(g, NewStore(store.Path(), g, "sha256:abc", zap.NewNop()), zap.NewNop())
	beta, _ := o2.StageStatus("beta")
	if beta.Status != StatusInProgress || beta.StartTime == nil || beta.EndTime != nil {
		t.Fatalf("beta=%+v", beta)
	}
	if got, _ := o2.ResumePoint(); got != "beta" {
		t.Fatalf("resume=%q", got)
	}
}

func TestSummary(t *testing.T) {
	o := testOrchestrator(t)
	base := time.Unix(1000, 0)
	tick := 0
	o.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 2 * time.Second)
	}

	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Complete("alpha", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := o.Start("beta"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Fail("beta", "boom", nil); err != nil {
		t.Fatalf("fail: %v", err)
	}

	s := o.Summary()
	if s.Total != 3 || s.Completed != 1 || s.Failed != 1 || s.Pending != 1 {
		t.Fatalf("summary=%+v", s)
	}
	if s.TimeSpent != 4*time.Second {
		t.Fatalf("timeSpent=%s", s.TimeSpent)
	}
	if len(s.FailedStages) != 1 || s.FailedStages[0] != "beta" {
		t.Fatalf("failedStages=%v", s.FailedStages)
	}
	if s.NextStage != "beta" {
		t.Fatalf("next=%q", s.NextStage)
	}
}

func TestShouldSkip(t *testing.T) {
	o := testOrchestrator(t)
	if o.ShouldSkip("alpha", false) {
		t.Fatalf("pending stage must not be skipped")
	}
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Complete("alpha", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !o.ShouldSkip("alpha", false) {
		t.Fatalf("completed stage must be skipped")
	}
	if o.ShouldSkip("alpha", true) {
		t.Fatalf("force must override skip")
	}
}

func TestReport_AlwaysProducible(t *testing.T) {
	o := testOrchestrator(t)
	if err := o.Start("alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Fail("alpha", "boom", nil); err != nil {
		t.Fatalf("fail: %v", err)
	}

	var b strings.Builder
	o.Report(&b)
	out := b.String()
	for _, want := range []string{"ALP-001", "boom", "Failed stages: alpha", "depends on: ALP-001"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
