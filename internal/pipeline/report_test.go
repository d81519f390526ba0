package pipeline

import (
	"strings"
	"testing"
)

func TestPrintPlanTable(t *testing.T) {
	var b strings.Builder
	if err := PrintPlanTable(&b, DefaultGraph()); err != nil {
		t.Fatalf("plan: %v", err)
	}
	out := b.String()
	for _, want := range []string{"ORDER", "VAL-001", "FIN-015", "build_verification"} {
		if !strings.Contains(out, want) {
			t.Fatalf("plan missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "validation") > strings.Index(out, "final_validation") {
		t.Fatalf("declared order not preserved:\n%s", out)
	}
}

func TestStatusGlyph_UnknownStatus(t *testing.T) {
	if statusGlyph("???") != "?" {
		t.Fatalf("unexpected glyph")
	}
}
