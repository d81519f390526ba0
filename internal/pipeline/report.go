// File: internal/pipeline/report.go
// Brief: Human-friendly progress report rendering.

package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	glyphCompleted  = color.New(color.FgGreen).Sprint("✔")
	glyphFailed     = color.New(color.FgRed).Sprint("✘")
	glyphInProgress = color.New(color.FgCyan).Sprint("▶")
	glyphPending    = color.New(color.FgHiBlack).Sprint("•")
)

func statusGlyph(status string) string {
	switch status {
	case StatusCompleted:
		return glyphCompleted
	case StatusFailed:
		return glyphFailed
	case StatusInProgress:
		return glyphInProgress
	case StatusPending:
		return glyphPending
	default:
		return "?"
	}
}

// Report renders the summary plus one line per stage in declared order.
// Purely presentational: no state is mutated and no persistence
// happens.
func (o *Orchestrator) Report(w io.Writer) {
	s := o.Summary()
	fmt.Fprintf(w, "Progress: %.1f%% (%d/%d stages)\n", s.Percent, s.Completed, s.Total)
	if s.TimeSpent > 0 {
		fmt.Fprintf(w, "Time spent: %.1f minutes\n", s.TimeSpent.Minutes())
	}
	if len(s.FailedStages) > 0 {
		fmt.Fprintf(w, "Failed stages: %s\n", strings.Join(s.FailedStages, ", "))
	}
	if s.NextStage != "" {
		fmt.Fprintf(w, "Next stage: %s\n", s.NextStage)
	}
	if stale := StaleStages(o.snap, o.graph, o.store.LiveChecksum()); len(stale) > 0 {
		fmt.Fprintf(w, "%s configuration changed since these stages ran: %s\n",
			color.YellowString("Warning:"), strings.Join(stale, ", "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	for _, name := range o.graph.Names() {
		st := o.snap.Stages[name]
		def, _ := o.graph.Definition(name)
		duration := ""
		if d, ok := st.Duration(); ok {
			duration = fmt.Sprintf("%.1fs", d.Seconds())
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\n", statusGlyph(st.Status), st.StageID, def.Description, duration)
		if st.ErrorMessage != "" {
			fmt.Fprintf(tw, "\t\t  error: %s\t\n", st.ErrorMessage)
		}
		if st.Status == StatusPending || st.Status == StatusFailed {
			var unmet []string
			for _, dep := range def.Dependencies {
				if o.IsCompleted(dep) {
					continue
				}
				if d, ok := o.graph.Definition(dep); ok {
					unmet = append(unmet, d.ID)
				}
			}
			if len(unmet) > 0 {
				fmt.Fprintf(tw, "\t\t  depends on: %s\t\n", strings.Join(unmet, ", "))
			}
		}
	}
}

// PrintPlanTable writes the stage table with informational dependency
// waves.
func PrintPlanTable(w io.Writer, g *Graph) error {
	waveOf, err := g.WaveOf()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ORDER\tWAVE\tID\tSTAGE\tNEEDS")
	for i, name := range g.Names() {
		def, _ := g.Definition(name)
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", i+1, waveOf[name], def.ID, name, strings.Join(def.Dependencies, ","))
	}
	return nil
}
