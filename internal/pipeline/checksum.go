// File: internal/pipeline/checksum.go
// Brief: Config checksum for staleness signaling.

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/example/devup/internal/configtree"
	"github.com/example/devup/internal/version"
)

// trackedSections are the resolved-config subtrees folded into the
// checksum: the parts whose change makes recorded progress suspect.
var trackedSections = []string{"paths", "setup_options", "user", "versions"}

// Checksum digests the tracked configuration subset deterministically:
// each section is flattened to dotted scalar paths, key-sorted, and
// written with NUL separators under a format tag. The result is an
// advisory staleness signal only; nothing in the pipeline invalidates
// progress when it changes.
func Checksum(root cty.Value) string {
	h := sha256.New()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write("devup.config-checksum.v1")
	write("devup=" + version.Version)
	for _, section := range trackedSections {
		write("section=" + section)
		sub, ok := configtree.Lookup(root, section)
		if !ok {
			continue
		}
		flat := configtree.Flatten(sub)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			write(k)
			write(flat[k])
		}
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:12]
}

// StaleStages returns the stages whose recorded checksum differs from
// the live one, in declared order. Pending stages with no recorded
// checksum are not considered stale.
func StaleStages(snap *Snapshot, graph *Graph, live string) []string {
	if live == "" {
		return nil
	}
	var out []string
	for _, name := range graph.Names() {
		st, ok := snap.Stages[name]
		if !ok || st.Checksum == "" {
			continue
		}
		if st.Status != StatusPending && st.Checksum != live {
			out = append(out, name)
		}
	}
	return out
}
