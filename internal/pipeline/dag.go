// File: internal/pipeline/dag.go
// Brief: Dependency-graph validation and informational wave grouping.

package pipeline

import (
	"fmt"
	"sort"
)

// Validate checks that every declared dependency exists and that the
// dependency edges form a DAG. Execution never consults the edges, but
// a cyclic or dangling table is a programming error worth failing fast
// on.
func (g *Graph) Validate() error {
	for _, name := range g.order {
		for _, dep := range g.byName[name].Dependencies {
			if _, ok := g.byName[dep]; !ok {
				return fmt.Errorf("stage %s depends on missing stage %q", name, dep)
			}
			if dep == name {
				return fmt.Errorf("stage %s depends on itself", name)
			}
		}
	}
	_, err := g.Waves()
	return err
}

// Waves groups stages into topological waves: every stage in wave N has
// all of its dependencies in earlier waves. Purely informational; shown
// by "devup plan" next to the declared order.
func (g *Graph) Waves() ([][]string, error) {
	inDegree := map[string]int{}
	dependents := map[string][]string{}
	for _, name := range g.order {
		inDegree[name] = 0
	}
	for _, name := range g.order {
		for _, dep := range g.byName[name].Dependencies {
			if _, ok := g.byName[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on missing stage %q", name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}
	for k := range dependents {
		sort.Strings(dependents[k])
	}

	var ready []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	var waves [][]string
	assigned := 0
	for len(ready) > 0 {
		wave := append([]string(nil), ready...)
		ready = ready[:0]
		waves = append(waves, wave)
		assigned += len(wave)
		for _, name := range wave {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					ready = append(ready, dep)
				}
			}
		}
		sort.Strings(ready)
	}
	if assigned != len(g.order) {
		var stuck []string
		for _, name := range g.order {
			if inDegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		if cycle := g.findCyclePath(stuck); len(cycle) > 0 {
			return nil, fmt.Errorf("dependency cycle detected: %v", cycleWithIDs(cycle, g.byName))
		}
		return nil, fmt.Errorf("dependency cycle detected (%d stages): %v", len(stuck), stuck)
	}
	return waves, nil
}

// WaveOf returns the zero-based wave index per stage name.
func (g *Graph) WaveOf() (map[string]int, error) {
	waves, err := g.Waves()
	if err != nil {
		return nil, err
	}
	out := map[string]int{}
	for i, wave := range waves {
		for _, name := range wave {
			out[name] = i
		}
	}
	return out, nil
}

// findCyclePath runs a DFS over the stuck stages to extract one
// concrete cycle for the error message.
func (g *Graph) findCyclePath(stuck []string) []string {
	stuckSet := map[string]struct{}{}
	for _, name := range stuck {
		stuckSet[name] = struct{}{}
	}
	vis := map[string]bool{}
	onStack := map[string]bool{}
	var stack []string
	var cycle []string
	var dfs func(string) bool
	dfs = func(name string) bool {
		if _, ok := stuckSet[name]; !ok {
			return false
		}
		vis[name] = true
		onStack[name] = true
		stack = append(stack, name)
		for _, dep := range g.byName[name].Dependencies {
			if _, ok := stuckSet[dep]; !ok {
				continue
			}
			if !vis[dep] {
				if dfs(dep) {
					return true
				}
				continue
			}
			if onStack[dep] {
				idx := -1
				for i := range stack {
					if stack[i] == dep {
						idx = i
						break
					}
				}
				if idx >= 0 {
					cycle = append([]string(nil), stack[idx:]...)
				} else {
					cycle = []string{dep, name}
				}
				return true
			}
		}
		onStack[name] = false
		stack = stack[:len(stack)-1]
		return false
	}
	for _, name := range stuck {
		if vis[name] {
			continue
		}
		if dfs(name) {
			break
		}
	}
	return cycle
}

func cycleWithIDs(cycle []string, byName map[string]StageDefinition) []string {
	parts := make([]string, 0, len(cycle)+1)
	for _, name := range cycle {
		if d, ok := byName[name]; ok && d.ID != "" {
			parts = append(parts, fmt.Sprintf("%s(%s)", name, d.ID))
		} else {
			parts = append(parts, name)
		}
	}
	if len(parts) > 0 {
		parts = append(parts, parts[0])
	}
	return parts
}
