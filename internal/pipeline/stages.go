// File: internal/pipeline/stages.go
// Brief: Stage definition table with fixed declared order.

// Package pipeline tracks a fixed sequence of provisioning stages:
// definitions and their dependency graph, durable per-stage progress,
// resume-point computation, and the orchestration of stage transitions.
package pipeline

import (
	"fmt"
)

// StageDefinition describes one trackable unit of provisioning work.
// Dependencies carry stage names and are advisory for execution:
// stages run in declared order, the edges only surface in plans and
// reports.
type StageDefinition struct {
	Name         string   `json:"name"`
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

// Graph is a frozen table of stage definitions keyed by name, with the
// declared order preserved.
type Graph struct {
	order  []string
	byName map[string]StageDefinition
}

// NewGraph builds a graph from definitions in declared order.
func NewGraph(defs []StageDefinition) (*Graph, error) {
	g := &Graph{byName: make(map[string]StageDefinition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("stage definition with empty name")
		}
		if _, dup := g.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate stage definition %q", d.Name)
		}
		g.byName[d.Name] = d
		g.order = append(g.order, d.Name)
	}
	return g, nil
}

// Names returns the declared order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Definitions returns the table in declared order, for embedding in the
// persisted snapshot.
func (g *Graph) Definitions() []StageDefinition {
	out := make([]StageDefinition, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.byName[name])
	}
	return out
}

func (g *Graph) Definition(name string) (StageDefinition, bool) {
	d, ok := g.byName[name]
	return d, ok
}

// DependenciesOf returns the dependency names of a stage, or nil for an
// unknown stage.
func (g *Graph) DependenciesOf(name string) []string {
	d, ok := g.byName[name]
	if !ok {
		return nil
	}
	return append([]string(nil), d.Dependencies...)
}

func (g *Graph) Len() int {
	return len(g.order)
}

// DefaultGraph is the built-in provisioning pipeline. The declared
// order is the execution order; dependencies describe why a stage needs
// its predecessors.
func DefaultGraph() *Graph {
	g, err := NewGraph([]StageDefinition{
		{Name: "validation", ID: "VAL-001", Description: "Environment validation and prerequisite checks"},
		{Name: "prerequisites", ID: "PRE-002", Description: "System prerequisites verification", Dependencies: []string{"validation"}},
		{Name: "homebrew_install", ID: "HBR-003", Description: "Homebrew package manager installation", Dependencies: []string{"prerequisites"}},
		{Name: "java_install", ID: "JDK-004", Description: "Java JDK 17 installation and setup", Dependencies: []string{"homebrew_install"}},
		{Name: "maven_install", ID: "MVN-005", Description: "Apache Maven build tool installation", Dependencies: []string{"java_install"}},
		{Name: "node_install", ID: "NOD-006", Description: "Node.js and npm installation", Dependencies: []string{"homebrew_install"}},
		{Name: "mysql_install", ID: "SQL-007", Description: "MySQL database server installation", Dependencies: []string{"homebrew_install"}},
		{Name: "docker_setup", ID: "DOC-008", Description: "Docker Desktop installation and configuration", Dependencies: []string{"prerequisites"}},
		{Name: "git_github_setup", ID: "GIT-009", Description: "Git configuration and GitHub SSH setup", Dependencies: []string{"prerequisites"}},
		{Name: "jfrog_maven_setup", ID: "JFR-010", Description: "JFrog Artifactory Maven settings configuration", Dependencies: []string{"maven_install"}},
		{Name: "database_setup", ID: "DBS-011", Description: "MySQL database creation and data import", Dependencies: []string{"mysql_install"}},
		{Name: "repository_clone", ID: "REP-012", Description: "Clone product repositories (enterprise + console-ui)", Dependencies: []string{"git_github_setup"}},
		{Name: "intellij_setup", ID: "IDE-013", Description: "IntelliJ IDEA configuration and project setup", Dependencies: []string{"repository_clone", "maven_install"}},
		{Name: "build_verification", ID: "BLD-014", Description: "Maven build and compilation verification", Dependencies: []string{"jfrog_maven_setup", "database_setup"}},
		{Name: "final_validation", ID: "FIN-015", Description: "Final environment validation and health checks", Dependencies: []string{"build_verification", "intellij_setup"}},
	})
	if err != nil {
		panic(err)
	}
	return g
}
