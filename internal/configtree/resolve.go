// File: internal/configtree/resolve.go
// Brief: Tilde expansion and fixed-point ${path} substitution.

package configtree

import (
	"regexp"
	"sort"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
)

// maxPasses bounds fixed-point substitution so reference cycles
// terminate instead of oscillating forever.
const maxPasses = 10

var refPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Status classifies the outcome of a Resolve call.
type Status string

const (
	// StatusResolved means no ${ tokens remain anywhere in the tree.
	StatusResolved Status = "resolved"
	// StatusPartial means the tree reached a fixed point but still
	// carries references that point nowhere; they are left verbatim.
	StatusPartial Status = "partial"
	// StatusCeiling means substitution was still rewriting strings when
	// the pass ceiling was hit, which indicates a reference cycle or an
	// improbably deep chain.
	StatusCeiling Status = "ceiling"
)

// Result is the outcome of resolving a configuration tree. Root is
// always usable, whatever the status; unresolved references stay in
// place as literal text.
type Result struct {
	Root       cty.Value
	Status     Status
	Unresolved []string
	Passes     int
}

// Resolver expands home-relative paths and ${dotted.path} references in
// a configuration tree. It is stateless across calls and never mutates
// its input; cty values are immutable so already-resolved portions of
// the tree cannot be corrupted by a later pass.
type Resolver struct {
	home   string
	logger *zap.Logger
}

// NewResolver builds a resolver using the current user's home directory
// for tilde expansion. home may be overridden for tests via WithHome.
func NewResolver(logger *zap.Logger) *Resolver {
	home, err := homedir.Dir()
	if err != nil {
		home = ""
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{home: home, logger: logger}
}

// WithHome returns a copy of the resolver that expands ~ to the given
// directory.
func (r *Resolver) WithHome(home string) *Resolver {
	cp := *r
	cp.home = home
	return &cp
}

// Resolve runs the two resolution passes: tilde expansion first, then
// repeated reference substitution until the tree stops changing, no
// tokens remain, or the pass ceiling is reached. Reference paths are
// looked up against the tilde-expanded original root, so expanded paths
// can themselves be referenced by later variables.
func (r *Resolver) Resolve(root cty.Value) Result {
	expanded := r.expandTilde(root)

	cur := expanded
	for pass := 1; pass <= maxPasses; pass++ {
		next := substituteOnce(cur, expanded)
		if !hasUnresolved(next) {
			return Result{Root: next, Status: StatusResolved, Passes: pass}
		}
		if next.RawEquals(cur) {
			left := unresolvedTokens(next)
			r.logger.Warn("configuration references left unresolved",
				zap.Strings("references", left),
				zap.Int("passes", pass))
			return Result{Root: next, Status: StatusPartial, Unresolved: left, Passes: pass}
		}
		cur = next
	}

	left := unresolvedTokens(cur)
	r.logger.Warn("could not resolve all configuration variables; possible reference cycle",
		zap.Strings("references", left),
		zap.Int("passes", maxPasses))
	return Result{Root: cur, Status: StatusCeiling, Unresolved: left, Passes: maxPasses}
}

func (r *Resolver) expandTilde(root cty.Value) cty.Value {
	if r.home == "" {
		return root
	}
	out, _ := cty.Transform(root, func(_ cty.Path, v cty.Value) (cty.Value, error) {
		if v.IsNull() || v.Type() != cty.String {
			return v, nil
		}
		s := v.AsString()
		if s == "~" {
			return cty.StringVal(r.home), nil
		}
		if strings.HasPrefix(s, "~/") {
			return cty.StringVal(r.home + s[1:]), nil
		}
		return v, nil
	})
	return out
}

// substituteOnce rewrites every string scalar in cur, replacing each
// ${path} whose path resolves to a scalar in lookupRoot. Misses keep
// the token verbatim.
func substituteOnce(cur cty.Value, lookupRoot cty.Value) cty.Value {
	out, _ := cty.Transform(cur, func(_ cty.Path, v cty.Value) (cty.Value, error) {
		if v.IsNull() || v.Type() != cty.String {
			return v, nil
		}
		s := v.AsString()
		if !strings.Contains(s, "${") {
			return v, nil
		}
		replaced := refPattern.ReplaceAllStringFunc(s, func(token string) string {
			path := token[2 : len(token)-1]
			if val, ok := LookupString(lookupRoot, path); ok {
				return val
			}
			return token
		})
		if replaced == s {
			return v, nil
		}
		return cty.StringVal(replaced), nil
	})
	return out
}

func hasUnresolved(root cty.Value) bool {
	found := false
	_ = cty.Walk(root, func(_ cty.Path, v cty.Value) (bool, error) {
		if found {
			return false, nil
		}
		if !v.IsNull() && v.Type() == cty.String && strings.Contains(v.AsString(), "${") {
			found = true
			return false, nil
		}
		return true, nil
	})
	return found
}

// unresolvedTokens collects the distinct ${...} tokens still present.
func unresolvedTokens(root cty.Value) []string {
	seen := map[string]struct{}{}
	_ = cty.Walk(root, func(_ cty.Path, v cty.Value) (bool, error) {
		if v.IsNull() || v.Type() != cty.String {
			return true, nil
		}
		for _, tok := range refPattern.FindAllString(v.AsString(), -1) {
			seen[tok] = struct{}{}
		}
		return true, nil
	})
	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
