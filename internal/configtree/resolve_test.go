package configtree

import (
	"testing"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
)

func testResolver(t *testing.T, home string) *Resolver {
	t.Helper()
	return NewResolver(zap.NewNop()).WithHome(home)
}

func mustParse(t *testing.T, doc string) cty.Value {
	t.Helper()
	v, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return v
}

func TestResolve_NoTokensIsNoOp(t *testing.T) {
	root := mustParse(t, `
base_paths:
  workspace_root: /work
versions:
  java: "17"
flags:
  - a
  - b
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusResolved {
		t.Fatalf("status=%s", res.Status)
	}
	if !res.Root.RawEquals(root) {
		t.Fatalf("expected structural no-op, got %#v", res.Root)
	}
}

func TestResolve_SimpleReference(t *testing.T) {
	root := mustParse(t, `
a:
  b: X
c: ${a.b}/y
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusResolved {
		t.Fatalf("status=%s unresolved=%v", res.Status, res.Unresolved)
	}
	got, ok := LookupString(res.Root, "c")
	if !ok || got != "X/y" {
		t.Fatalf("c=%q ok=%v", got, ok)
	}
}

func TestResolve_TildeExpansion(t *testing.T) {
	root := mustParse(t, `
p: ~/work
bare: "~"
other: "~user/x"
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if got, _ := LookupString(res.Root, "p"); got != "/home/dev/work" {
		t.Fatalf("p=%q", got)
	}
	if got, _ := LookupString(res.Root, "bare"); got != "/home/dev" {
		t.Fatalf("bare=%q", got)
	}
	// Named-user form is out of scope and stays untouched.
	if got, _ := LookupString(res.Root, "other"); got != "~user/x" {
		t.Fatalf("other=%q", got)
	}
}

func TestResolve_TildeBeforeReferences(t *testing.T) {
	root := mustParse(t, `
base_paths:
  workspace_root: ~/dev
paths:
  repo: ${base_paths.workspace_root}/repo
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if got, _ := LookupString(res.Root, "paths.repo"); got != "/home/dev/dev/repo" {
		t.Fatalf("repo=%q", got)
	}
}

func TestResolve_ChainedReferences(t *testing.T) {
	root := mustParse(t, `
a: ${b}
b: ${c}
c: Z
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusResolved {
		t.Fatalf("status=%s", res.Status)
	}
	if got, _ := LookupString(res.Root, "a"); got != "Z" {
		t.Fatalf("a=%q", got)
	}
}

func TestResolve_CircularReferencesTerminate(t *testing.T) {
	root := mustParse(t, `
a: ${b}
b: ${a}
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusCeiling {
		t.Fatalf("status=%s, want ceiling", res.Status)
	}
	if res.Passes != 10 {
		t.Fatalf("passes=%d", res.Passes)
	}
	if len(res.Unresolved) == 0 {
		t.Fatalf("expected unresolved tokens")
	}
	got, _ := LookupString(res.Root, "a")
	if got == "" || got[:2] != "${" {
		t.Fatalf("a=%q, want an unresolved token", got)
	}
}

func TestResolve_MissingReferenceLeftVerbatim(t *testing.T) {
	root := mustParse(t, `
a: ${nope.missing}/tail
ok: fine
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusPartial {
		t.Fatalf("status=%s, want partial", res.Status)
	}
	if got, _ := LookupString(res.Root, "a"); got != "${nope.missing}/tail" {
		t.Fatalf("a=%q", got)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != "${nope.missing}" {
		t.Fatalf("unresolved=%v", res.Unresolved)
	}
	// Resolved portions stay intact.
	if got, _ := LookupString(res.Root, "ok"); got != "fine" {
		t.Fatalf("ok=%q", got)
	}
}

func TestResolve_NonScalarTargetLeftVerbatim(t *testing.T) {
	root := mustParse(t, `
a:
  b: X
c: ${a}
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusPartial {
		t.Fatalf("status=%s", res.Status)
	}
	if got, _ := LookupString(res.Root, "c"); got != "${a}" {
		t.Fatalf("c=%q", got)
	}
}

func TestResolve_MultipleReferencesInOneString(t *testing.T) {
	root := mustParse(t, `
base_paths:
  workspace_root: /work
  code_directory: code
paths:
  repo: ${base_paths.workspace_root}/${base_paths.code_directory}/enterprise
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if got, _ := LookupString(res.Root, "paths.repo"); got != "/work/code/enterprise" {
		t.Fatalf("repo=%q", got)
	}
}

func TestResolve_NumericAndBoolReferences(t *testing.T) {
	root := mustParse(t, `
versions:
  java: 17
setup_options:
  verbose: true
msg: java=${versions.java} verbose=${setup_options.verbose}
`)
	res := testResolver(t, "/home/dev").Resolve(root)
	if res.Status != StatusResolved {
		t.Fatalf("status=%s unresolved=%v", res.Status, res.Unresolved)
	}
	if got, _ := LookupString(res.Root, "msg"); got != "java=17 verbose=true" {
		t.Fatalf("msg=%q", got)
	}
}

func TestResolve_IdempotentOnceStable(t *testing.T) {
	root := mustParse(t, `
a:
  b: X
c: ${a.b}
p: ~/work
`)
	r := testResolver(t, "/home/dev")
	first := r.Resolve(root)
	second := r.Resolve(first.Root)
	if second.Status != StatusResolved {
		t.Fatalf("status=%s", second.Status)
	}
	if !second.Root.RawEquals(first.Root) {
		t.Fatalf("resolution not idempotent")
	}
}
