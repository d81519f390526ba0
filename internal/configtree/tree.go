// File: internal/configtree/tree.go
// Brief: Config document loading and dotted-path access over cty values.

// Package configtree models the setup configuration as an immutable
// cty value tree and resolves home-relative paths and ${dotted.path}
// references inside it. Loading stays separate from resolution: the
// resolver itself never touches the filesystem.
package configtree

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration document into a cty value tree.
func Load(path string) (cty.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, errors.Wrapf(err, "read config %s", path)
	}
	v, err := Parse(raw)
	if err != nil {
		return cty.NilVal, errors.Wrapf(err, "parse config %s", path)
	}
	return v, nil
}

// Parse decodes YAML into a cty value. The document goes through a JSON
// round trip so ctyjson can imply a concrete object type for it.
func Parse(raw []byte) (cty.Value, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return cty.NilVal, err
	}
	if doc == nil {
		return cty.EmptyObjectVal, nil
	}
	jsonRaw, err := json.Marshal(doc)
	if err != nil {
		return cty.NilVal, err
	}
	ty, err := ctyjson.ImpliedType(jsonRaw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(jsonRaw, ty)
}

// MarshalJSON renders a value tree as indented JSON, for "config resolve".
func MarshalJSON(v cty.Value) ([]byte, error) {
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	var buf any
	if err := json.Unmarshal(raw, &buf); err != nil {
		return nil, err
	}
	return json.MarshalIndent(buf, "", "  ")
}

// Lookup walks a dot-separated path from root through objects and maps.
// The second return is false when any segment is missing or the value
// on the way is not a mapping.
func Lookup(root cty.Value, path string) (cty.Value, bool) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		if cur.IsNull() || !cur.IsKnown() {
			return cty.NilVal, false
		}
		ty := cur.Type()
		switch {
		case ty.IsObjectType():
			if !ty.HasAttribute(seg) {
				return cty.NilVal, false
			}
			cur = cur.GetAttr(seg)
		case ty.IsMapType():
			idx := cty.StringVal(seg)
			if !cur.HasIndex(idx).True() {
				return cty.NilVal, false
			}
			cur = cur.Index(idx)
		default:
			return cty.NilVal, false
		}
	}
	return cur, true
}

// LookupString resolves a dotted path to its string form, converting
// scalars where cty allows it. Composite and null values report false.
func LookupString(root cty.Value, path string) (string, bool) {
	v, ok := Lookup(root, path)
	if !ok {
		return "", false
	}
	return stringify(v)
}

func stringify(v cty.Value) (string, bool) {
	if v.IsNull() || !v.IsKnown() {
		return "", false
	}
	if !v.Type().IsPrimitiveType() {
		return "", false
	}
	conv, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", false
	}
	return conv.AsString(), true
}

// Flatten returns every scalar leaf keyed by its dotted path. Sequence
// elements use their zero-based index as a segment.
func Flatten(root cty.Value) map[string]string {
	out := map[string]string{}
	var walk func(prefix string, v cty.Value)
	walk = func(prefix string, v cty.Value) {
		if v.IsNull() || !v.IsKnown() {
			return
		}
		ty := v.Type()
		switch {
		case ty.IsObjectType() || ty.IsMapType():
			for it := v.ElementIterator(); it.Next(); {
				k, ev := it.Element()
				key := k.AsString()
				if prefix != "" {
					key = prefix + "." + key
				}
				walk(key, ev)
			}
		case ty.IsTupleType() || ty.IsListType():
			i := 0
			for it := v.ElementIterator(); it.Next(); {
				_, ev := it.Element()
				key := strings.TrimPrefix(prefix+"."+strconv.Itoa(i), ".")
				walk(key, ev)
				i++
			}
		default:
			if s, ok := stringify(v); ok {
				out[prefix] = s
			}
		}
	}
	walk("", root)
	return out
}
