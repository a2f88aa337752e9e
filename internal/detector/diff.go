package detector

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between two arbitrary nested values. Both
// sides are serialized to a canonical key-sorted form, so identical inputs
// always produce byte-identical output regardless of map ordering. A nil
// side serializes to the empty string. Diff never fails; two equal values
// produce an empty diff.
func Diff(before, after interface{}) string {
	beforeStr := canonical(before)
	afterStr := canonical(after)

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(beforeStr),
		B:        difflib.SplitLines(afterStr),
		FromFile: "before",
		ToFile:   "after",
		Context:  3,
	})
	if err != nil {
		// Unreachable with string inputs, but keep the contract total.
		return ""
	}
	return text
}

// canonical serializes a value to its deterministic textual form. Strings
// pass through unchanged so file contents diff line by line; everything
// else becomes indented JSON, which encoding/json emits with sorted map
// keys.
func canonical(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
