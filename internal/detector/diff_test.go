package detector

import (
	"strings"
	"testing"
)

func TestDiff_EqualValuesProduceEmptyDiff(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
	}{
		{"nil both sides", nil},
		{"equal strings", "instance_type = t2.micro\n"},
		{"equal maps", map[string]interface{}{"cidr": "10.0.0.0/16", "ports": []int{22, 443}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diff(tt.value, tt.value); got != "" {
				t.Errorf("Diff() of equal values = %q, want empty", got)
			}
		})
	}
}

func TestDiff_Deterministic(t *testing.T) {
	before := map[string]interface{}{
		"zone":         "us-central1-a",
		"machine_type": "n1-standard-1",
		"labels":       map[string]interface{}{"env": "prod", "owner": "platform"},
	}
	after := map[string]interface{}{
		"zone":         "us-central1-a",
		"machine_type": "n1-standard-2",
		"labels":       map[string]interface{}{"owner": "platform", "env": "prod"},
	}

	first := Diff(before, after)
	for i := 0; i < 20; i++ {
		if got := Diff(before, after); got != first {
			t.Fatalf("Diff() not deterministic on iteration %d:\nfirst:\n%s\ngot:\n%s", i, first, got)
		}
	}

	if first == "" {
		t.Fatal("Diff() of differing values is empty")
	}
	if !strings.Contains(first, "--- before") || !strings.Contains(first, "+++ after") {
		t.Errorf("Diff() missing unified headers:\n%s", first)
	}
	if !strings.Contains(first, "-") || !strings.Contains(first, "n1-standard-2") {
		t.Errorf("Diff() missing changed line:\n%s", first)
	}
}

func TestDiff_KeyOrderIndependent(t *testing.T) {
	// Two maps with the same content must serialize identically, so only
	// the genuinely changed key shows up in the diff.
	before := map[string]interface{}{"a": 1, "b": 2, "c": 3}
	after := map[string]interface{}{"c": 3, "b": 99, "a": 1}

	got := Diff(before, after)

	var changed []string
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") {
			continue
		}
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "+") {
			changed = append(changed, line)
		}
	}

	if len(changed) != 2 {
		t.Fatalf("Diff() changed lines = %v, want exactly the before/after of %q:\n%s", changed, "b", got)
	}
	for _, line := range changed {
		if !strings.Contains(line, `"b"`) {
			t.Errorf("Diff() flagged unchanged key in %q:\n%s", line, got)
		}
	}
}

func TestDiff_StringsPassThrough(t *testing.T) {
	before := "region = us-east-1\ncount = 2\n"
	after := "region = us-east-1\ncount = 3\n"

	got := Diff(before, after)
	if !strings.Contains(got, "-count = 2") || !strings.Contains(got, "+count = 3") {
		t.Errorf("Diff() of raw strings did not diff line by line:\n%s", got)
	}
}

func TestDiff_NilSides(t *testing.T) {
	got := Diff(nil, map[string]interface{}{"name": "web"})
	if got == "" {
		t.Fatal("Diff() nil-to-value is empty")
	}
	if !strings.Contains(got, "+") {
		t.Errorf("Diff() nil-to-value has no additions:\n%s", got)
	}
}
