package reconcile

import (
	"reflect"
	"strings"
	"testing"

	"subweave/internal/cuepack"
)

func TestReconcileAlignedFragments(t *testing.T) {
	got, method := Reconcile([]string{"Hello world."}, "Hola mundo. ◌")
	if method != Aligned {
		t.Fatalf("expected aligned, got %s", method)
	}
	if !reflect.DeepEqual(got, []string{"Hola mundo."}) {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestReconcileMissingMarkerSingleLine(t *testing.T) {
	got := Reconstruct([]string{"Hello world."}, "Hola mundo increíble")
	if !reflect.DeepEqual(got, []string{"Hola mundo increíble"}) {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestReconcileRepairsMarkerSpacing(t *testing.T) {
	original := []string{"one", "two", "three"}
	got := Reconstruct(original, "uno ◌. dos◌ ,tres ◌ ")
	want := []string{"uno.", "dos,", "tres"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReconcileProportionalRedistribution(t *testing.T) {
	got, method := Reconcile([]string{"a b", "c"}, "w1 w2 w3 w4 w5 w6")
	if method != Redistributed {
		t.Fatalf("expected redistributed, got %s", method)
	}
	want := []string{"w1 w2 w3 w4", "w5 w6"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReconcileLastLineAbsorbsRemainder(t *testing.T) {
	// ratio 8/3 gives the first line three words and the rest to the last.
	got := Reconstruct([]string{"a", "b c"}, "1 2 3 ◌ 4 5 6 7 ◌ extra")
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
	if strings.Join(got, " ") != "1 2 3 4 5 6 7 extra" {
		t.Fatalf("words lost or reordered: %q", got)
	}
}

func TestReconcileNoTranslationKeepsOriginal(t *testing.T) {
	got, method := Reconcile([]string{"first", "second"}, "")
	if method != Original {
		t.Fatalf("expected original, got %s", method)
	}
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Fatalf("unexpected %q", got)
	}
}

func TestReconcileMarkerOnlyCollapses(t *testing.T) {
	got, method := Reconcile([]string{"a", "b", "c"}, "◌ ◌ ◌")
	if method != Original && method != Collapsed {
		t.Fatalf("unexpected method %s", method)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %q", got)
	}
}

func TestReconcileIdentityRoundTrip(t *testing.T) {
	texts := []string{"Hello  there,", "general", "", "Kenobi."}
	batch := cuepack.Pack(texts, 0)[0]
	got := Reconstruct(batch.Lines, batch.Text())
	want := []string{"Hello there,", "general", cuepack.Placeholder, "Kenobi."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReconcileCardinality(t *testing.T) {
	original := []string{"one two", "three", "four five six", "seven"}
	responses := []string{
		"",
		"   ",
		"garbage",
		"◌",
		"a ◌ b",
		"a ◌ b ◌ c ◌ d ◌ e ◌ f ◌ g",
		"uno dos tres cuatro cinco seis siete ocho nueve diez",
		strings.Repeat("x ◌ ", 20),
	}
	for _, resp := range responses {
		got := Reconstruct(original, resp)
		if len(got) != len(original) {
			t.Fatalf("response %q: got %d lines, want %d", resp, len(got), len(original))
		}
	}
}

func TestFitMergesOverflow(t *testing.T) {
	got := fit([]string{"a", "b", "c"}, 2)
	if !reflect.DeepEqual(got, []string{"a", "b c"}) {
		t.Fatalf("unexpected %q", got)
	}
	got = fit([]string{"a"}, 3)
	if !reflect.DeepEqual(got, []string{"a", "a", "a"}) {
		t.Fatalf("unexpected %q", got)
	}
}
