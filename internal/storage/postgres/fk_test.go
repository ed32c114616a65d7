package postgres

import (
	"regexp"
	"strings"
	"testing"

	"github.com/dambry/nemsis-ingest/internal/sanitize"
)

func TestForeignKeyNameShort(t *testing.T) {
	got := ForeignKeyName("ecase_step", "ecase")
	if got != "fk_ecase_step_ecase" {
		t.Errorf("ForeignKeyName = %q, want fk_ecase_step_ecase", got)
	}
}

func TestForeignKeyNameLong(t *testing.T) {
	child := strings.Repeat("a", 40)
	parent := strings.Repeat("b", 40)

	got := ForeignKeyName(child, parent)
	if len(got) > sanitize.MaxIdentifierLen {
		t.Fatalf("name %q is %d bytes, cap is %d", got, len(got), sanitize.MaxIdentifierLen)
	}
	if !regexp.MustCompile(`_[0-9a-f]{6}$`).MatchString(got) {
		t.Errorf("name %q does not end with a 6-hex suffix", got)
	}

	// Child gets the floor half of the shared budget, parent the remainder.
	want := "fk_" + strings.Repeat("a", 26) + "_" + strings.Repeat("b", 26)
	if !strings.HasPrefix(got, want) {
		t.Errorf("name %q does not carry the expected truncated parts %q", got, want)
	}
}

func TestForeignKeyNameDeterministic(t *testing.T) {
	pairs := [][2]string{
		{"ecase_step", "ecase"},
		{strings.Repeat("x", 50), strings.Repeat("y", 50)},
		{strings.Repeat("long_child_table_name_", 3), "p"},
	}
	for _, pair := range pairs {
		a := ForeignKeyName(pair[0], pair[1])
		b := ForeignKeyName(pair[0], pair[1])
		if a != b {
			t.Errorf("ForeignKeyName(%q, %q) not deterministic: %q vs %q", pair[0], pair[1], a, b)
		}
		if len(a) > sanitize.MaxIdentifierLen {
			t.Errorf("ForeignKeyName(%q, %q) = %q exceeds cap", pair[0], pair[1], a)
		}
	}
}

func TestForeignKeyNameDistinctPairsDiffer(t *testing.T) {
	// Two pairs whose truncated parts coincide must still differ via the
	// hash suffix.
	a := ForeignKeyName(strings.Repeat("a", 40)+"1", strings.Repeat("b", 40))
	b := ForeignKeyName(strings.Repeat("a", 40)+"2", strings.Repeat("b", 40))
	if a == b {
		t.Errorf("distinct pairs produced the same constraint name %q", a)
	}
}

func TestForeignKeyNameShortParent(t *testing.T) {
	// A short parent leaves the child to absorb most of the truncation.
	child := strings.Repeat("c", 80)
	got := ForeignKeyName(child, "p")
	if len(got) > sanitize.MaxIdentifierLen {
		t.Fatalf("name %q is %d bytes", got, len(got))
	}
	if !strings.Contains(got, "_p_") {
		t.Errorf("name %q lost the parent part", got)
	}
}
