package sanitize

import (
	"regexp"
	"strings"
	"testing"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func TestName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ePatient_01", "epatient_01"},
		{"ePatient.01", "epatient_01"},
		{"CorrelationID", "correlationid"},
		{"Foo-Bar", "foo_bar"},
		{"Foo_Bar", "foo_bar"},
		{"  spaced out  ", "spaced_out"},
		{"a__b___c", "a_b_c"},
		{"9lives", "_9lives"},
		{"-9", "_9"},
		{"über", "_ber"},
		{"_already_fine", "_already_fine"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := Name(tc.in); got != tc.want {
			t.Errorf("Name(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNameShape(t *testing.T) {
	inputs := []string{
		"ePatient.01", "eAirway.ConfirmationGroup", "123", "!!!", "a b c",
		"CamelCase", "_", "x", "tab\tseparated", "trailing_",
	}
	for _, in := range inputs {
		got := Name(in)
		if got == "" {
			continue
		}
		if !identRe.MatchString(got) {
			t.Errorf("Name(%q) = %q does not match identifier shape", in, got)
		}
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"ePatient.01", "Foo-Bar", "9lives", "  padded  ", "a__b", "UPPER", "_x_",
	}
	for _, in := range inputs {
		once := Name(in)
		if twice := Name(once); twice != once {
			t.Errorf("Name(Name(%q)): %q != %q", in, twice, once)
		}
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := Truncate(long); len(got) != MaxIdentifierLen {
		t.Errorf("Truncate left %d bytes, want %d", len(got), MaxIdentifierLen)
	}
	if got := Truncate("short"); got != "short" {
		t.Errorf("Truncate(%q) = %q", "short", got)
	}
	exact := strings.Repeat("b", MaxIdentifierLen)
	if got := Truncate(exact); got != exact {
		t.Errorf("Truncate altered a %d-byte identifier", MaxIdentifierLen)
	}
}
