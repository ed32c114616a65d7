package postgres

import (
	"testing"

	"github.com/dambry/nemsis-ingest/internal/nemsisxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRowCommonColumns(t *testing.T) {
	el := &nemsisxml.Element{
		ElementID:       "e1",
		PCRUUIDContext:  "p1",
		ElementTag:      "ePatient.01",
		TableSuggestion: "epatient_01",
		Attributes:      map[string]string{"CorrelationID": "c1"},
		TextContent:     "Smith",
	}

	row := buildRow(el)
	assert.Equal(t, "e1", row["element_id"])
	assert.Equal(t, "ePatient.01", row["original_tag_name"])
	assert.Equal(t, "Smith", row["text_content"])
	assert.Equal(t, "p1", row["pcr_uuid_context"])
	assert.Equal(t, "c1", row["correlationid"])
	// Absent parent is a SQL NULL, not an empty string.
	assert.Nil(t, row["parent_element_id"])
}

func TestBuildRowAttributeCollisionLastWins(t *testing.T) {
	el := &nemsisxml.Element{
		ElementID:       "e1",
		ElementTag:      "x",
		TableSuggestion: "x",
		Attributes: map[string]string{
			"Foo-Bar": "1",
			"Foo_Bar": "2",
		},
	}

	row := buildRow(el)
	// Both raw names sanitize to foo_bar; sorted raw-key order makes
	// Foo_Bar the last writer.
	require.Contains(t, row, "foo_bar")
	assert.Equal(t, "2", row["foo_bar"])
}

func TestBuildRowIgnoresCommonColumnClobber(t *testing.T) {
	el := &nemsisxml.Element{
		ElementID:       "e1",
		ElementTag:      "x",
		TableSuggestion: "x",
		Attributes: map[string]string{
			"Element_ID": "hijack",
			"Real":       "v",
		},
	}

	row := buildRow(el)
	assert.Equal(t, "e1", row["element_id"])
	assert.Equal(t, "v", row["real"])
}

func TestSortedAttributeColumns(t *testing.T) {
	cols := sortedAttributeColumns(map[string]string{
		"Zeta":         "1",
		"Alpha":        "2",
		"Foo-Bar":      "3",
		"Foo_Bar":      "4", // collides with Foo-Bar
		"text_content": "5", // common column, excluded
		"!!!":          "6", // sanitizes to a bare underscore
	})
	assert.Equal(t, []string{"_", "alpha", "foo_bar", "zeta"}, cols)
}

func TestSortedAttributeColumnsEmpty(t *testing.T) {
	assert.Empty(t, sortedAttributeColumns(nil))
	assert.Empty(t, sortedAttributeColumns(map[string]string{"text_content": "x"}))
}
