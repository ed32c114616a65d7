package nemsisxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<EMSDataSet xmlns="http://www.nemsis.org">
  <Header>
    <PatientCareReport>
      <eRecord>
        <eRecord.01>11111111-2222-3333-4444-555555555555</eRecord.01>
      </eRecord>
      <ePatient>
        <ePatient.01 CorrelationID="c1">Smith</ePatient.01>
        <ePatient.02>John</ePatient.02>
      </ePatient>
    </PatientCareReport>
  </Header>
</EMSDataSet>`

func parseSample(t *testing.T) []*Element {
	t.Helper()
	elements, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.NotEmpty(t, elements)
	return elements
}

func byTag(elements []*Element, tag string) *Element {
	for _, el := range elements {
		if el.ElementTag == tag {
			return el
		}
	}
	return nil
}

func TestParseDocumentOrder(t *testing.T) {
	elements := parseSample(t)

	var tags []string
	for _, el := range elements {
		tags = append(tags, el.ElementTag)
	}
	assert.Equal(t, []string{
		"EMSDataSet", "Header", "PatientCareReport",
		"eRecord", "eRecord.01",
		"ePatient", "ePatient.01", "ePatient.02",
	}, tags)
}

func TestParseParentLinkage(t *testing.T) {
	elements := parseSample(t)

	root := elements[0]
	assert.Empty(t, root.ParentElementID)
	assert.Empty(t, root.ParentTableSuggestion)

	patient := byTag(elements, "ePatient.01")
	require.NotNil(t, patient)
	parent := byTag(elements, "ePatient")
	require.NotNil(t, parent)
	assert.Equal(t, parent.ElementID, patient.ParentElementID)
	assert.Equal(t, "epatient", patient.ParentTableSuggestion)
}

func TestParseUniqueElementIDs(t *testing.T) {
	elements := parseSample(t)

	seen := make(map[string]bool)
	for _, el := range elements {
		require.NotEmpty(t, el.ElementID)
		assert.False(t, seen[el.ElementID], "duplicate element id %s", el.ElementID)
		seen[el.ElementID] = true
	}
}

func TestParsePCRContext(t *testing.T) {
	elements := parseSample(t)

	const pcrUUID = "11111111-2222-3333-4444-555555555555"
	for _, el := range elements {
		switch el.ElementTag {
		case "EMSDataSet", "Header":
			assert.Empty(t, el.PCRUUIDContext, "%s should be outside any PCR", el.ElementTag)
		default:
			assert.Equal(t, pcrUUID, el.PCRUUIDContext, "tag %s", el.ElementTag)
		}
	}

	assert.Equal(t, []string{pcrUUID}, UniquePCRUUIDs(elements))
}

func TestParseTableSuggestionsAndPath(t *testing.T) {
	elements := parseSample(t)

	patient := byTag(elements, "ePatient.01")
	require.NotNil(t, patient)
	assert.Equal(t, "epatient_01", patient.TableSuggestion)
	assert.Equal(t, "Smith", patient.TextContent)
	assert.Equal(t, "c1", patient.Attributes["CorrelationID"])
	assert.Equal(t, "EMSDataSet/Header/PatientCareReport/ePatient/ePatient.01",
		patient.Attributes[PathAttribute])
}

func TestParseGeneratesPCRUUIDWhenMissing(t *testing.T) {
	doc := `<EMSDataSet><PatientCareReport><ePatient/></PatientCareReport></EMSDataSet>`
	elements, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	pcr := byTag(elements, "PatientCareReport")
	require.NotNil(t, pcr)
	assert.NotEmpty(t, pcr.PCRUUIDContext)
	child := byTag(elements, "ePatient")
	require.NotNil(t, child)
	assert.Equal(t, pcr.PCRUUIDContext, child.PCRUUIDContext)
}

func TestParsePCRUUIDFromAttribute(t *testing.T) {
	doc := `<EMSDataSet><PatientCareReport UUID="attr-uuid"><ePatient/></PatientCareReport></EMSDataSet>`
	elements, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	pcr := byTag(elements, "PatientCareReport")
	require.NotNil(t, pcr)
	assert.Equal(t, "attr-uuid", pcr.PCRUUIDContext)
}

func TestParseMultiplePCRs(t *testing.T) {
	doc := `<EMSDataSet>
		<PatientCareReport><eRecord><eRecord.01>pcr-one</eRecord.01></eRecord></PatientCareReport>
		<PatientCareReport><eRecord><eRecord.01>pcr-two</eRecord.01></eRecord></PatientCareReport>
	</EMSDataSet>`
	elements, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"pcr-one", "pcr-two"}, UniquePCRUUIDs(elements))
}

func TestParseEmptyDocument(t *testing.T) {
	elements, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, elements)

	elements, err = Parse(strings.NewReader("   \n  "))
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader(`<EMSDataSet><unclosed>`))
	require.Error(t, err)

	_, err = Parse(strings.NewReader(`<a></b>`))
	require.Error(t, err)
}

func TestParseDropsNamespaceDeclarations(t *testing.T) {
	elements := parseSample(t)
	root := elements[0]
	for k := range root.Attributes {
		assert.NotEqual(t, "xmlns", k)
	}
}
