// Package nemsisxml parses NEMSIS XML documents into the ordered element
// stream consumed by the ingestion pipeline.
//
// The whole document is tokenized into a node tree first, then flattened in
// document order. Two-pass parsing is deliberate: the PCR UUID that scopes a
// PatientCareReport subtree lives in a descendant element (eRecord.01), so
// the context cannot be assigned during a single forward pass.
package nemsisxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/sanitize"
	"github.com/google/uuid"
)

// node is the intermediate tree form between the token stream and the
// flattened element list.
type node struct {
	tag      string
	attrs    map[string]string
	text     strings.Builder
	children []*node
}

// ParseFile parses the XML document at path into elements in document
// order. An empty document yields an empty slice and no error; malformed
// XML fails the whole parse, never returning a partial stream.
func ParseFile(path string) ([]*Element, error) {
	// #nosec G304 - operator-supplied input path
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse parses an XML document from r. See ParseFile.
func Parse(r io.Reader) ([]*Element, error) {
	root, err := buildTree(r)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	var out []*Element
	flatten(root, nil, "", "", &out)
	return out, nil
}

// buildTree tokenizes the document into a node tree. Returns nil when the
// document has no root element.
func buildTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	var root *node
	var stack []*node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse error: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{tag: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				// Namespace declarations are transport noise, not data.
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("xml parse error: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("xml parse error: unclosed element <%s>", stack[len(stack)-1].tag)
	}
	return root, nil
}

// flatten walks the tree in document order, minting element IDs, assigning
// PCR UUID context, and recording each element's canonical path.
func flatten(n *node, parent *Element, parentPath, pcrContext string, out *[]*Element) {
	path := n.tag
	if parentPath != "" {
		path = parentPath + "/" + n.tag
	}

	if n.tag == pcrTag {
		pcrContext = pcrUUIDFor(n)
	}

	el := &Element{
		ElementID:       uuid.NewString(),
		PCRUUIDContext:  pcrContext,
		ElementTag:      n.tag,
		TableSuggestion: sanitize.Name(n.tag),
		Attributes:      make(map[string]string, len(n.attrs)+1),
		TextContent:     strings.TrimSpace(n.text.String()),
	}
	for k, v := range n.attrs {
		el.Attributes[k] = v
	}
	el.Attributes[PathAttribute] = path
	if parent != nil {
		el.ParentElementID = parent.ElementID
		el.ParentTableSuggestion = parent.TableSuggestion
	}

	*out = append(*out, el)
	for _, c := range n.children {
		flatten(c, el, path, pcrContext, out)
	}
}

// pcrUUIDFor resolves the UUID identifying a PatientCareReport subtree:
// the text of its eRecord.01 descendant when present, else a UUID
// attribute on the PCR element itself, else a generated one. A generated
// UUID forfeits overwrite-on-reingest for that report, since nothing ties
// the two ingestions together.
func pcrUUIDFor(pcr *node) string {
	if v := findText(pcr, recordUUIDTag); v != "" {
		return v
	}
	if v := strings.TrimSpace(pcr.attrs["UUID"]); v != "" {
		return v
	}
	return uuid.NewString()
}

// findText returns the trimmed text of the first descendant with the given
// tag, depth-first.
func findText(n *node, tag string) string {
	for _, c := range n.children {
		if c.tag == tag {
			if v := strings.TrimSpace(c.text.String()); v != "" {
				return v
			}
		}
		if v := findText(c, tag); v != "" {
			return v
		}
	}
	return ""
}

// UniquePCRUUIDs collects the distinct non-empty PCR UUID contexts from an
// element stream, in first-seen order.
func UniquePCRUUIDs(elements []*Element) []string {
	seen := make(map[string]bool)
	var out []string
	for _, el := range elements {
		if el.PCRUUIDContext == "" || seen[el.PCRUUIDContext] {
			continue
		}
		seen[el.PCRUUIDContext] = true
		out = append(out, el.PCRUUIDContext)
	}
	return out
}
