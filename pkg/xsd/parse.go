package xsd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/soapcall/soapcall/pkg/loader"
)

// Doc is one schema input: an XML element (either an <xsd:schema> or an
// element containing schemas) plus the location it was read from, used to
// resolve relative schemaLocation references.
type Doc struct {
	Location string
	Root     *etree.Element
}

// Parse walks every schema in docs, in order, into a single registry.
// Imports and includes are fetched through ld and merged at the point they
// appear, so the overall merge order is document order. Duplicate qualified
// names keep the first definition seen.
//
// Parse fails with a *SchemaError when a document cannot be parsed or a base
// type reference cannot be resolved after the full merge; no partial
// registry is returned.
func Parse(ctx context.Context, ld loader.Loader, docs ...Doc) (*Registry, error) {
	p := &parser{
		ctx:      ctx,
		loader:   ld,
		registry: newRegistry(),
		visited:  make(map[string]bool),
	}
	for _, doc := range docs {
		if doc.Root == nil {
			continue
		}
		for _, schema := range collectSchemas(doc.Root) {
			if err := p.parseSchema(schema, doc.Location, ""); err != nil {
				return nil, err
			}
		}
	}
	if err := p.registry.resolve(); err != nil {
		return nil, err
	}
	return p.registry, nil
}

// ReadDocument parses raw XML bytes into an etree document, decoding
// non-UTF-8 encodings declared in the XML prolog.
func ReadDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return doc, nil
}

type parser struct {
	ctx      context.Context
	loader   loader.Loader
	registry *Registry
	visited  map[string]bool
	anonSeq  int
}

// collectSchemas returns schema elements beneath root in document order.
// A root that is itself a schema is returned as-is.
func collectSchemas(root *etree.Element) []*etree.Element {
	if root.Tag == "schema" {
		return []*etree.Element{root}
	}
	var out []*etree.Element
	for _, child := range root.ChildElements() {
		out = append(out, collectSchemas(child)...)
	}
	return out
}

func (p *parser) parseSchema(schema *etree.Element, location, inheritedTNS string) error {
	tns := schema.SelectAttrValue("targetNamespace", "")
	if tns == "" {
		// Chameleon include: the schema adopts the including document's
		// target namespace.
		tns = inheritedTNS
	}

	for _, child := range schema.ChildElements() {
		switch child.Tag {
		case "import":
			if err := p.follow(child, location, ""); err != nil {
				return err
			}
		case "include", "redefine":
			if err := p.follow(child, location, tns); err != nil {
				return err
			}
		case "element":
			p.parseGlobalElement(child, tns)
		case "complexType":
			if name := child.SelectAttrValue("name", ""); name != "" {
				p.registry.register(p.parseComplexType(child, QName{Space: tns, Local: name}, tns))
			}
		case "simpleType":
			if name := child.SelectAttrValue("name", ""); name != "" {
				p.registry.register(p.parseSimpleType(child, QName{Space: tns, Local: name}))
			}
		}
	}
	return nil
}

// follow fetches and merges an imported or included schema document.
func (p *parser) follow(ref *etree.Element, base, inheritedTNS string) error {
	schemaLocation := ref.SelectAttrValue("schemaLocation", "")
	if schemaLocation == "" {
		// Import by namespace only; the types must arrive via another doc.
		return nil
	}
	location := loader.Resolve(base, schemaLocation)
	if p.visited[location] {
		return nil
	}
	p.visited[location] = true

	if p.loader == nil {
		return schemaErrorf(location, "no document loader configured for %s", ref.Tag)
	}
	data, err := p.loader.Load(p.ctx, location)
	if err != nil {
		return &SchemaError{Location: location, Message: "loading " + ref.Tag + "ed schema", Cause: err}
	}
	doc, err := ReadDocument(data)
	if err != nil {
		return &SchemaError{Location: location, Message: "malformed schema document", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return schemaErrorf(location, "empty schema document")
	}
	for _, schema := range collectSchemas(root) {
		if err := p.parseSchema(schema, location, inheritedTNS); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseGlobalElement(el *etree.Element, tns string) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return
	}
	elemName := QName{Space: tns, Local: name}

	if ref := el.SelectAttrValue("type", ""); ref != "" {
		p.registry.registerElement(elemName, resolveQName(el, ref, tns))
		return
	}
	if ct := el.SelectElement("complexType"); ct != nil {
		// Inline type: register it under the element's own name.
		t := p.parseComplexType(ct, elemName, tns)
		p.registry.register(t)
		p.registry.registerElement(elemName, elemName)
		return
	}
	if st := el.SelectElement("simpleType"); st != nil {
		p.registry.register(p.parseSimpleType(st, elemName))
		p.registry.registerElement(elemName, elemName)
		return
	}
	// No type information at all: anyType.
	p.registry.registerElement(elemName, QName{Space: Namespace, Local: "anyType"})
}

func (p *parser) parseComplexType(ct *etree.Element, name QName, tns string) *Type {
	t := &Type{Name: name, Kind: Complex}

	for _, child := range ct.ChildElements() {
		switch child.Tag {
		case "sequence", "choice", "all":
			t.declared = append(t.declared, p.parseGroup(child, tns)...)
		case "complexContent":
			p.parseContent(child, t, tns, false)
		case "simpleContent":
			p.parseContent(child, t, tns, true)
		}
	}
	return t
}

// parseContent handles complexContent/simpleContent extension and
// restriction blocks.
func (p *parser) parseContent(content *etree.Element, t *Type, tns string, simple bool) {
	for _, child := range content.ChildElements() {
		switch child.Tag {
		case "extension", "restriction":
			if base := child.SelectAttrValue("base", ""); base != "" {
				t.Base = resolveQName(child, base, tns)
			}
			t.Restricts = child.Tag == "restriction"
			if simple {
				// Scalar content with attributes; no child elements.
				t.Kind = Simple
				continue
			}
			for _, grandchild := range child.ChildElements() {
				switch grandchild.Tag {
				case "sequence", "choice", "all":
					t.declared = append(t.declared, p.parseGroup(grandchild, tns)...)
				}
			}
		}
	}
}

// parseGroup flattens a compositor (sequence, choice, all) into an ordered
// element list. Nested compositors flatten recursively. An "all" group keeps
// declaration order; its unordered semantic is dropped on purpose.
func (p *parser) parseGroup(group *etree.Element, tns string) []Element {
	var out []Element
	for _, child := range group.ChildElements() {
		switch child.Tag {
		case "element":
			out = append(out, p.parseParticle(child, tns))
		case "sequence", "choice", "all":
			out = append(out, p.parseGroup(child, tns)...)
		}
	}
	return out
}

func (p *parser) parseParticle(el *etree.Element, tns string) Element {
	e := Element{
		Name:      el.SelectAttrValue("name", ""),
		Namespace: tns,
		MinOccurs: parseOccurs(el.SelectAttrValue("minOccurs", "1")),
		MaxOccurs: parseOccurs(el.SelectAttrValue("maxOccurs", "1")),
		Nillable:  el.SelectAttrValue("nillable", "") == "true",
	}

	if ref := el.SelectAttrValue("ref", ""); ref != "" {
		e.Ref = resolveQName(el, ref, tns)
		return e
	}
	if typeRef := el.SelectAttrValue("type", ""); typeRef != "" {
		e.Type = resolveQName(el, typeRef, tns)
		return e
	}
	if ct := el.SelectElement("complexType"); ct != nil {
		// Anonymous inline type; registered under a synthetic name.
		p.anonSeq++
		anon := QName{Space: tns, Local: fmt.Sprintf("_anon%d", p.anonSeq)}
		p.registry.register(p.parseComplexType(ct, anon, tns))
		e.Type = anon
		return e
	}
	if st := el.SelectElement("simpleType"); st != nil {
		p.anonSeq++
		anon := QName{Space: tns, Local: fmt.Sprintf("_anon%d", p.anonSeq)}
		p.registry.register(p.parseSimpleType(st, anon))
		e.Type = anon
		return e
	}
	e.Type = QName{Space: Namespace, Local: "anyType"}
	return e
}

func (p *parser) parseSimpleType(st *etree.Element, name QName) *Type {
	t := &Type{Name: name, Kind: Simple}
	if restriction := st.SelectElement("restriction"); restriction != nil {
		if base := restriction.SelectAttrValue("base", ""); base != "" {
			t.Base = resolveQName(restriction, base, name.Space)
		}
		t.Restricts = true
	}
	return t
}

func parseOccurs(v string) int {
	if v == "unbounded" {
		return Unbounded
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 1
	}
	return n
}

// resolveQName resolves a prefixed reference like "tns:Person" against the
// namespace declarations in scope at el. An unprefixed reference resolves
// via the default namespace, falling back to the schema's target namespace.
func resolveQName(el *etree.Element, ref, tns string) QName {
	prefix, local := "", ref
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		prefix, local = ref[:i], ref[i+1:]
	}

	for scope := el; scope != nil; scope = scope.Parent() {
		for _, attr := range scope.Attr {
			if prefix != "" && attr.Space == "xmlns" && attr.Key == prefix {
				return QName{Space: attr.Value, Local: local}
			}
			if prefix == "" && attr.Space == "" && attr.Key == "xmlns" {
				return QName{Space: attr.Value, Local: local}
			}
		}
	}
	return QName{Space: tns, Local: local}
}
