// Package wsdl parses WSDL 1.1 service definitions into an operation
// catalog: every operation's SOAP action, style, message shapes, and the
// endpoint it is reachable at.
//
// The <types> section is handed to pkg/xsd, so message parts resolve to
// fully merged schema types. wsdl:import references are fetched through a
// loader.Loader and merged in document order.
package wsdl

import (
	"context"
	"strings"

	"github.com/beevik/etree"

	"github.com/soapcall/soapcall/pkg/loader"
	"github.com/soapcall/soapcall/pkg/xsd"
)

// Operation is one callable operation from the catalog.
type Operation struct {
	// Name is the operation name exactly as declared in the portType.
	Name string
	// SOAPAction is the soap:operation soapAction value from the binding.
	// Empty is a valid, common state.
	SOAPAction string
	// Style is "document" or "rpc".
	Style string
	// Input and Output name the request and response messages.
	Input  string
	Output string
}

// Part is one named piece of a message.
type Part struct {
	Name    string
	Element xsd.QName // element="..." reference, preferred when present
	Type    xsd.QName // type="..." reference
}

// Message is a named, ordered sequence of parts.
type Message struct {
	Name  string
	Parts []Part
}

// Document is a parsed WSDL. Immutable after Parse; safe to share across
// concurrent callers.
type Document struct {
	name            string
	targetNamespace string
	endpoint        string
	operations      []*Operation
	opIndex         map[string]*Operation
	messages        map[string]*Message
	registry        *xsd.Registry
}

// Parse reads a WSDL 1.1 document. location is where data was fetched from
// and anchors relative import/schemaLocation references; ld loads any
// imported documents. Failures loading an import surface from the loader
// (wrapped in a *xsd.SchemaError); malformed documents yield *xsd.SchemaError.
func Parse(ctx context.Context, data []byte, location string, ld loader.Loader) (*Document, error) {
	p := &wsdlParser{
		ctx:     ctx,
		loader:  ld,
		visited: map[string]bool{location: true},
	}
	if err := p.parse(data, location); err != nil {
		return nil, err
	}
	return p.link(ctx)
}

type wsdlParser struct {
	ctx     context.Context
	loader  loader.Loader
	visited map[string]bool

	name            string
	targetNamespace string
	schemaDocs      []xsd.Doc
	messages        []*Message
	portTypes       []*portType
	bindings        []*binding
	services        []*service
}

type portType struct {
	Name       string
	Operations []*Operation
}

type binding struct {
	Name       string
	PortType   string // local name of the portType it binds
	Style      string
	Operations map[string]bindingOp
	opOrder    []string
}

type bindingOp struct {
	SOAPAction string
	Style      string
}

type service struct {
	Name  string
	Ports []port
}

type port struct {
	Name     string
	Binding  string // local name reference
	Location string // soap:address location
}

func (p *wsdlParser) parse(data []byte, location string) error {
	doc, err := xsd.ReadDocument(data)
	if err != nil {
		return &xsd.SchemaError{Location: location, Message: "malformed WSDL document", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return &xsd.SchemaError{Location: location, Message: "empty WSDL document"}
	}
	if root.Tag != "definitions" {
		return &xsd.SchemaError{
			Location: location,
			Message:  "expected root element <definitions>, got <" + root.Tag + ">",
		}
	}

	if p.name == "" {
		p.name = root.SelectAttrValue("name", "")
	}
	if p.targetNamespace == "" {
		p.targetNamespace = root.SelectAttrValue("targetNamespace", "")
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "import":
			if err := p.parseImport(child, location); err != nil {
				return err
			}
		case "types":
			p.schemaDocs = append(p.schemaDocs, xsd.Doc{Location: location, Root: child})
		case "message":
			p.parseMessage(child)
		case "portType":
			p.parsePortType(child)
		case "binding":
			p.parseBinding(child)
		case "service":
			p.parseService(child)
		}
	}
	return nil
}

// parseImport fetches and merges a wsdl:import'ed document. An import may
// point at another WSDL or at a bare schema document.
func (p *wsdlParser) parseImport(el *etree.Element, base string) error {
	ref := el.SelectAttrValue("location", "")
	if ref == "" {
		ref = el.SelectAttrValue("schemaLocation", "")
	}
	if ref == "" {
		return nil
	}
	location := loader.Resolve(base, ref)
	if p.visited[location] {
		return nil
	}
	p.visited[location] = true

	if p.loader == nil {
		return &xsd.SchemaError{Location: location, Message: "no document loader configured for wsdl:import"}
	}
	data, err := p.loader.Load(p.ctx, location)
	if err != nil {
		return &xsd.SchemaError{Location: location, Message: "loading imported document", Cause: err}
	}

	doc, err := xsd.ReadDocument(data)
	if err != nil {
		return &xsd.SchemaError{Location: location, Message: "malformed imported document", Cause: err}
	}
	if root := doc.Root(); root != nil && root.Tag == "schema" {
		p.schemaDocs = append(p.schemaDocs, xsd.Doc{Location: location, Root: root})
		return nil
	}
	return p.parse(data, location)
}

func (p *wsdlParser) parseMessage(el *etree.Element) {
	msg := &Message{Name: el.SelectAttrValue("name", "")}
	for _, partEl := range childrenNamed(el, "part") {
		msg.Parts = append(msg.Parts, Part{
			Name:    partEl.SelectAttrValue("name", ""),
			Element: attrQName(partEl, "element", p.targetNamespace),
			Type:    attrQName(partEl, "type", p.targetNamespace),
		})
	}
	p.messages = append(p.messages, msg)
}

func (p *wsdlParser) parsePortType(el *etree.Element) {
	pt := &portType{Name: el.SelectAttrValue("name", "")}
	for _, opEl := range childrenNamed(el, "operation") {
		op := &Operation{Name: opEl.SelectAttrValue("name", "")}
		if input := childNamed(opEl, "input"); input != nil {
			op.Input = stripPrefix(input.SelectAttrValue("message", ""))
		}
		if output := childNamed(opEl, "output"); output != nil {
			op.Output = stripPrefix(output.SelectAttrValue("message", ""))
		}
		pt.Operations = append(pt.Operations, op)
	}
	p.portTypes = append(p.portTypes, pt)
}

func (p *wsdlParser) parseBinding(el *etree.Element) {
	b := &binding{
		Name:       el.SelectAttrValue("name", ""),
		PortType:   stripPrefix(el.SelectAttrValue("type", "")),
		Operations: make(map[string]bindingOp),
	}
	// The soap:binding child carries the default style.
	if soapBinding := childNamed(el, "binding"); soapBinding != nil {
		b.Style = soapBinding.SelectAttrValue("style", "document")
	}
	for _, opEl := range childrenNamed(el, "operation") {
		name := opEl.SelectAttrValue("name", "")
		bop := bindingOp{Style: b.Style}
		if soapOp := childNamed(opEl, "operation"); soapOp != nil {
			bop.SOAPAction = soapOp.SelectAttrValue("soapAction", "")
			if style := soapOp.SelectAttrValue("style", ""); style != "" {
				bop.Style = style
			}
		}
		if _, exists := b.Operations[name]; !exists {
			b.Operations[name] = bop
			b.opOrder = append(b.opOrder, name)
		}
	}
	p.bindings = append(p.bindings, b)
}

func (p *wsdlParser) parseService(el *etree.Element) {
	svc := &service{Name: el.SelectAttrValue("name", "")}
	for _, portEl := range childrenNamed(el, "port") {
		pp := port{
			Name:    portEl.SelectAttrValue("name", ""),
			Binding: stripPrefix(portEl.SelectAttrValue("binding", "")),
		}
		if addr := childNamed(portEl, "address"); addr != nil {
			pp.Location = addr.SelectAttrValue("location", "")
		}
		svc.Ports = append(svc.Ports, pp)
	}
	p.services = append(p.services, svc)
}

// link resolves the service -> port -> binding -> portType chain into the
// flat operation catalog. The first port in document order wins both the
// endpoint and, per operation name, the SOAP action.
func (p *wsdlParser) link(ctx context.Context) (*Document, error) {
	registry, err := xsd.Parse(ctx, p.loader, p.schemaDocs...)
	if err != nil {
		return nil, err
	}

	d := &Document{
		name:            p.name,
		targetNamespace: p.targetNamespace,
		opIndex:         make(map[string]*Operation),
		messages:        make(map[string]*Message),
		registry:        registry,
	}
	for _, msg := range p.messages {
		if _, exists := d.messages[msg.Name]; !exists {
			d.messages[msg.Name] = msg
		}
	}

	portTypeIndex := make(map[string]*portType, len(p.portTypes))
	for _, pt := range p.portTypes {
		if _, exists := portTypeIndex[pt.Name]; !exists {
			portTypeIndex[pt.Name] = pt
		}
	}
	bindingIndex := make(map[string]*binding, len(p.bindings))
	for _, b := range p.bindings {
		if _, exists := bindingIndex[b.Name]; !exists {
			bindingIndex[b.Name] = b
		}
	}

	for _, svc := range p.services {
		for _, pp := range svc.Ports {
			b := bindingIndex[pp.Binding]
			if b == nil {
				continue
			}
			pt := portTypeIndex[b.PortType]
			if pt == nil {
				continue
			}
			if d.endpoint == "" && pp.Location != "" {
				d.endpoint = pp.Location
			}
			for _, op := range pt.Operations {
				if _, exists := d.opIndex[op.Name]; exists {
					continue
				}
				bound := *op
				bop := b.Operations[op.Name]
				bound.SOAPAction = bop.SOAPAction
				bound.Style = bop.Style
				if bound.Style == "" {
					bound.Style = "document"
				}
				d.operations = append(d.operations, &bound)
				d.opIndex[bound.Name] = &bound
			}
		}
	}

	// Operations declared in a portType but never bound by a service still
	// belong to the catalog; they just carry no action.
	for _, pt := range p.portTypes {
		for _, op := range pt.Operations {
			if _, exists := d.opIndex[op.Name]; exists {
				continue
			}
			unbound := *op
			if unbound.Style == "" {
				unbound.Style = "document"
			}
			d.operations = append(d.operations, &unbound)
			d.opIndex[unbound.Name] = &unbound
		}
	}

	return d, nil
}

// Name returns the definitions name attribute.
func (d *Document) Name() string {
	return d.name
}

// TargetNamespace returns the definitions target namespace.
func (d *Document) TargetNamespace() string {
	return d.targetNamespace
}

// Endpoint returns the first soap:address location in document order, empty
// when the document declares no reachable port.
func (d *Document) Endpoint() string {
	return d.endpoint
}

// OperationNames returns the operation catalog in document order.
func (d *Document) OperationNames() []string {
	out := make([]string, len(d.operations))
	for i, op := range d.operations {
		out[i] = op.Name
	}
	return out
}

// Lookup finds an operation by its declared name.
func (d *Document) Lookup(name string) (*Operation, bool) {
	op, ok := d.opIndex[name]
	return op, ok
}

// SOAPAction returns the declared SOAP action for an operation; ok reports
// whether the operation exists at all. An existing operation may still have
// an empty action.
func (d *Document) SOAPAction(name string) (action string, ok bool) {
	op, ok := d.opIndex[name]
	if !ok {
		return "", false
	}
	return op.SOAPAction, true
}

// MessageFor returns a message by name (prefix-stripped references accepted).
func (d *Document) MessageFor(name string) (*Message, bool) {
	msg, ok := d.messages[stripPrefix(name)]
	return msg, ok
}

// ElementFor resolves a message part to its schema type.
func (d *Document) ElementFor(message, partName string) (*xsd.Type, error) {
	msg, ok := d.messages[stripPrefix(message)]
	if !ok {
		return nil, &xsd.SchemaError{Message: "unknown message " + message}
	}
	for _, part := range msg.Parts {
		if part.Name != partName {
			continue
		}
		if !part.Element.IsZero() {
			if t, ok := d.registry.ElementType(part.Element); ok {
				return t, nil
			}
			return nil, &xsd.SchemaError{Message: "part " + partName + ": unknown element " + part.Element.String()}
		}
		if !part.Type.IsZero() {
			if t, ok := d.registry.LookupName(part.Type); ok {
				return t, nil
			}
			return nil, &xsd.SchemaError{Message: "part " + partName + ": unknown type " + part.Type.String()}
		}
		return nil, &xsd.SchemaError{Message: "part " + partName + " has no element or type reference"}
	}
	return nil, &xsd.SchemaError{Message: "message " + message + " has no part " + partName}
}

// Types exposes the merged schema type registry.
func (d *Document) Types() *xsd.Registry {
	return d.registry
}

// --- element helpers (prefix-agnostic, matching on local names) ---

func childrenNamed(parent *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}

func childNamed(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func stripPrefix(ref string) string {
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// attrQName resolves a QName-valued attribute against the namespace
// declarations in scope.
func attrQName(el *etree.Element, attr, tns string) xsd.QName {
	ref := el.SelectAttrValue(attr, "")
	if ref == "" {
		return xsd.QName{}
	}
	return resolveRef(el, ref, tns)
}

func resolveRef(el *etree.Element, ref, tns string) xsd.QName {
	prefix, local := "", ref
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		prefix, local = ref[:i], ref[i+1:]
	}
	for scope := el; scope != nil; scope = scope.Parent() {
		for _, attr := range scope.Attr {
			if prefix != "" && attr.Space == "xmlns" && attr.Key == prefix {
				return xsd.QName{Space: attr.Value, Local: local}
			}
			if prefix == "" && attr.Space == "" && attr.Key == "xmlns" {
				return xsd.QName{Space: attr.Value, Local: local}
			}
		}
	}
	return xsd.QName{Space: tns, Local: local}
}
