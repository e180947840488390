// Package xsd parses the XML Schema subset used by WSDL documents into a
// flat, namespace-qualified type registry.
//
// The registry records complexType, simpleType, and top-level element
// definitions keyed by (target namespace, local name), follows import and
// include references through a loader.Loader, and resolves extension and
// restriction chains into an effective, ordered element sequence per type.
//
// This is not a schema validator: facets, attributes, and identity
// constraints are ignored. Compositor groups (sequence, choice, all) are
// flattened into declaration order; an "all" group is recorded as if it were
// a sequence, so the unordered-children semantic is intentionally not
// preserved.
package xsd

import (
	"fmt"
)

// Namespace is the XML Schema namespace URI. Any type reference into this
// namespace is a built-in primitive and terminates resolution.
const Namespace = "http://www.w3.org/2001/XMLSchema"

// Unbounded is the MaxOccurs value for maxOccurs="unbounded".
const Unbounded = -1

// QName is a namespace-qualified name.
type QName struct {
	Space string
	Local string
}

// IsZero reports whether the name is unset.
func (q QName) IsZero() bool {
	return q.Space == "" && q.Local == ""
}

func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// IsBuiltin reports whether q names an XML Schema built-in (xsd:string,
// xsd:int, xsd:dateTime, ...).
func IsBuiltin(q QName) bool {
	return q.Space == Namespace
}

// BuiltinType returns a synthetic simple Type for a built-in primitive
// reference, so callers can treat built-ins and registered types uniformly.
func BuiltinType(q QName) *Type {
	return &Type{Name: q, Kind: Simple, resolved: true}
}

// Kind discriminates simple (scalar) from complex (structured) types.
type Kind int

// Type kinds.
const (
	Simple Kind = iota + 1
	Complex
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Complex:
		return "complex"
	default:
		return "unknown"
	}
}

// Element is one child element particle of a complex type.
type Element struct {
	// Name is the element's local name.
	Name string
	// Namespace is the namespace the element lives in.
	Namespace string
	// Type references the element's type; either a built-in or a key into
	// the registry. Zero when the particle is an unresolved ref.
	Type QName
	// Ref, when set, points at a global element declaration that supplies
	// the name and type. Resolved after all documents are merged, so
	// forward references parse fine.
	Ref QName
	// MinOccurs and MaxOccurs are the occurrence bounds.
	// MaxOccurs is Unbounded for maxOccurs="unbounded".
	MinOccurs int
	MaxOccurs int
	// Nillable reports xsi:nil permission.
	Nillable bool
}

// Type is a named schema type. Immutable once Parse returns.
type Type struct {
	// Name identifies the type: (target namespace, local name).
	Name QName
	// Kind is Simple or Complex.
	Kind Kind
	// Base is the extension or restriction base, zero if none.
	Base QName
	// Restricts is true when Base was declared via restriction, in which
	// case the declared elements replace the base's rather than extend them.
	Restricts bool
	// Elements is the effective, ordered element sequence: for an
	// extension, the base type's effective elements followed by the
	// declared ones. Populated once every document has been merged.
	Elements []Element

	declared []Element
	resolved bool
}

// SchemaError reports a WSDL/XSD parse or resolution failure.
type SchemaError struct {
	// Location is the document being parsed when the error occurred,
	// empty for in-memory documents.
	Location string
	Message  string
	Cause    error
}

func (e *SchemaError) Error() string {
	msg := "schema: " + e.Message
	if e.Location != "" {
		msg = msg + " (" + e.Location + ")"
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

func schemaErrorf(location string, format string, args ...any) *SchemaError {
	return &SchemaError{Location: location, Message: fmt.Sprintf(format, args...)}
}

// Registry is the flat type catalog produced by Parse.
// Read-only after Parse returns; safe for concurrent readers.
type Registry struct {
	types    map[QName]*Type
	elements map[QName]QName // global element declaration -> type reference
	order    []QName
}

func newRegistry() *Registry {
	return &Registry{
		types:    make(map[QName]*Type),
		elements: make(map[QName]QName),
	}
}

// Lookup returns the registered type for (space, local).
func (r *Registry) Lookup(space, local string) (*Type, bool) {
	return r.LookupName(QName{Space: space, Local: local})
}

// LookupName returns the registered type for q. Built-in references resolve
// to a synthetic simple type.
func (r *Registry) LookupName(q QName) (*Type, bool) {
	if IsBuiltin(q) {
		return BuiltinType(q), true
	}
	t, ok := r.types[q]
	return t, ok
}

// ElementType resolves a global element declaration to its type.
func (r *Registry) ElementType(q QName) (*Type, bool) {
	ref, ok := r.elements[q]
	if !ok {
		return nil, false
	}
	return r.LookupName(ref)
}

// Len reports the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// TypeNames returns the registered type names in registration order.
func (r *Registry) TypeNames() []QName {
	out := make([]QName, len(r.order))
	copy(out, r.order)
	return out
}

// register adds a type unless the qualified name is already taken.
// Re-imports of the same document are common; the first definition wins.
func (r *Registry) register(t *Type) {
	if _, exists := r.types[t.Name]; exists {
		return
	}
	r.types[t.Name] = t
	r.order = append(r.order, t.Name)
}

func (r *Registry) registerElement(name, typeRef QName) {
	if _, exists := r.elements[name]; exists {
		return
	}
	r.elements[name] = typeRef
}

// resolve fills every type's effective element sequence and verifies that
// all base and element type references terminate in a registered type or a
// built-in. Called once, after the last document has been merged.
func (r *Registry) resolve() error {
	for _, name := range r.order {
		if err := r.resolveType(r.types[name], make(map[QName]bool)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveType(t *Type, visiting map[QName]bool) error {
	if t.resolved {
		return nil
	}
	if visiting[t.Name] {
		return schemaErrorf("", "cyclic type extension chain at %s", t.Name)
	}
	visiting[t.Name] = true
	defer delete(visiting, t.Name)

	own := make([]Element, 0, len(t.declared))
	for _, el := range t.declared {
		if !el.Ref.IsZero() {
			typeRef, ok := r.elements[el.Ref]
			if !ok {
				return schemaErrorf("", "type %s: element ref %s does not match a global element", t.Name, el.Ref)
			}
			el.Name = el.Ref.Local
			el.Namespace = el.Ref.Space
			el.Type = typeRef
		}
		if !el.Type.IsZero() && !IsBuiltin(el.Type) {
			if _, ok := r.types[el.Type]; !ok {
				return schemaErrorf("", "type %s: element %s references unknown type %s", t.Name, el.Name, el.Type)
			}
		}
		own = append(own, el)
	}

	if t.Base.IsZero() || IsBuiltin(t.Base) {
		t.Elements = own
		t.resolved = true
		return nil
	}

	base, ok := r.types[t.Base]
	if !ok {
		return schemaErrorf("", "type %s: could not find base type %s", t.Name, t.Base)
	}
	if err := r.resolveType(base, visiting); err != nil {
		return err
	}

	if t.Restricts {
		// A restriction restates the content model it keeps.
		t.Elements = own
	} else {
		t.Elements = make([]Element, 0, len(base.Elements)+len(own))
		t.Elements = append(t.Elements, base.Elements...)
		t.Elements = append(t.Elements, own...)
	}
	t.resolved = true
	return nil
}
