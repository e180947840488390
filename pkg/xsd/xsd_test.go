package xsd

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapLoader serves schema documents from memory.
type mapLoader map[string][]byte

func (m mapLoader) Load(_ context.Context, location string) ([]byte, error) {
	data, ok := m[location]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", location)
	}
	return data, nil
}

func schemaDoc(t *testing.T, location, xml string) Doc {
	t.Helper()
	doc, err := ReadDocument([]byte(xml))
	require.NoError(t, err)
	require.NotNil(t, doc.Root())
	return Doc{Location: location, Root: doc.Root()}
}

func parseOne(t *testing.T, xml string) *Registry {
	t.Helper()
	r, err := Parse(context.Background(), nil, schemaDoc(t, "test.xsd", xml))
	require.NoError(t, err)
	return r
}

const personSchema = `
<xsd:schema targetNamespace="http://example.com/people"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            xmlns:tns="http://example.com/people">
  <xsd:complexType name="Person">
    <xsd:sequence>
      <xsd:element name="firstname" type="xsd:string"/>
      <xsd:element name="lastname" type="xsd:string" nillable="true"/>
      <xsd:element name="age" type="xsd:int" minOccurs="0"/>
    </xsd:sequence>
  </xsd:complexType>
  <xsd:complexType name="Employee">
    <xsd:complexContent>
      <xsd:extension base="tns:Person">
        <xsd:sequence>
          <xsd:element name="employeeId" type="xsd:string"/>
          <xsd:element name="department" type="xsd:string"/>
        </xsd:sequence>
      </xsd:extension>
    </xsd:complexContent>
  </xsd:complexType>
  <xsd:simpleType name="Status">
    <xsd:restriction base="xsd:string">
      <xsd:enumeration value="active"/>
      <xsd:enumeration value="retired"/>
    </xsd:restriction>
  </xsd:simpleType>
</xsd:schema>`

func TestParseRegistersTypes(t *testing.T) {
	r := parseOne(t, personSchema)

	person, ok := r.Lookup("http://example.com/people", "Person")
	require.True(t, ok)
	assert.Equal(t, Complex, person.Kind)
	require.Len(t, person.Elements, 3)
	assert.Equal(t, "firstname", person.Elements[0].Name)
	assert.Equal(t, QName{Space: Namespace, Local: "string"}, person.Elements[0].Type)
	assert.True(t, person.Elements[1].Nillable)
	assert.Equal(t, 0, person.Elements[2].MinOccurs)

	status, ok := r.Lookup("http://example.com/people", "Status")
	require.True(t, ok)
	assert.Equal(t, Simple, status.Kind)
	assert.Equal(t, QName{Space: Namespace, Local: "string"}, status.Base)
}

func TestExtensionPrependsBaseElements(t *testing.T) {
	r := parseOne(t, personSchema)

	employee, ok := r.Lookup("http://example.com/people", "Employee")
	require.True(t, ok)

	// Base elements first, in base order, then the extension's own.
	names := make([]string, 0, len(employee.Elements))
	for _, el := range employee.Elements {
		names = append(names, el.Name)
	}
	assert.Equal(t, []string{"firstname", "lastname", "age", "employeeId", "department"}, names)
}

func TestRestrictionReplacesBaseElements(t *testing.T) {
	r := parseOne(t, `
<xsd:schema targetNamespace="http://example.com/r"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            xmlns:tns="http://example.com/r">
  <xsd:complexType name="Full">
    <xsd:sequence>
      <xsd:element name="a" type="xsd:string"/>
      <xsd:element name="b" type="xsd:string"/>
    </xsd:sequence>
  </xsd:complexType>
  <xsd:complexType name="Narrow">
    <xsd:complexContent>
      <xsd:restriction base="tns:Full">
        <xsd:sequence>
          <xsd:element name="a" type="xsd:string"/>
        </xsd:sequence>
      </xsd:restriction>
    </xsd:complexContent>
  </xsd:complexType>
</xsd:schema>`)

	narrow, ok := r.Lookup("http://example.com/r", "Narrow")
	require.True(t, ok)
	require.Len(t, narrow.Elements, 1)
	assert.Equal(t, "a", narrow.Elements[0].Name)
}

func TestChoiceAndAllFlattenInDeclarationOrder(t *testing.T) {
	r := parseOne(t, `
<xsd:schema targetNamespace="http://example.com/g"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:complexType name="WithChoice">
    <xsd:choice>
      <xsd:element name="x" type="xsd:string"/>
      <xsd:element name="y" type="xsd:string"/>
    </xsd:choice>
  </xsd:complexType>
  <xsd:complexType name="WithAll">
    <xsd:all>
      <xsd:element name="second" type="xsd:string"/>
      <xsd:element name="first" type="xsd:string"/>
    </xsd:all>
  </xsd:complexType>
  <xsd:complexType name="Nested">
    <xsd:sequence>
      <xsd:element name="head" type="xsd:string"/>
      <xsd:choice>
        <xsd:element name="left" type="xsd:string"/>
        <xsd:element name="right" type="xsd:string"/>
      </xsd:choice>
      <xsd:element name="tail" type="xsd:string"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`)

	withChoice, _ := r.Lookup("http://example.com/g", "WithChoice")
	require.Len(t, withChoice.Elements, 2)
	assert.Equal(t, "x", withChoice.Elements[0].Name)

	// "all" keeps declaration order; the unordered semantic is dropped.
	withAll, _ := r.Lookup("http://example.com/g", "WithAll")
	require.Len(t, withAll.Elements, 2)
	assert.Equal(t, "second", withAll.Elements[0].Name)
	assert.Equal(t, "first", withAll.Elements[1].Name)

	nested, _ := r.Lookup("http://example.com/g", "Nested")
	names := []string{}
	for _, el := range nested.Elements {
		names = append(names, el.Name)
	}
	assert.Equal(t, []string{"head", "left", "right", "tail"}, names)
}

func TestUnboundedOccurs(t *testing.T) {
	r := parseOne(t, `
<xsd:schema targetNamespace="http://example.com/o"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:complexType name="List">
    <xsd:sequence>
      <xsd:element name="item" type="xsd:string" maxOccurs="unbounded"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`)

	list, _ := r.Lookup("http://example.com/o", "List")
	require.Len(t, list.Elements, 1)
	assert.Equal(t, Unbounded, list.Elements[0].MaxOccurs)
}

func TestFirstDefinitionWins(t *testing.T) {
	first := `
<xsd:schema targetNamespace="http://example.com/dup"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:complexType name="Thing">
    <xsd:sequence>
      <xsd:element name="original" type="xsd:string"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`
	second := `
<xsd:schema targetNamespace="http://example.com/dup"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:complexType name="Thing">
    <xsd:sequence>
      <xsd:element name="override" type="xsd:string"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`

	r, err := Parse(context.Background(), nil,
		schemaDoc(t, "a.xsd", first),
		schemaDoc(t, "b.xsd", second))
	require.NoError(t, err)

	thing, ok := r.Lookup("http://example.com/dup", "Thing")
	require.True(t, ok)
	require.Len(t, thing.Elements, 1)
	assert.Equal(t, "original", thing.Elements[0].Name)
}

func TestUnresolvableBaseFailsWholeParse(t *testing.T) {
	_, err := Parse(context.Background(), nil, schemaDoc(t, "bad.xsd", `
<xsd:schema targetNamespace="http://example.com/bad"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            xmlns:tns="http://example.com/bad">
  <xsd:complexType name="Orphan">
    <xsd:complexContent>
      <xsd:extension base="tns:Missing">
        <xsd:sequence>
          <xsd:element name="a" type="xsd:string"/>
        </xsd:sequence>
      </xsd:extension>
    </xsd:complexContent>
  </xsd:complexType>
</xsd:schema>`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "Missing")
}

func TestCyclicExtensionRejected(t *testing.T) {
	_, err := Parse(context.Background(), nil, schemaDoc(t, "cycle.xsd", `
<xsd:schema targetNamespace="http://example.com/cycle"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            xmlns:tns="http://example.com/cycle">
  <xsd:complexType name="A">
    <xsd:complexContent>
      <xsd:extension base="tns:B"/>
    </xsd:complexContent>
  </xsd:complexType>
  <xsd:complexType name="B">
    <xsd:complexContent>
      <xsd:extension base="tns:A"/>
    </xsd:complexContent>
  </xsd:complexType>
</xsd:schema>`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Message, "cyclic")
}

func TestImportMergesReferencedDocument(t *testing.T) {
	ld := mapLoader{
		"http://example.com/common.xsd": []byte(`
<xsd:schema targetNamespace="http://example.com/common"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:complexType name="Address">
    <xsd:sequence>
      <xsd:element name="street" type="xsd:string"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`),
	}

	r, err := Parse(context.Background(), ld, schemaDoc(t, "http://example.com/main.xsd", `
<xsd:schema targetNamespace="http://example.com/main"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            xmlns:common="http://example.com/common">
  <xsd:import namespace="http://example.com/common" schemaLocation="common.xsd"/>
  <xsd:complexType name="Order">
    <xsd:sequence>
      <xsd:element name="shipTo" type="common:Address"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`))
	require.NoError(t, err)

	_, ok := r.Lookup("http://example.com/common", "Address")
	assert.True(t, ok, "imported type should be registered")

	order, ok := r.Lookup("http://example.com/main", "Order")
	require.True(t, ok)
	assert.Equal(t, QName{Space: "http://example.com/common", Local: "Address"}, order.Elements[0].Type)
}

func TestIncludeAdoptsTargetNamespace(t *testing.T) {
	ld := mapLoader{
		"http://example.com/chameleon.xsd": []byte(`
<xsd:schema xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:complexType name="Fragment">
    <xsd:sequence>
      <xsd:element name="bit" type="xsd:string"/>
    </xsd:sequence>
  </xsd:complexType>
</xsd:schema>`),
	}

	r, err := Parse(context.Background(), ld, schemaDoc(t, "http://example.com/host.xsd", `
<xsd:schema targetNamespace="http://example.com/host"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:include schemaLocation="chameleon.xsd"/>
</xsd:schema>`))
	require.NoError(t, err)

	_, ok := r.Lookup("http://example.com/host", "Fragment")
	assert.True(t, ok, "chameleon include should adopt the including namespace")
}

func TestUnreachableImportSurfacesLoaderError(t *testing.T) {
	_, err := Parse(context.Background(), mapLoader{}, schemaDoc(t, "http://example.com/main.xsd", `
<xsd:schema targetNamespace="http://example.com/main"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:import namespace="http://example.com/gone" schemaLocation="gone.xsd"/>
</xsd:schema>`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "http://example.com/gone.xsd", schemaErr.Location)
}

func TestGlobalElementWithInlineType(t *testing.T) {
	r := parseOne(t, `
<xsd:schema targetNamespace="http://example.com/inline"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <xsd:element name="login">
    <xsd:complexType>
      <xsd:sequence>
        <xsd:element name="user" type="xsd:string"/>
        <xsd:element name="password" type="xsd:string"/>
      </xsd:sequence>
    </xsd:complexType>
  </xsd:element>
</xsd:schema>`)

	login, ok := r.ElementType(QName{Space: "http://example.com/inline", Local: "login"})
	require.True(t, ok)
	assert.Equal(t, Complex, login.Kind)
	require.Len(t, login.Elements, 2)
	assert.Equal(t, "user", login.Elements[0].Name)
}

func TestElementRefResolvesAfterMerge(t *testing.T) {
	// The ref target is declared after its use; forward references must
	// still resolve.
	r := parseOne(t, `
<xsd:schema targetNamespace="http://example.com/fwd"
            xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            xmlns:tns="http://example.com/fwd">
  <xsd:complexType name="Wrapper">
    <xsd:sequence>
      <xsd:element ref="tns:token"/>
    </xsd:sequence>
  </xsd:complexType>
  <xsd:element name="token" type="xsd:string"/>
</xsd:schema>`)

	wrapper, ok := r.Lookup("http://example.com/fwd", "Wrapper")
	require.True(t, ok)
	require.Len(t, wrapper.Elements, 1)
	assert.Equal(t, "token", wrapper.Elements[0].Name)
	assert.Equal(t, QName{Space: Namespace, Local: "string"}, wrapper.Elements[0].Type)
}

func TestBuiltinLookup(t *testing.T) {
	r := parseOne(t, `<xsd:schema xmlns:xsd="http://www.w3.org/2001/XMLSchema"/>`)

	for _, name := range []string{"string", "int", "boolean", "dateTime", "base64Binary"} {
		typ, ok := r.Lookup(Namespace, name)
		require.True(t, ok, name)
		assert.Equal(t, Simple, typ.Kind)
	}
}
