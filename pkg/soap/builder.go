package soap

import (
	"github.com/beevik/etree"
)

// Namespace prefixes used in generated envelopes. Each is declared exactly
// once, on the Envelope element.
const (
	envPrefix = "soapenv"
	tnsPrefix = "tns"
)

// BuildEnvelope serializes an operation call into a SOAP envelope.
//
// The body element is the PascalCase form of the operation identifier,
// prefixed with the operation's target namespace under tns. Params serialize
// recursively in the exact order given: mapping keys become child elements,
// scalars become text, sequences repeat the enclosing element. A non-empty
// header mapping serializes the same way under the envelope Header.
func BuildEnvelope(op *ResolvedOperation, params Mapping, header Mapping, version Version) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement(envPrefix + ":Envelope")
	env.CreateAttr("xmlns:"+envPrefix, version.EnvelopeNamespace())
	if op.Namespace != "" {
		env.CreateAttr("xmlns:"+tnsPrefix, op.Namespace)
	}

	if len(header) > 0 {
		headerEl := env.CreateElement(envPrefix + ":Header")
		for _, pair := range header {
			writeValue(headerEl, pair.Key, pair.Value, op.Namespace != "")
		}
	}

	body := env.CreateElement(envPrefix + ":Body")
	opEl := body.CreateElement(qualify(PascalCase(op.Name), op.Namespace != ""))
	for _, pair := range params {
		writeValue(opEl, pair.Key, pair.Value, op.Namespace != "")
	}

	return doc.WriteToString()
}

func qualify(name string, qualified bool) string {
	if qualified {
		return tnsPrefix + ":" + name
	}
	return name
}

func writeValue(parent *etree.Element, key string, v Value, qualified bool) {
	switch val := v.(type) {
	case Sequence:
		// A sequence repeats the element once per item.
		for _, item := range val {
			writeValue(parent, key, item, qualified)
		}
	case Mapping:
		el := parent.CreateElement(qualify(key, qualified))
		for _, pair := range val {
			writeValue(el, pair.Key, pair.Value, qualified)
		}
	case Scalar:
		el := parent.CreateElement(qualify(key, qualified))
		el.SetText(string(val))
	case nil:
		parent.CreateElement(qualify(key, qualified))
	}
}
