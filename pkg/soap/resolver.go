package soap

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/soapcall/soapcall/pkg/wsdl"
)

// identifierPattern accepts symbolic operation names: verify_address,
// authenticate, GetUser. Anything with spaces, punctuation, or a leading
// digit is rejected before any network activity.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Overrides carries call-time or global values that take precedence over
// whatever the WSDL declares. Empty fields mean "not overridden".
type Overrides struct {
	Endpoint   string
	Namespace  string
	SOAPAction string
}

// ResolvedOperation is everything needed to build and dispatch one call.
type ResolvedOperation struct {
	// Name is the identifier the caller used, e.g. verify_address.
	Name string
	// WSDLName is the catalog name the identifier matched, when a WSDL was
	// present; empty in schema-less mode.
	WSDLName string
	// SOAPAction is the action after applying the precedence chain:
	// override, then WSDL-declared, then derived from the name.
	SOAPAction string
	// Endpoint is the target URL: override first, then the WSDL's address.
	Endpoint string
	// Namespace is the operation's target namespace.
	Namespace string
	// Style is "document" or "rpc"; defaults to "document".
	Style string
}

// Resolve maps an operation identifier to a dispatchable operation.
//
// With a WSDL document the identifier must match the catalog (exactly, or
// via its PascalCase/camelCase form), otherwise *UnknownOperationError.
// Without one, any valid identifier is accepted and namespace plus endpoint
// must come entirely from the overrides.
func Resolve(name string, doc *wsdl.Document, ov Overrides) (*ResolvedOperation, error) {
	if !identifierPattern.MatchString(name) {
		return nil, &InvalidNameError{Name: name}
	}

	op := &ResolvedOperation{
		Name:  name,
		Style: "document",
	}

	var declaredAction string
	if doc != nil {
		declared, ok := lookupOperation(doc, name)
		if !ok {
			return nil, &UnknownOperationError{Name: name}
		}
		op.WSDLName = declared.Name
		declaredAction = declared.SOAPAction
		if declared.Style != "" {
			op.Style = declared.Style
		}
		op.Namespace = doc.TargetNamespace()
		op.Endpoint = doc.Endpoint()
	}

	switch {
	case ov.SOAPAction != "":
		op.SOAPAction = ov.SOAPAction
	case declaredAction != "":
		op.SOAPAction = declaredAction
	default:
		// Last-resort fallback so a client can function from just an
		// endpoint and namespace with zero schema knowledge.
		op.SOAPAction = name
	}

	if ov.Endpoint != "" {
		op.Endpoint = ov.Endpoint
	}
	if op.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	if ov.Namespace != "" {
		op.Namespace = ov.Namespace
	}

	return op, nil
}

// lookupOperation matches an identifier against the catalog, trying the
// exact spelling first, then the PascalCase and camelCase forms of a
// snake_case identifier.
func lookupOperation(doc *wsdl.Document, name string) (*wsdl.Operation, bool) {
	if op, ok := doc.Lookup(name); ok {
		return op, true
	}
	pascal := PascalCase(name)
	if op, ok := doc.Lookup(pascal); ok {
		return op, true
	}
	if len(pascal) > 0 {
		camel := lowerFirst(pascal)
		if op, ok := doc.Lookup(camel); ok {
			return op, true
		}
	}
	return nil, false
}

// PascalCase converts a snake_case identifier to its PascalCase element
// name: verify_address becomes VerifyAddress. Segments that already carry an
// upper-case letter pass through unchanged.
// Safe for concurrent use.
func PascalCase(name string) string {
	// cases.Title returns a stateful Caser that must not be shared across
	// goroutines.
	titleCaser := cases.Title(language.English)
	out := ""
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '_' {
			seg := name[start:i]
			start = i + 1
			if seg == "" {
				continue
			}
			if hasUpper(seg) {
				out += seg
			} else {
				out += titleCaser.String(seg)
			}
		}
	}
	return out
}

func hasUpper(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]+'a'-'A') + s[1:]
}
