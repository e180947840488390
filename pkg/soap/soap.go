package soap

// Version selects the SOAP protocol version for an envelope.
type Version string

// Supported SOAP versions.
const (
	V11 Version = "1.1"
	V12 Version = "1.2"
)

// SOAP envelope namespace URIs.
const (
	Namespace11 = "http://schemas.xmlsoap.org/soap/envelope/"
	Namespace12 = "http://www.w3.org/2003/05/soap-envelope"
)

// Content types per SOAP version.
const (
	ContentType11 = "text/xml; charset=utf-8"
	ContentType12 = "application/soap+xml; charset=utf-8"
)

// EnvelopeNamespace returns the envelope namespace URI for a version.
func (v Version) EnvelopeNamespace() string {
	if v == V12 {
		return Namespace12
	}
	return Namespace11
}

// ContentType returns the request content type for a version.
func (v Version) ContentType() string {
	if v == V12 {
		return ContentType12
	}
	return ContentType11
}
