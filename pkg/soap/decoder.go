package soap

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/beevik/etree"

	"github.com/soapcall/soapcall/pkg/xsd"
)

// Attachment is one non-envelope part of a multipart response (or of an
// outgoing multipart request). Immutable once decoded.
type Attachment struct {
	// ContentID identifies the attachment, unique within a response.
	// Decoded from the part's Content-ID header with angle brackets
	// stripped.
	ContentID string
	// ContentType is the part's declared media type.
	ContentType string
	// Content is the raw part body.
	Content []byte
}

// Response is a decoded SOAP response: the envelope's header and body XML
// plus any multipart attachments. The decoder retains no references; the
// caller owns the Response outright.
type Response struct {
	// Header is the inner XML of the envelope Header element, empty when
	// the envelope has none.
	Header string
	// Body is the inner XML of the envelope Body element.
	Body string
	// Attachments holds the non-envelope multipart parts, in wire order.
	Attachments []Attachment
	// Fault is set when the body carries a SOAP Fault, in either the 1.1
	// or 1.2 shape.
	Fault *FaultError

	raw []byte
}

// Multipart reports whether the response carried attachments.
func (r *Response) Multipart() bool {
	return len(r.Attachments) > 0
}

// Envelope returns the raw envelope bytes as received.
func (r *Response) Envelope() []byte {
	return r.raw
}

// Find extracts the text at an etree path inside the response body, e.g.
// "//VerifyAddressResponse/status". Returns "" when the path matches
// nothing.
func (r *Response) Find(path string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<body>" + r.Body + "</body>"); err != nil {
		return ""
	}
	el := doc.FindElement(path)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// Decode turns raw HTTP response bytes into a Response.
//
// A multipart/related (or any multipart) content type is split on its
// boundary: the first part is the SOAP envelope, the rest become
// attachments keyed by Content-ID. Anything else is treated as a bare
// envelope. A malformed or unterminated boundary fails with a *DecodeError;
// no partial Response is returned.
func Decode(contentType string, body []byte) (*Response, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		return decodeMultipart(params, body)
	}
	return decodeEnvelope(body, nil)
}

func decodeMultipart(params map[string]string, body []byte) (*Response, error) {
	boundary := params["boundary"]
	if boundary == "" {
		return nil, &DecodeError{Message: "multipart content type is missing its boundary parameter"}
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	var envelope []byte
	var attachments []Attachment
	for i := 0; ; i++ {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Message: "malformed multipart body", Cause: err}
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return nil, &DecodeError{Message: "reading multipart part", Cause: err}
		}
		if i == 0 {
			envelope = content
			continue
		}
		attachments = append(attachments, Attachment{
			ContentID:   strings.Trim(part.Header.Get("Content-Id"), "<>"),
			ContentType: part.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	if envelope == nil {
		return nil, &DecodeError{Message: "multipart body has no parts"}
	}
	return decodeEnvelope(envelope, attachments)
}

// decodeEnvelope splits the envelope into header and body inner XML and
// extracts a Fault when one is present.
func decodeEnvelope(envelope []byte, attachments []Attachment) (*Response, error) {
	doc, err := xsd.ReadDocument(envelope)
	if err != nil {
		return nil, &DecodeError{Message: "malformed envelope XML", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &DecodeError{Message: "empty envelope"}
	}
	if root.Tag != "Envelope" {
		return nil, &DecodeError{Message: "expected an Envelope root element, got <" + root.Tag + ">"}
	}

	resp := &Response{
		Attachments: attachments,
		raw:         envelope,
	}
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "Header":
			resp.Header = innerXML(child)
		case "Body":
			resp.Body = innerXML(child)
			resp.Fault = parseFault(child)
		}
	}
	if resp.Body == "" && findChild(root, "Body") == nil {
		return nil, &DecodeError{Message: "envelope has no Body element"}
	}
	return resp, nil
}

// parseFault reads a Fault child of the Body in either the SOAP 1.1 shape
// (faultcode/faultstring/detail) or the 1.2 shape (Code/Value, Reason/Text,
// Detail).
func parseFault(body *etree.Element) *FaultError {
	fault := findChild(body, "Fault")
	if fault == nil {
		return nil
	}

	f := &FaultError{}
	if code := findChild(fault, "faultcode"); code != nil {
		f.Code = strings.TrimSpace(code.Text())
		if msg := findChild(fault, "faultstring"); msg != nil {
			f.Message = strings.TrimSpace(msg.Text())
		}
		if detail := findChild(fault, "detail"); detail != nil {
			f.Detail = innerXML(detail)
		}
		return f
	}

	if code := findChild(fault, "Code"); code != nil {
		if value := findChild(code, "Value"); value != nil {
			f.Code = strings.TrimSpace(value.Text())
		}
	}
	if reason := findChild(fault, "Reason"); reason != nil {
		if text := findChild(reason, "Text"); text != nil {
			f.Message = strings.TrimSpace(text.Text())
		}
	}
	if detail := findChild(fault, "Detail"); detail != nil {
		f.Detail = innerXML(detail)
	}
	if f.Code == "" && f.Message == "" {
		f.Code = "Unknown"
		f.Message = "unrecognized fault shape"
	}
	return f
}

func findChild(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// innerXML serializes an element's children (elements and character data)
// without the element itself, mirroring encoding/xml's ",innerxml".
func innerXML(el *etree.Element) string {
	var out strings.Builder
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.Element:
			doc := etree.NewDocumentWithRoot(t.Copy())
			s, err := doc.WriteToString()
			if err == nil {
				out.WriteString(s)
			}
		case *etree.CharData:
			out.WriteString(t.Data)
		}
	}
	return strings.TrimSpace(out.String())
}
