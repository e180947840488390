// Package soap resolves, builds, dispatches, and decodes SOAP calls.
//
// The pipeline is: Resolve maps an operation identifier (optionally against
// a parsed WSDL catalog) to a SOAP action and endpoint; BuildEnvelope turns
// an ordered parameter structure into a namespace-correct envelope; Client
// posts it over HTTP; Decode splits the (possibly MIME-multipart) response
// into header, body, and attachments.
//
// # Calling with a WSDL
//
//	client, err := soap.NewFromWSDL(ctx, "https://example.com/service?wsdl", nil)
//	if err != nil { ... }
//	resp, err := client.Call(ctx, "verify_address", soap.M(
//	    soap.P("street", soap.Scalar("1 Main St")),
//	    soap.P("zip", soap.Scalar("12345")),
//	))
//
// # Schema-less mode
//
// Without a WSDL any valid operation identifier is accepted; endpoint and
// namespace come from options:
//
//	client := soap.New(
//	    soap.WithEndpoint("https://example.com/auth"),
//	    soap.WithNamespace("http://v1.example.com"),
//	)
//	resp, err := client.Call(ctx, "authenticate", params)
//
// The SOAP action falls back to the bare operation name when neither a
// call-time override nor the WSDL supplies one.
//
// Errors are typed per failing phase: *InvalidNameError and
// *UnknownOperationError before any network activity, *HTTPError for
// transport and status failures (carrying the original response body),
// *DecodeError for malformed responses, *FaultError for SOAP Faults.
package soap
