package soap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapcall/soapcall/pkg/loader"
	"github.com/soapcall/soapcall/pkg/wsdl"
)

func parseTestWSDL(t *testing.T, name string) *wsdl.Document {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := wsdl.Parse(context.Background(), data, path, loader.New(nil))
	require.NoError(t, err)
	return doc
}

func TestResolveRejectsNonIdentifierNames(t *testing.T) {
	doc := parseTestWSDL(t, "verifyaddress.wsdl")

	for _, name := range []string{"", "not a symbol", "foo-bar", "9lives", "op/name", "verify address"} {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(name, doc, Overrides{})
			var invalid *InvalidNameError
			require.ErrorAs(t, err, &invalid, "with WSDL")
			assert.Equal(t, name, invalid.Name)

			_, err = Resolve(name, nil, Overrides{Endpoint: "http://example.com"})
			require.ErrorAs(t, err, &invalid, "without WSDL")
		})
	}
}

func TestResolveUnknownOperation(t *testing.T) {
	doc := parseTestWSDL(t, "verifyaddress.wsdl")

	_, err := Resolve("no_such_operation", doc, Overrides{})
	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_operation", unknown.Name)
	assert.Contains(t, err.Error(), "no_such_operation")
}

func TestResolveMatchesSnakeCaseAgainstCatalog(t *testing.T) {
	doc := parseTestWSDL(t, "verifyaddress.wsdl")

	op, err := Resolve("verify_address", doc, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "verify_address", op.Name)
	assert.Equal(t, "VerifyAddress", op.WSDLName)
	assert.Equal(t, "http://v1.example.com", op.Namespace)
	assert.Equal(t, "http://v1.example.com/soap", op.Endpoint)

	// The declared spelling works too.
	declared, err := Resolve("VerifyAddress", doc, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "VerifyAddress", declared.WSDLName)
}

func TestSOAPActionPrecedence(t *testing.T) {
	verify := parseTestWSDL(t, "verifyaddress.wsdl")
	auth := parseTestWSDL(t, "authentication.wsdl")

	// Call-time override beats the WSDL-declared action.
	op, err := Resolve("verify_address", verify, Overrides{SOAPAction: "urn:custom"})
	require.NoError(t, err)
	assert.Equal(t, "urn:custom", op.SOAPAction)

	// WSDL-declared action when no override is present.
	op, err = Resolve("verify_address", verify, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "http://v1.example.com/VerifyAddress", op.SOAPAction)

	// Name-derived fallback when the WSDL declares none.
	op, err = Resolve("authenticate", auth, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "authenticate", op.SOAPAction)
}

func TestEndpointPrecedence(t *testing.T) {
	doc := parseTestWSDL(t, "verifyaddress.wsdl")

	op, err := Resolve("verify_address", doc, Overrides{Endpoint: "http://staging.example.com/soap"})
	require.NoError(t, err)
	assert.Equal(t, "http://staging.example.com/soap", op.Endpoint)

	op, err = Resolve("verify_address", doc, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "http://v1.example.com/soap", op.Endpoint)

	_, err = Resolve("anything", nil, Overrides{Namespace: "http://example.com"})
	require.ErrorIs(t, err, ErrNoEndpoint)
}

func TestResolveSchemaLessMode(t *testing.T) {
	op, err := Resolve("authenticate", nil, Overrides{
		Endpoint:  "http://auth.example.com/service",
		Namespace: "http://auth.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "authenticate", op.Name)
	assert.Empty(t, op.WSDLName)
	assert.Equal(t, "authenticate", op.SOAPAction, "falls back to the name-derived action")
	assert.Equal(t, "http://auth.example.com", op.Namespace)

	// No catalog means no validation: any identifier resolves.
	_, err = Resolve("totally_made_up", nil, Overrides{Endpoint: "http://x.example.com"})
	require.NoError(t, err)
}

func TestResolveConcurrent(t *testing.T) {
	doc := parseTestWSDL(t, "verifyaddress.wsdl")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				assert.Equal(t, "VerifyAddress", PascalCase("verify_address"))
				op, err := Resolve("verify_address", doc, Overrides{})
				assert.NoError(t, err)
				assert.Equal(t, "VerifyAddress", op.WSDLName)
			}
		}()
	}
	wg.Wait()
}

func TestPascalCase(t *testing.T) {
	cases := map[string]string{
		"verify_address": "VerifyAddress",
		"authenticate":   "Authenticate",
		"get_user_by_id": "GetUserById",
		"VerifyAddress":  "VerifyAddress",
		"getUser":        "getUser",
		"_private":       "Private",
	}
	for in, want := range cases {
		assert.Equal(t, want, PascalCase(in), in)
	}
}
