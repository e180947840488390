// Package config loads client profiles: the endpoint, namespace, WSDL
// location, and headers a CLI invocation should use, from a YAML file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is one client configuration.
type Profile struct {
	// WSDL is the WSDL location (URL or path); optional.
	WSDL string `yaml:"wsdl,omitempty"`
	// Endpoint overrides (or, without a WSDL, supplies) the target URL.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Namespace overrides the target namespace; required without a WSDL.
	Namespace string `yaml:"namespace,omitempty"`
	// SOAPVersion is "1.1" (default) or "1.2".
	SOAPVersion string `yaml:"soapVersion,omitempty"`
	// Headers are extra HTTP headers sent with every call.
	Headers map[string]string `yaml:"headers,omitempty"`
	// LogLevel and LogFormat configure CLI logging.
	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"`
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile from YAML bytes. Unknown keys are rejected so
// typos surface instead of silently doing nothing.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &p, nil
}
