// Package cli implements the soapcall command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soapcall/soapcall/pkg/config"
	"github.com/soapcall/soapcall/pkg/loader"
	"github.com/soapcall/soapcall/pkg/logging"
	"github.com/soapcall/soapcall/pkg/soap"
	"github.com/soapcall/soapcall/pkg/wsdl"
)

var rootCmd = &cobra.Command{
	Use:           "soapcall",
	Short:         "Call SOAP services from a WSDL or a bare endpoint",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig    string
	flagWSDL      string
	flagEndpoint  string
	flagNamespace string
	flagVersion   string
	flagHeaders   []string
	flagLogLevel  string
	flagLogFormat string
	flagTimeout   time.Duration
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to a YAML profile")
	pf.StringVarP(&flagWSDL, "wsdl", "w", "", "WSDL location (URL or file path)")
	pf.StringVarP(&flagEndpoint, "endpoint", "e", "", "Endpoint URL override")
	pf.StringVarP(&flagNamespace, "namespace", "n", "", "Target namespace override")
	pf.StringVar(&flagVersion, "soap-version", "", "SOAP version: 1.1 or 1.2")
	pf.StringArrayVarP(&flagHeaders, "header", "H", nil, "Extra HTTP header (Key: Value); repeatable")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format: text or json")
	pf.DurationVar(&flagTimeout, "timeout", 30*time.Second, "HTTP timeout for calls")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// profile merges the config file (when given) with command line flags;
// flags win.
func profile() (*config.Profile, error) {
	p := &config.Profile{}
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if flagWSDL != "" {
		p.WSDL = flagWSDL
	}
	if flagEndpoint != "" {
		p.Endpoint = flagEndpoint
	}
	if flagNamespace != "" {
		p.Namespace = flagNamespace
	}
	if flagVersion != "" {
		p.SOAPVersion = flagVersion
	}
	if p.LogLevel == "" {
		p.LogLevel = flagLogLevel
	}
	if p.LogFormat == "" {
		p.LogFormat = flagLogFormat
	}
	return p, nil
}

func newLogger(p *config.Profile) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(p.LogLevel),
		Format: logging.ParseFormat(p.LogFormat),
	})
}

// loadWSDL fetches and parses the profile's WSDL through a caching loader.
// Returns nil when no WSDL is configured (schema-less mode).
func loadWSDL(ctx context.Context, p *config.Profile, ld loader.Loader) (*wsdl.Document, error) {
	if p.WSDL == "" {
		return nil, nil
	}
	data, err := ld.Load(ctx, p.WSDL)
	if err != nil {
		return nil, err
	}
	return wsdl.Parse(ctx, data, p.WSDL, ld)
}

func newCachingLoader() loader.Loader {
	return loader.NewCache(loader.New(&http.Client{Timeout: flagTimeout}))
}

// buildClient assembles a soap.Client from the merged profile.
func buildClient(ctx context.Context, p *config.Profile, logger *slog.Logger) (*soap.Client, error) {
	ld := newCachingLoader()
	doc, err := loadWSDL(ctx, p, ld)
	if err != nil {
		return nil, err
	}

	opts := []soap.Option{
		soap.WithLogger(logger),
		soap.WithHTTPClient(&http.Client{Timeout: flagTimeout}),
	}
	if doc != nil {
		opts = append(opts, soap.WithWSDL(doc))
	}
	if p.Endpoint != "" {
		opts = append(opts, soap.WithEndpoint(p.Endpoint))
	}
	if p.Namespace != "" {
		opts = append(opts, soap.WithNamespace(p.Namespace))
	}
	if p.SOAPVersion == "1.2" {
		opts = append(opts, soap.WithVersion(soap.V12))
	}
	for key, value := range p.Headers {
		opts = append(opts, soap.WithHeader(key, value))
	}
	for _, h := range flagHeaders {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q: expected Key: Value", h)
		}
		opts = append(opts, soap.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
	}
	return soap.New(opts...), nil
}
