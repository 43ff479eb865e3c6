// Package openapi derives mock responses from an OpenAPI v3 document.
// A loaded Source can be turned into a resolver: requests whose path and
// method match a documented operation are answered with that operation's
// example response, everything else passes through.
package openapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/rs/zerolog"

	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/internal/logger"
)

// HTTPClient is the minimal surface needed to fetch a remote document.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source holds a parsed OpenAPI v3 document.
type Source struct {
	document   libopenapi.Document
	model      *libopenapi.DocumentModel[v3.Document]
	httpClient HTTPClient
	log        zerolog.Logger
}

func NewSource() *Source {
	return &Source{
		httpClient: http.DefaultClient,
		log:        logger.ForComponent("openapi"),
	}
}

func NewSourceWithClient(client HTTPClient) *Source {
	s := NewSource()
	s.httpClient = client
	return s
}

// LoadFromURL fetches and parses a document. file:// URIs read from the
// local filesystem; anything else goes through the HTTP client.
func (s *Source) LoadFromURL(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "parsing document URL")
	}

	if parsedURL.Scheme == "file" {
		filePath := parsedURL.Path
		// file://host/path with a non-empty host means host+path is a
		// relative path.
		if parsedURL.Host != "" {
			filePath = parsedURL.Host + parsedURL.Path
		}
		if !filepath.IsAbs(filePath) {
			filePath, err = filepath.Abs(filePath)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "resolving absolute path")
			}
		}
		return s.LoadFromFile(filePath)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, "creating request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, "fetching OpenAPI document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrorTypeNetwork, "unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, "reading response body")
	}

	return s.LoadFromBytes(body)
}

// LoadFromFile parses a document from a local file.
func (s *Source) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "reading document file").
			WithContext("path", filePath)
	}
	return s.LoadFromBytes(data)
}

func (s *Source) LoadFromBytes(data []byte) error {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSpec, "parsing OpenAPI document")
	}

	model, errs := document.BuildV3Model()
	if len(errs) > 0 {
		return errors.Newf(errors.ErrorTypeSpec, "building v3 model: %v", errs)
	}

	s.document = document
	s.model = model
	return nil
}

// Title returns the document's info title, or "" when nothing is loaded.
func (s *Source) Title() string {
	if s.model == nil || s.model.Model.Info == nil {
		return ""
	}
	return s.model.Model.Info.Title
}
