// Package format defines the closed set of textual encodings of the
// dataset and builds the data section of a prompt for each of them.
package format

import (
	"errors"
	"fmt"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/prose"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
)

// ErrUnsupportedEncoding is returned for any value outside the five-member
// encoding set.
var ErrUnsupportedEncoding = errors.New("unsupported data encoding")

// Encoding names one of the five textual representations of the dataset.
type Encoding string

const (
	RawCSV           Encoding = "raw_csv"
	CSVWithMetadata  Encoding = "csv_with_metadata"
	EnglishSentences Encoding = "english_sentences"
	JSON             Encoding = "json"
	JSONWithMetadata Encoding = "json_with_metadata"
)

// All returns the five encodings in enumeration order.
func All() []Encoding {
	return []Encoding{RawCSV, CSVWithMetadata, EnglishSentences, JSON, JSONWithMetadata}
}

// Parse validates a wire-format encoding name.
func Parse(s string) (Encoding, error) {
	switch Encoding(s) {
	case RawCSV, CSVWithMetadata, EnglishSentences, JSON, JSONWithMetadata:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
}

// Selector builds the data section of a prompt for a given encoding. It is
// stateless; all content comes from the store and the prose renderer.
type Selector struct {
	store    *store.Store
	renderer *prose.Renderer
}

func NewSelector(s *store.Store, r *prose.Renderer) *Selector {
	return &Selector{store: s, renderer: r}
}

// DataSection returns the data portion of the prompt for enc: a short
// header sentence plus the rendered text. An encoding outside the closed
// set fails with ErrUnsupportedEncoding and never returns partial text.
func (s *Selector) DataSection(enc Encoding) (string, error) {
	switch enc {
	case RawCSV:
		csvData, err := s.store.AllRawText()
		if err != nil {
			return "", err
		}
		return "Here is the data in CSV format:\n\n" + csvData, nil

	case CSVWithMetadata:
		metadata, err := s.store.MetadataJSON()
		if err != nil {
			return "", err
		}
		csvData, err := s.store.AllRawText()
		if err != nil {
			return "", err
		}
		return "Here is the database schema metadata:\n\n" + metadata +
			"\n\nHere is the data in CSV format:\n\n" + csvData, nil

	case EnglishSentences:
		english, err := s.renderer.RenderAll()
		if err != nil {
			return "", err
		}
		return "Here is the e-commerce data described in natural language:\n\n" + english, nil

	case JSON:
		jsonData, err := s.store.AllStructuredText()
		if err != nil {
			return "", err
		}
		return "Here is the data in JSON format:\n\n" + jsonData, nil

	case JSONWithMetadata:
		metadata, err := s.store.MetadataJSON()
		if err != nil {
			return "", err
		}
		jsonData, err := s.store.AllStructuredText()
		if err != nil {
			return "", err
		}
		return "Here is the database schema metadata:\n\n" + metadata +
			"\n\nHere is the data in JSON format:\n\n" + jsonData, nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}
}
