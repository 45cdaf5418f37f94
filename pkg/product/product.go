// Package product defines the structured product description extracted from
// a sales page and the fallback literals used when extraction comes up empty.
package product

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Field limits.
const (
	MaxDescriptionLength = 500
	MaxBenefits          = 10
	MaxTestimonials      = 5
)

// ErrorKind classifies why an extraction failed.
type ErrorKind string

const (
	// ErrorKindFetch covers invalid URLs, network failures, non-2xx statuses
	// and timeouts.
	ErrorKindFetch ErrorKind = "fetch"
	// ErrorKindParse covers payloads that cannot be turned into a document.
	ErrorKindParse ErrorKind = "parse"
)

// ErrorInfo describes a failed extraction.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Fields holds the six semantic fields produced by the extractor chain.
type Fields struct {
	Title        string   `json:"title" yaml:"title" validate:"required"`
	Price        string   `json:"price" yaml:"price" validate:"required"`
	Description  string   `json:"description" yaml:"description" validate:"required,max=500"`
	Benefits     []string `json:"benefits" yaml:"benefits" validate:"max=10,dive,required"`
	Testimonials []string `json:"testimonials" yaml:"testimonials" validate:"max=5,dive,required"`
	CallToAction string   `json:"cta" yaml:"cta" validate:"required"`
}

// Result is an extraction result. Treat it as immutable: Clone before
// modifying slices obtained from a shared Result.
type Result struct {
	Fields      `yaml:",inline"`
	SourceURL   string     `json:"url" yaml:"url"`
	FinalURL    string     `json:"finalUrl" yaml:"finalUrl"`
	ExtractedAt time.Time  `json:"extractedAt" yaml:"extractedAt"`
	Error       *ErrorInfo `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Error != nil
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	c := r
	c.Benefits = cloneStrings(r.Benefits)
	c.Testimonials = cloneStrings(r.Testimonials)
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return c
}

var validate = validator.New()

// Validate checks the structural invariants every result must satisfy:
// required strings are non-blank and the list and length bounds hold.
func (r Result) Validate() error {
	if err := validate.Struct(r.Fields); err != nil {
		return fmt.Errorf("invalid result for %s: %w", r.SourceURL, err)
	}
	for name, v := range map[string]string{
		"title":       r.Title,
		"price":       r.Price,
		"description": r.Description,
		"cta":         r.CallToAction,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("invalid result for %s: %s is blank", r.SourceURL, name)
		}
	}
	return nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
