package product

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/linkmagico/pkg/textnorm"
)

// ErrInvalidDefaults is returned when fallback literals would produce a
// result that breaks the field bounds.
var ErrInvalidDefaults = errors.New("invalid fallback literals")

// Defaults are the fallback literals substituted for fields that no
// extraction strategy could fill. Empty fields are filled by Merge, so the
// tags only bound what is set.
type Defaults struct {
	Title              string   `yaml:"title" mapstructure:"title"`
	Price              string   `yaml:"price" mapstructure:"price"`
	Description        string   `yaml:"description" mapstructure:"description" validate:"max=500"`
	FailureDescription string   `yaml:"failure_description" mapstructure:"failure_description" validate:"max=500"`
	Benefits           []string `yaml:"benefits" mapstructure:"benefits" validate:"max=10"`
	Testimonials       []string `yaml:"testimonials" mapstructure:"testimonials" validate:"max=5"`
	CallToAction       string   `yaml:"cta" mapstructure:"cta"`
}

// DefaultDefaults returns the built-in Portuguese fallback literals.
func DefaultDefaults() Defaults {
	return Defaults{
		Title:              "Produto",
		Price:              "Consulte o preço",
		Description:        "Produto de qualidade",
		FailureDescription: "Não foi possível extrair os dados automaticamente. Por favor, verifique a URL.",
		Benefits:           []string{"Produto de qualidade", "Entrega rápida"},
		Testimonials:       []string{"Produto recomendado"},
		CallToAction:       "Comprar Agora",
	}
}

// Merge fills every blank field of d from base.
func (d Defaults) Merge(base Defaults) Defaults {
	if blank(d.Title) {
		d.Title = base.Title
	}
	if blank(d.Price) {
		d.Price = base.Price
	}
	if blank(d.Description) {
		d.Description = base.Description
	}
	if blank(d.FailureDescription) {
		d.FailureDescription = base.FailureDescription
	}
	if len(d.Benefits) == 0 {
		d.Benefits = base.Benefits
	}
	if len(d.Testimonials) == 0 {
		d.Testimonials = base.Testimonials
	}
	if blank(d.CallToAction) {
		d.CallToAction = base.CallToAction
	}
	return d
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Validate checks that every literal survives normalization and that the
// literals fit the result bounds, so neither a filled success nor a failure
// result built from d can break them.
func (d Defaults) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefaults, err)
	}
	for name, v := range map[string]string{
		"title":               d.Title,
		"price":               d.Price,
		"description":         d.Description,
		"failure_description": d.FailureDescription,
		"cta":                 d.CallToAction,
	} {
		if textnorm.Normalize(v) == "" {
			return fmt.Errorf("%w: %s is blank", ErrInvalidDefaults, name)
		}
	}
	for name, items := range map[string][]string{
		"benefits":     d.Benefits,
		"testimonials": d.Testimonials,
	} {
		for i, v := range items {
			if textnorm.Normalize(v) == "" {
				return fmt.Errorf("%w: %s[%d] is blank", ErrInvalidDefaults, name, i)
			}
		}
	}
	return nil
}

// Fields returns the fallback value for every field.
func (d Defaults) Fields() Fields {
	return Fields{
		Title:        d.Title,
		Price:        d.Price,
		Description:  d.Description,
		Benefits:     cloneStrings(d.Benefits),
		Testimonials: cloneStrings(d.Testimonials),
		CallToAction: d.CallToAction,
	}
}

// Failure builds an error-flagged result whose fields all hold safe defaults.
func (d Defaults) Failure(sourceURL string, kind ErrorKind, err error, at time.Time) Result {
	f := d.Fields()
	f.Description = d.FailureDescription

	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	return Result{
		Fields:      f,
		SourceURL:   sourceURL,
		FinalURL:    sourceURL,
		ExtractedAt: at,
		Error:       &ErrorInfo{Kind: kind, Message: msg},
	}
}

// Fill replaces blank fields in f with the fallback literals.
func (d Defaults) Fill(f Fields) Fields {
	if f.Title == "" {
		f.Title = d.Title
	}
	if f.Price == "" {
		f.Price = d.Price
	}
	if f.Description == "" {
		f.Description = d.Description
	}
	if len(f.Benefits) == 0 {
		f.Benefits = cloneStrings(d.Benefits)
	}
	if len(f.Testimonials) == 0 {
		f.Testimonials = cloneStrings(d.Testimonials)
	}
	if f.CallToAction == "" {
		f.CallToAction = d.CallToAction
	}
	return f
}
