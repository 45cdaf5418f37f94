package extractor

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/andybalholm/cascadia"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is returned when a rule set fails to load or compile.
var ErrInvalidRules = errors.New("invalid extraction rules")

// Price patterns. The currency form is tried first so "12x de R$ 9,90"
// yields "R$ 9,90" rather than "12". A bare currency marker with no amount
// ("Preço sob consulta R$") keeps the few words around it.
const (
	currencyPattern = `[A-Z]{0,3}\p{Sc}\s*\d+(?:[.,]\d+)*|\d+(?:[.,]\d+)*\s*\p{Sc}`
	numberPattern   = `\d+(?:[.,]\d+)*`
	markerPattern   = `(?:\S+\s+){0,4}\S*\p{Sc}\S*(?:\s+\S+){0,4}`
)

// Strategy is one step of a field's fallback chain: a CSS selector plus the
// checks a matched node's text must pass to be accepted.
type Strategy struct {
	// Selector is a CSS selector evaluated against the whole document.
	Selector string `yaml:"selector" validate:"required"`

	// Attr reads the named attribute instead of the node text (e.g. "content"
	// for <meta> tags).
	Attr string `yaml:"attr,omitempty"`

	// Patterns are tried in order against the normalized text; the first
	// match becomes the value. A candidate matching none is rejected.
	Patterns []string `yaml:"patterns,omitempty"`

	// MinLength and MaxLength bound the value length in characters (0 = no bound).
	MinLength int `yaml:"min_length,omitempty" validate:"gte=0"`
	MaxLength int `yaml:"max_length,omitempty" validate:"gte=0"`

	matcher  cascadia.Selector
	patterns []*regexp.Regexp
}

// Rules holds the ordered strategy chain for each field.
type Rules struct {
	Title        []Strategy `yaml:"title" validate:"dive"`
	Price        []Strategy `yaml:"price" validate:"dive"`
	Description  []Strategy `yaml:"description" validate:"dive"`
	Benefits     []Strategy `yaml:"benefits" validate:"dive"`
	Testimonials []Strategy `yaml:"testimonials" validate:"dive"`
	CallToAction []Strategy `yaml:"cta" validate:"dive"`
}

func text(selector string) Strategy {
	return Strategy{Selector: selector}
}

func attr(selector, name string) Strategy {
	return Strategy{Selector: selector, Attr: name}
}

func price(s Strategy) Strategy {
	s.Patterns = []string{currencyPattern, numberPattern, markerPattern}
	return s
}

func minLen(n int, ss ...Strategy) []Strategy {
	for i := range ss {
		ss[i].MinLength = n
	}
	return ss
}

func maxLen(n int, ss ...Strategy) []Strategy {
	for i := range ss {
		ss[i].MaxLength = n
	}
	return ss
}

// DefaultRules returns the built-in chains tuned for Portuguese and English
// sales pages.
func DefaultRules() Rules {
	return Rules{
		Title: []Strategy{
			text("h1"),
			text(".product-title"),
			text(".product-name"),
			text("[itemprop=name]"),
			text(".title"),
			attr("meta[property='og:title']", "content"),
			text("title"),
		},
		Price: []Strategy{
			price(text(".price")),
			price(text(".valor")),
			price(text(".preco")),
			price(text(".price-current")),
			price(text(".price-now")),
			price(attr("[itemprop=price]", "content")),
			price(text("[class*='price']")),
			price(text("[class*='valor']")),
			price(text("[class*='preco']")),
			price(text(".currency")),
			price(text(".money")),
			price(text(".cost")),
		},
		Description: minLen(20,
			text(".description"),
			text(".descricao"),
			text(".product-description"),
			text("[itemprop=description]"),
			attr("meta[name=description]", "content"),
			attr("meta[property='og:description']", "content"),
			text(".content"),
			text(".details"),
			text(".info"),
			text("p"),
		),
		Benefits: maxLen(300,
			text(".benefits li"),
			text(".beneficios li"),
			text(".vantagens li"),
			text(".features li"),
			text(".benefit"),
			text(".beneficio"),
			text(".vantagem"),
			text(".feature"),
			text("ul li"),
			text(".list li"),
		),
		Testimonials: minLen(20,
			text(".testimonial"),
			text(".depoimento"),
			text(".review"),
			text("[itemprop=reviewBody]"),
			text(".feedback"),
			text(".opinion"),
			text(".comment"),
			text("blockquote"),
		),
		CallToAction: maxLen(80,
			text(".cta"),
			text(".comprar"),
			text(".buy"),
			text("a[href*='checkout']"),
			text("a[href*='comprar']"),
			text("a[href*='buy']"),
			text(".button"),
			text(".btn"),
			text("button"),
		),
	}
}

var rulesValidator = validator.New()

// Compile validates the rules and compiles every selector and pattern.
// Each chain is copied first so rules sharing backing arrays with r's
// source are never mutated.
func (r *Rules) Compile() error {
	if err := rulesValidator.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	for _, c := range r.chains() {
		compiled := make([]Strategy, len(*c.chain))
		copy(compiled, *c.chain)
		for i := range compiled {
			if err := compiled[i].compile(); err != nil {
				return fmt.Errorf("%w: %s[%d]: %v", ErrInvalidRules, c.name, i, err)
			}
		}
		*c.chain = compiled
	}
	return nil
}

type namedChain struct {
	name  string
	chain *[]Strategy
}

func (r *Rules) chains() []namedChain {
	return []namedChain{
		{"title", &r.Title},
		{"price", &r.Price},
		{"description", &r.Description},
		{"benefits", &r.Benefits},
		{"testimonials", &r.Testimonials},
		{"cta", &r.CallToAction},
	}
}

func (s *Strategy) compile() error {
	m, err := cascadia.Compile(s.Selector)
	if err != nil {
		return fmt.Errorf("selector %q: %w", s.Selector, err)
	}
	s.matcher = m

	s.patterns = make([]*regexp.Regexp, 0, len(s.Patterns))
	for _, p := range s.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, re)
	}

	if s.MaxLength > 0 && s.MinLength > s.MaxLength {
		return fmt.Errorf("min_length %d exceeds max_length %d", s.MinLength, s.MaxLength)
	}
	return nil
}

// ParseRules reads a YAML rule set. Fields omitted from the document keep
// their built-in chain; an explicit empty list disables the chain so the
// field always falls back to its literal.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	def := DefaultRules()
	if r.Title == nil {
		r.Title = def.Title
	}
	if r.Price == nil {
		r.Price = def.Price
	}
	if r.Description == nil {
		r.Description = def.Description
	}
	if r.Benefits == nil {
		r.Benefits = def.Benefits
	}
	if r.Testimonials == nil {
		r.Testimonials = def.Testimonials
	}
	if r.CallToAction == nil {
		r.CallToAction = def.CallToAction
	}

	if err := r.Compile(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// LoadRules reads a YAML rule set from a file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}
