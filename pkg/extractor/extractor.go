// Package extractor turns an arbitrary sales page into product fields by
// walking ordered, declarative strategy chains and committing to the first
// strategy that yields a valid value.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/pkg/product"
	"github.com/jmylchreest/linkmagico/pkg/textnorm"
)

// Config configures an Extractor.
type Config struct {
	Rules    Rules
	Defaults product.Defaults
}

// DefaultConfig returns the built-in rules and fallback literals.
func DefaultConfig() Config {
	return Config{
		Rules:    DefaultRules(),
		Defaults: product.DefaultDefaults(),
	}
}

// Extractor applies a compiled rule set. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	rules    Rules
	defaults product.Defaults
}

// New compiles cfg.Rules and returns an Extractor. Blank default literals
// are filled from product.DefaultDefaults; the merged set must pass
// product.Defaults.Validate.
func New(cfg Config) (*Extractor, error) {
	rules := cfg.Rules
	if err := rules.Compile(); err != nil {
		return nil, err
	}
	defaults := cfg.Defaults.Merge(product.DefaultDefaults())
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		rules:    rules,
		defaults: defaults,
	}, nil
}

// Defaults returns the fallback literals in use.
func (e *Extractor) Defaults() product.Defaults {
	return e.defaults
}

// ExtractHTML parses an HTML document and extracts its fields. The only
// error it returns is a failure to build the document tree.
func (e *Extractor) ExtractHTML(doc string) (product.Fields, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return product.Fields{}, fmt.Errorf("failed to parse document: %w", err)
	}
	return e.ExtractDocument(d), nil
}

// ExtractDocument extracts fields from a parsed document. It never fails;
// any field without a valid match takes its fallback literal.
func (e *Extractor) ExtractDocument(doc *goquery.Document) product.Fields {
	f := product.Fields{
		Title:        e.single("title", doc, e.rules.Title),
		Price:        e.single("price", doc, e.rules.Price),
		Description:  e.joined("description", doc, e.rules.Description, product.MaxDescriptionLength),
		Benefits:     e.list("benefits", doc, e.rules.Benefits, product.MaxBenefits),
		Testimonials: e.list("testimonials", doc, e.rules.Testimonials, product.MaxTestimonials),
		CallToAction: e.single("cta", doc, e.rules.CallToAction),
	}
	return e.defaults.Fill(f)
}

func nodes(doc *goquery.Document, s *Strategy) []*html.Node {
	if s.matcher == nil {
		return nil
	}
	return doc.FindMatcher(s.matcher).Nodes
}

// outermost drops matches nested inside another match, whose text the
// enclosing node already carries.
func outermost(ns []*html.Node) []*html.Node {
	matched := make(map[*html.Node]bool, len(ns))
	for _, n := range ns {
		matched[n] = true
	}
	out := ns[:0:0]
	for _, n := range ns {
		if !hasMatchedAncestor(n, matched) {
			out = append(out, n)
		}
	}
	return out
}

// innermost drops matches that enclose another match, so a wrapper sharing
// its items' class does not become one merged item.
func innermost(ns []*html.Node) []*html.Node {
	matched := make(map[*html.Node]bool, len(ns))
	for _, n := range ns {
		matched[n] = true
	}
	wrappers := make(map[*html.Node]bool)
	for _, n := range ns {
		for p := n.Parent; p != nil; p = p.Parent {
			if matched[p] {
				wrappers[p] = true
			}
		}
	}
	out := ns[:0:0]
	for _, n := range ns {
		if !wrappers[n] {
			out = append(out, n)
		}
	}
	return out
}

func hasMatchedAncestor(n *html.Node, matched map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if matched[p] {
			return true
		}
	}
	return false
}

// single commits to the first node of the first strategy whose candidate
// validates.
func (e *Extractor) single(field string, doc *goquery.Document, chain []Strategy) string {
	for i := range chain {
		s := &chain[i]
		for _, n := range nodes(doc, s) {
			if v, ok := s.accept(s.candidate(n)); ok {
				logger.Debug("field matched", "field", field, "selector", s.Selector, "strategy", i)
				return v
			}
		}
	}
	return ""
}

// joined concatenates the candidates of a strategy's outermost matches.
// MaxLength bounds each part; MinLength applies to the joined text, which is
// then truncated to limit.
func (e *Extractor) joined(field string, doc *goquery.Document, chain []Strategy, limit int) string {
	for i := range chain {
		s := &chain[i]
		var parts []string
		seen := make(map[string]bool)
		for _, n := range outermost(nodes(doc, s)) {
			v, ok := s.match(s.candidate(n))
			if !ok || !s.withinMax(v) || seen[v] {
				continue
			}
			seen[v] = true
			parts = append(parts, v)
		}
		if len(parts) == 0 {
			continue
		}

		text := strings.Join(parts, " ")
		if textnorm.Length(text) < s.MinLength {
			continue
		}
		logger.Debug("field matched", "field", field, "selector", s.Selector, "strategy", i, "parts", len(parts))
		return textnorm.Truncate(text, limit)
	}
	return ""
}

// list collects the distinct valid items of the innermost matches of the
// first strategy yielding at least one, capped at limit.
func (e *Extractor) list(field string, doc *goquery.Document, chain []Strategy, limit int) []string {
	for i := range chain {
		s := &chain[i]
		var items []string
		seen := make(map[string]bool)
		for _, n := range innermost(nodes(doc, s)) {
			v, ok := s.accept(s.candidate(n))
			if !ok || seen[v] {
				continue
			}
			seen[v] = true
			items = append(items, v)
			if len(items) == limit {
				break
			}
		}
		if len(items) > 0 {
			logger.Debug("field matched", "field", field, "selector", s.Selector, "strategy", i, "items", len(items))
			return items
		}
	}
	return nil
}
