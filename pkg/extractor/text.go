package extractor

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jmylchreest/linkmagico/pkg/textnorm"
)

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

// inline elements join their text with the surrounding text; everything
// else is treated as a block and separated by a space.
var inline = map[atom.Atom]bool{
	atom.A:      true,
	atom.Abbr:   true,
	atom.B:      true,
	atom.Bdi:    true,
	atom.Cite:   true,
	atom.Code:   true,
	atom.Data:   true,
	atom.Em:     true,
	atom.I:      true,
	atom.Mark:   true,
	atom.Q:      true,
	atom.S:      true,
	atom.Small:  true,
	atom.Span:   true,
	atom.Strong: true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.Time:   true,
	atom.U:      true,
}

// nodeText returns the visible text below n. Unlike goquery's Text it keeps
// block boundaries, so "<li>a</li><li>b</li>" reads "a b" rather than "ab".
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte(' ')
				return
			}
		case html.CommentNode:
			return
		}

		block := n.Type == html.ElementNode && !inline[n.DataAtom]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return b.String()
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// candidate returns the normalized raw value of n for s before validation.
func (s *Strategy) candidate(n *html.Node) string {
	if s.Attr != "" {
		return textnorm.Normalize(attrValue(n, s.Attr))
	}
	return textnorm.Normalize(nodeText(n))
}

// accept applies the strategy's patterns and length bounds to a candidate.
// It returns the possibly narrowed value and whether it passed.
func (s *Strategy) accept(v string) (string, bool) {
	v, ok := s.match(v)
	if !ok {
		return "", false
	}
	return v, s.inBounds(v)
}

func (s *Strategy) match(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	if len(s.patterns) == 0 {
		return v, true
	}
	for _, re := range s.patterns {
		if m := re.FindString(v); m != "" {
			return strings.TrimSpace(m), true
		}
	}
	return "", false
}

func (s *Strategy) inBounds(v string) bool {
	n := textnorm.Length(v)
	if n == 0 || n < s.MinLength {
		return false
	}
	return s.withinMax(v)
}

func (s *Strategy) withinMax(v string) bool {
	return s.MaxLength == 0 || textnorm.Length(v) <= s.MaxLength
}
