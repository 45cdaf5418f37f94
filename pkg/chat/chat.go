// Package chat answers shopper questions about an extracted product.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/linkmagico/pkg/product"
	"github.com/jmylchreest/linkmagico/pkg/textnorm"
)

// Responder produces a reply to a shopper message about a product.
type Responder interface {
	Respond(ctx context.Context, message string, p product.Result) (string, error)
	Name() string
}

// topic is one keyword rule. Keywords are matched against the folded
// (lowercase, accent-free) message as substrings.
type topic struct {
	name     string
	keywords []string
	reply    func(k KeywordResponder, p product.Result) string
}

// topics are checked in order; the first match answers.
var topics = []topic{
	{"price", []string{"preco", "valor", "custa"}, KeywordResponder.priceReply},
	{"delivery", []string{"entrega", "frete"}, KeywordResponder.deliveryReply},
	{"warranty", []string{"garantia"}, KeywordResponder.warrantyReply},
	{"benefits", []string{"beneficio", "vantage"}, KeywordResponder.benefitsReply},
	{"purchase", []string{"comprar", "adquirir"}, KeywordResponder.purchaseReply},
}

// KeywordResponder answers from fixed rules. It never fails and does no I/O.
type KeywordResponder struct {
	// Defaults identify fallback literals so they are not quoted back to
	// the shopper as if they had been extracted. Zero means the built-in
	// literals.
	Defaults product.Defaults
}

// Reply answers message with the built-in rules and fallback literals.
func Reply(message string, p product.Result) string {
	return KeywordResponder{}.Reply(message, p)
}

// Reply answers message about p.
func (k KeywordResponder) Reply(message string, p product.Result) string {
	folded := textnorm.Fold(textnorm.Normalize(message))
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(folded, kw) {
				return t.reply(k, p)
			}
		}
	}
	return k.greeting(p)
}

// Topic returns the name of the rule message matches, or "greeting".
func Topic(message string) string {
	folded := textnorm.Fold(textnorm.Normalize(message))
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(folded, kw) {
				return t.name
			}
		}
	}
	return "greeting"
}

// Respond implements Responder.
func (k KeywordResponder) Respond(_ context.Context, message string, p product.Result) (string, error) {
	return k.Reply(message, p), nil
}

// Name implements Responder.
func (k KeywordResponder) Name() string {
	return "keyword"
}

func (k KeywordResponder) defaults() product.Defaults {
	return k.Defaults.Merge(product.DefaultDefaults())
}

// known reports whether p holds data extracted from a page.
func known(p product.Result) bool {
	return !p.Failed() && p.SourceURL != ""
}

func (k KeywordResponder) priceReply(p product.Result) string {
	if known(p) && p.Price != k.defaults().Price {
		return fmt.Sprintf("%s está saindo por %s. Posso te ajudar com mais informações sobre os benefícios e características do produto!", p.Title, p.Price)
	}
	return "O preço está disponível na página do produto. Posso te ajudar com mais informações sobre os benefícios e características do produto!"
}

func (k KeywordResponder) deliveryReply(product.Result) string {
	return "A entrega varia conforme sua localização. Geralmente temos opções de entrega rápida disponíveis. Gostaria de saber mais sobre o produto?"
}

func (k KeywordResponder) warrantyReply(product.Result) string {
	return "Sim, oferecemos garantia para nossos produtos! É uma das vantagens de escolher nossos produtos de qualidade."
}

func (k KeywordResponder) benefitsReply(p product.Result) string {
	if known(p) && !slices.Equal(p.Benefits, k.defaults().Benefits) && len(p.Benefits) > 0 {
		items := p.Benefits
		if len(items) > 3 {
			items = items[:3]
		}
		return fmt.Sprintf("Este produto oferece diversos benefícios, como: %s. Gostaria de saber mais detalhes?", joinPT(items))
	}
	return "Este produto oferece diversos benefícios! Posso destacar a qualidade superior, entrega rápida e excelente custo-benefício. Gostaria de saber mais detalhes?"
}

func (k KeywordResponder) purchaseReply(p product.Result) string {
	if known(p) && p.CallToAction != k.defaults().CallToAction {
		return fmt.Sprintf("Que ótimo! Para finalizar sua compra, basta clicar em \"%s\" na página do produto. Estou aqui para esclarecer qualquer dúvida antes da sua decisão!", p.CallToAction)
	}
	return "Que ótimo! Para finalizar sua compra, basta clicar no botão de compra na página do produto. Estou aqui para esclarecer qualquer dúvida antes da sua decisão!"
}

func (k KeywordResponder) greeting(p product.Result) string {
	if known(p) && p.Title != k.defaults().Title {
		return fmt.Sprintf("Olá! Sou seu assistente virtual e estou aqui para ajudar com informações sobre %s. Posso esclarecer dúvidas sobre preço, entrega, benefícios e muito mais. Como posso ajudá-lo?", p.Title)
	}
	return "Olá! Sou seu assistente virtual e estou aqui para ajudar com informações sobre nosso produto. Posso esclarecer dúvidas sobre preço, entrega, benefícios e muito mais. Como posso ajudá-lo?"
}

// joinPT joins items as a Portuguese list: "a, b e c".
func joinPT(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " e " + items[len(items)-1]
}
