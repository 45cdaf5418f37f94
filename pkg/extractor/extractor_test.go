package extractor

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/jmylchreest/linkmagico/pkg/product"
)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func extract(t *testing.T, e *Extractor, doc string) product.Fields {
	t.Helper()
	f, err := e.ExtractHTML(doc)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	return f
}

func TestExtractHTML_TitleAndPriceOnly(t *testing.T) {
	e := newExtractor(t)
	f := extract(t, e, `<html><body><h1>Super Gadget</h1><div class="price">R$ 49,90 hoje</div></body></html>`)

	def := product.DefaultDefaults()
	want := product.Fields{
		Title:        "Super Gadget",
		Price:        "R$ 49,90",
		Description:  def.Description,
		Benefits:     def.Benefits,
		Testimonials: def.Testimonials,
		CallToAction: def.CallToAction,
	}
	if !reflect.DeepEqual(f, want) {
		t.Errorf("ExtractHTML() = %+v, want %+v", f, want)
	}
}

func TestExtractHTML_FullPage(t *testing.T) {
	data, err := os.ReadFile("testdata/product.html")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	f := extract(t, newExtractor(t), string(data))

	want := product.Fields{
		Title:        "Curso Completo de Marketing Digital",
		Price:        "R$ 197,00",
		Description:  "Do zero ao avançado em 8 semanas. Aulas práticas com projetos reais.",
		Benefits:     []string{"Acesso vitalício", "Certificado de conclusão", "Suporte por 12 meses"},
		Testimonials: []string{"Mudou minha carreira, recomendo a todos!", "Conteúdo direto ao ponto e muito bem explicado."},
		CallToAction: "Quero me inscrever agora",
	}
	if !reflect.DeepEqual(f, want) {
		t.Errorf("ExtractHTML() =\n%+v\nwant\n%+v", f, want)
	}
}

func TestExtractHTML_PriceFallbackOrdering(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "first strategy rejected without digits",
			doc:  `<div class="price">Indisponível</div><span class="valor">R$ 10,00</span>`,
			want: "R$ 10,00",
		},
		{
			name: "second strategy when first absent",
			doc:  `<span class="valor">€ 12.50</span>`,
			want: "€ 12.50",
		},
		{
			name: "numeric pattern when no currency",
			doc:  `<span class="preco">Apenas 49.90</span>`,
			want: "49.90",
		},
		{
			name: "trailing currency symbol",
			doc:  `<span class="price">Total: 30,00 €</span>`,
			want: "30,00 €",
		},
		{
			name: "itemprop content attribute",
			doc:  `<meta itemprop="price" content="99.00"><span class="money">gratis</span>`,
			want: "99.00",
		},
		{
			name: "class substring match",
			doc:  `<div class="product-price-final">US$ 5</div>`,
			want: "US$ 5",
		},
		{
			name: "currency marker without amount",
			doc:  `<div class="price">Preço sob consulta R$</div><span class="valor">12,00</span>`,
			want: "Preço sob consulta R$",
		},
		{
			name: "no valid candidate",
			doc:  `<div class="price">Sob consulta</div>`,
			want: "Consulte o preço",
		},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract(t, e, tt.doc).Price; got != tt.want {
				t.Errorf("Price = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTML_Title(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"heading wins", `<title>Loja</title><h1>Produto X</h1>`, "Produto X"},
		{"empty heading skipped", `<h1>  </h1><div class="product-title">Caneca</div>`, "Caneca"},
		{"og title before document title", `<head><title>Loja</title><meta property="og:title" content="Caneca Azul"></head>`, "Caneca Azul"},
		{"document title last", `<head><title>Loja Exemplo</title></head>`, "Loja Exemplo"},
		{"script text ignored", `<h1>Gadget<script>var x = 1;</script></h1>`, "Gadget"},
		{"nothing found", `<div>oi</div>`, "Produto"},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract(t, e, tt.doc).Title; got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTML_Bounds(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<div class="description">`)
	b.WriteString(strings.Repeat("palavra ", 200))
	b.WriteString(`</div><ul class="benefits">`)
	for i := 0; i < 15; i++ {
		b.WriteString("<li>Benefício número " + string(rune('A'+i)) + "</li>")
	}
	b.WriteString(`</ul>`)
	for i := 0; i < 8; i++ {
		b.WriteString(`<div class="testimonial">Depoimento muito positivo ` + string(rune('A'+i)) + `</div>`)
	}

	f := extract(t, newExtractor(t), b.String())

	if n := len([]rune(f.Description)); n > product.MaxDescriptionLength {
		t.Errorf("len(Description) = %d, want <= %d", n, product.MaxDescriptionLength)
	}
	if strings.HasSuffix(f.Description, " ") {
		t.Errorf("Description has trailing space")
	}
	if len(f.Benefits) != product.MaxBenefits {
		t.Errorf("len(Benefits) = %d, want %d", len(f.Benefits), product.MaxBenefits)
	}
	if len(f.Testimonials) != product.MaxTestimonials {
		t.Errorf("len(Testimonials) = %d, want %d", len(f.Testimonials), product.MaxTestimonials)
	}
	if f.Benefits[0] != "Benefício número A" {
		t.Errorf("Benefits[0] = %q", f.Benefits[0])
	}
}

func TestExtractHTML_Description(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "joins nodes of one selector",
			doc:  `<div class="description">Primeira parte da descrição.</div><div class="description">Segunda parte.</div>`,
			want: "Primeira parte da descrição. Segunda parte.",
		},
		{
			name: "nested match counted once",
			doc:  `<div class="description">Um texto de descrição bastante longo aqui.<div class="description">Interno adicional também bem longo.</div></div>`,
			want: "Um texto de descrição bastante longo aqui. Interno adicional também bem longo.",
		},
		{
			name: "too short falls through",
			doc:  `<div class="description">Curta</div><meta name="description" content="Uma descrição completa do produto.">`,
			want: "Uma descrição completa do produto.",
		},
		{
			name: "paragraphs as last resort",
			doc:  `<p>Este produto resolve todos os seus problemas.</p>`,
			want: "Este produto resolve todos os seus problemas.",
		},
		{
			name: "fallback literal",
			doc:  `<span>nada</span>`,
			want: "Produto de qualidade",
		},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract(t, e, tt.doc).Description; got != tt.want {
				t.Errorf("Description = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTML_Lists(t *testing.T) {
	e := newExtractor(t)

	t.Run("generic list items", func(t *testing.T) {
		f := extract(t, e, `<ul><li>Frete grátis</li><li>Garantia de 1 ano</li></ul>`)
		want := []string{"Frete grátis", "Garantia de 1 ano"}
		if !reflect.DeepEqual(f.Benefits, want) {
			t.Errorf("Benefits = %v, want %v", f.Benefits, want)
		}
	})

	t.Run("overlong benefit rejected", func(t *testing.T) {
		f := extract(t, e, `<div class="benefit">`+strings.Repeat("x", 301)+`</div><div class="feature">Leve</div>`)
		want := []string{"Leve"}
		if !reflect.DeepEqual(f.Benefits, want) {
			t.Errorf("Benefits = %v, want %v", f.Benefits, want)
		}
	})

	t.Run("wrapper sharing the item class", func(t *testing.T) {
		f := extract(t, e, `<div class="benefit"><div class="benefit">Frete grátis</div><div class="benefit">Troca fácil</div></div>`)
		want := []string{"Frete grátis", "Troca fácil"}
		if !reflect.DeepEqual(f.Benefits, want) {
			t.Errorf("Benefits = %v, want %v", f.Benefits, want)
		}
	})

	t.Run("short testimonials fall back", func(t *testing.T) {
		f := extract(t, e, `<div class="review">Bom</div><div class="review">Gostei</div>`)
		want := product.DefaultDefaults().Testimonials
		if !reflect.DeepEqual(f.Testimonials, want) {
			t.Errorf("Testimonials = %v, want %v", f.Testimonials, want)
		}
	})
}

func TestExtractHTML_CallToAction(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"explicit class", `<button>Enviar</button><a class="cta">Garanta o seu</a>`, "Garanta o seu"},
		{"checkout link before generic button", `<button>Enviar</button><a href="/checkout?id=1">Finalizar</a>`, "Finalizar"},
		{"overlong rejected", `<a class="cta">` + strings.Repeat("compre ", 20) + `</a><button>Comprar</button>`, "Comprar"},
		{"fallback literal", `<p>sem botões aqui</p>`, "Comprar Agora"},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract(t, e, tt.doc).CallToAction; got != tt.want {
				t.Errorf("CallToAction = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTML_Totality(t *testing.T) {
	docs := []string{
		"",
		"not html at all",
		"<<<>>>",
		"<html><body></body></html>",
		`<div class="price"></div><h1></h1><ul><li></li></ul>`,
		"\x00\x01\x02",
	}

	e := newExtractor(t)
	for _, doc := range docs {
		f := extract(t, e, doc)
		if err := (product.Result{Fields: f}).Validate(); err != nil {
			t.Errorf("ExtractHTML(%q) produced invalid fields: %v", doc, err)
		}
	}
}

func TestExtractHTML_Deterministic(t *testing.T) {
	data, err := os.ReadFile("testdata/product.html")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	e := newExtractor(t)
	first := extract(t, e, string(data))
	second := extract(t, e, string(data))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestNew_CustomDefaults(t *testing.T) {
	e, err := New(Config{
		Rules:    DefaultRules(),
		Defaults: product.Defaults{Title: "Item", CallToAction: "Buy now"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f := extract(t, e, "<p>x</p>")
	if f.Title != "Item" {
		t.Errorf("Title = %q, want Item", f.Title)
	}
	if f.CallToAction != "Buy now" {
		t.Errorf("CallToAction = %q, want Buy now", f.CallToAction)
	}
	if f.Price != "Consulte o preço" {
		t.Errorf("Price = %q, want built-in default", f.Price)
	}
}

func TestNew_DoesNotMutateRules(t *testing.T) {
	rules := DefaultRules()
	if _, err := New(Config{Rules: rules}); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if rules.Title[0].matcher != nil {
		t.Error("New() compiled the caller's rules in place")
	}
}

func TestExtractHTML_DescriptionPartMaxLength(t *testing.T) {
	rules, err := ParseRules([]byte("description:\n  - selector: .d\n    min_length: 10\n    max_length: 30\n"))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	e, err := New(Config{Rules: rules})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f := extract(t, e, `<div class="d">Parte curta e aceita.</div><div class="d">`+strings.Repeat("longa ", 10)+`</div>`)
	if f.Description != "Parte curta e aceita." {
		t.Errorf("Description = %q, want only the part within max_length", f.Description)
	}
}
