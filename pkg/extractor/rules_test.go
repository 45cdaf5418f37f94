package extractor

import (
	"errors"
	"testing"
)

func TestDefaultRules_Compile(t *testing.T) {
	r := DefaultRules()
	if err := r.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	for _, c := range r.chains() {
		if len(*c.chain) == 0 {
			t.Errorf("%s chain is empty", c.name)
		}
		for i, s := range *c.chain {
			if s.matcher == nil {
				t.Errorf("%s[%d] not compiled", c.name, i)
			}
		}
	}
}

func TestDefaultRules_PriceStrategiesCarryPatterns(t *testing.T) {
	for i, s := range DefaultRules().Price {
		if len(s.Patterns) != 3 {
			t.Errorf("Price[%d] (%s) has %d patterns, want 3", i, s.Selector, len(s.Patterns))
		}
	}
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "override one chain",
			yaml: "title:\n  - selector: .name\n",
		},
		{
			name: "empty document keeps defaults",
			yaml: "",
		},
		{
			name:    "missing selector",
			yaml:    "title:\n  - attr: content\n",
			wantErr: true,
		},
		{
			name:    "bad selector",
			yaml:    "title:\n  - selector: \"[[\"\n",
			wantErr: true,
		},
		{
			name:    "bad pattern",
			yaml:    "price:\n  - selector: .p\n    patterns: ['(']\n",
			wantErr: true,
		},
		{
			name:    "negative length",
			yaml:    "cta:\n  - selector: .b\n    max_length: -1\n",
			wantErr: true,
		},
		{
			name:    "min above max",
			yaml:    "cta:\n  - selector: .b\n    min_length: 10\n    max_length: 5\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "title: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRules() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRules) {
				t.Errorf("ParseRules() error = %v, want ErrInvalidRules", err)
			}
		})
	}
}

func TestParseRules_MissingChainsUseDefaults(t *testing.T) {
	r, err := ParseRules([]byte("title:\n  - selector: .name\n"))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if len(r.Title) != 1 || r.Title[0].Selector != ".name" {
		t.Errorf("Title = %+v, want single .name strategy", r.Title)
	}
	if len(r.Price) != len(DefaultRules().Price) {
		t.Errorf("len(Price) = %d, want default chain", len(r.Price))
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("testdata/rules.yaml")
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}

	e, err := New(Config{Rules: rules})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f, err := e.ExtractHTML(`
		<h1>Loja Genérica</h1>
		<span class="product-name">Tênis Runner</span>
		<div class="price">R$ 200</div>
		<div data-price="129.90"></div>
		<a id="buy-now">Comprar</a>`)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}

	if f.Title != "Tênis Runner" {
		t.Errorf("Title = %q, want Tênis Runner", f.Title)
	}
	if f.Price != "129.90" {
		t.Errorf("Price = %q, want 129.90", f.Price)
	}
	if f.CallToAction != "Comprar" {
		t.Errorf("CallToAction = %q, want Comprar", f.CallToAction)
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules("testdata/does-not-exist.yaml"); err == nil {
		t.Error("LoadRules() expected error for missing file")
	}
}
