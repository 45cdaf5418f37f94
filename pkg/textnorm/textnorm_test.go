package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
		{"collapses whitespace", "  Super \n\n Gadget\t2000  ", "Super Gadget 2000"},
		{"keeps accents", "Promoção de verão", "Promoção de verão"},
		{"composes decomposed accents", "Promoc\u0327a\u0303o", "Promoção"},
		{"keeps currency", "R$ 49,90 ou € 10.00", "R$ 49,90 ou € 10.00"},
		{"strips emoji", "Compre já 🚀🔥!", "Compre já !"},
		{"strips control chars", "abc\u0000def\u200b", "abcdef"},
		{"keeps punctuation", `"Ótimo!" (recomendo) - 5/5`, `"Ótimo!" (recomendo) - 5/5`},
		{"no leading space after stripped char", "🚀 Oferta", "Oferta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"  a  b ", "Preço: R$ 10", "🚀 x 🚀 y", "çã́"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 0, "hello"},
		{"hello world", 6, "hello"},
		{"ação ação", 4, "ação"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestLength_CountsRunes(t *testing.T) {
	if got := Length("preço"); got != 5 {
		t.Errorf("Length(preço) = %d, want 5", got)
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Preço":     "preco",
		"BENEFÍCIO": "beneficio",
		"garantia":  "garantia",
		"Ação":      "acao",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}
