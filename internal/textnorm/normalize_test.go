package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain ascii unchanged", input: "Pizza napolitana", want: "Pizza napolitana"},
		{name: "portuguese accents stripped", input: "Feijão e grão-de-bico", want: "Feijao e grao-de-bico"},
		{name: "cedilla", input: "Açúcar e limão", want: "Acucar e limao"},
		{name: "compatibility ligature expanded", input: "ﬁlé", want: "file"},
		{name: "non latin script dropped", input: "寿司 sushi", want: " sushi"},
		{name: "emoji dropped", input: "RAG de Comida 🍽️", want: "RAG de Comida "},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Feijoada é um prato típico brasileiro",
		"Crème brûlée à la française",
		"Ωmega 寿司 naïve café",
		"grÃ£o-de-bico",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_OutputIsASCII(t *testing.T) {
	out := Normalize("Ñoquis com açaí, pão de queijo e 豆腐")
	for _, r := range out {
		assert.LessOrEqual(t, r, rune(127))
	}
}

func TestNormalizeAll(t *testing.T) {
	in := []string{"pão", "limão"}
	out := NormalizeAll(in)

	assert.Equal(t, []string{"pao", "limao"}, out)
	assert.Equal(t, "pão", in[0], "input slice must not be modified")
}
