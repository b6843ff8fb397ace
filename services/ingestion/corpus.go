package ingestion

import "fmt"

// BaseRecipes are the hand-written documents every corpus starts with.
var BaseRecipes = []string{
	"Feijoada e um prato tipico brasileiro feito com feijao preto e carnes.",
	"Pizza napolitana tem massa fina e molho de tomate.",
	"Salada Caesar e uma opcao leve para o jantar.",
	"Lasanha a bolonhesa e um prato italiano com camadas de massa e carne.",
	"Sopa de legumes e nutritiva e ideal para dias frios.",
}

var (
	cuisines = []string{"brasileira", "italiana", "mexicana", "mediterranea", "asiatica", "indiana", "francesa", "arabe"}
	proteins = []string{"frango", "carne bovina", "porco", "peixe", "camarao", "grão-de-bico", "lentilha", "tofu", "ovo", "cordeiro"}
	methods  = []string{"assado", "grelhado", "ensopado", "salteado", "confitado", "braseado", "cozido no vapor", "na airfryer"}
	carbs    = []string{"arroz", "massa", "batata", "pao", "cuscuz", "quinoa"}
	extras   = []string{"com ervas frescas", "com molho de iogurte", "com legumes tostados", "com alho e limao", "com pimenta defumada", "com queijo maturado"}
)

// MaxSyntheticRecipes is the size of the cuisine x protein x method x carb x extra product.
var MaxSyntheticRecipes = len(cuisines) * len(proteins) * len(methods) * len(carbs) * len(extras)

// SyntheticRecipes returns the first n recipes of the product, iterating the
// last dimension fastest. n is clamped to [0, MaxSyntheticRecipes].
func SyntheticRecipes(n int) []string {
	if n > MaxSyntheticRecipes {
		n = MaxSyntheticRecipes
	}
	if n <= 0 {
		return []string{}
	}

	out := make([]string, 0, n)
	for _, cuisine := range cuisines {
		for _, protein := range proteins {
			for _, method := range methods {
				for _, carb := range carbs {
					for _, extra := range extras {
						if len(out) == n {
							return out
						}
						title := fmt.Sprintf("Receita %d: %s %s com %s (%s)", len(out)+1, protein, method, carb, cuisine)
						out = append(out, fmt.Sprintf(
							"%s. Preparo %s, base de %s, cozinha %s. Proteina principal: %s. Finalize %s.",
							title, method, carb, cuisine, protein, extra))
					}
				}
			}
		}
	}
	return out
}

// DefaultCorpus is BaseRecipes followed by n synthetic recipes.
func DefaultCorpus(n int) []string {
	synthetic := SyntheticRecipes(n)
	corpus := make([]string, 0, len(BaseRecipes)+len(synthetic))
	corpus = append(corpus, BaseRecipes...)
	return append(corpus, synthetic...)
}
