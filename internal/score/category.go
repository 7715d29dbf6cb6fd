package score

// Category is a named group of signal words that raise relevance when they
// appear in a candidate text.
type Category struct {
	Name  string   `yaml:"name"`
	Words []string `yaml:"words"`
}

// DefaultCategories is the domain-agnostic category table.
func DefaultCategories() []Category {
	return []Category{
		{Name: "action", Words: []string{"plan", "create", "build", "organize", "prepare", "implement", "manage"}},
		{Name: "quality", Words: []string{"best", "effective", "essential", "important", "key", "recommended", "top"}},
		{Name: "practical", Words: []string{"guide", "tips", "steps", "example", "practical", "tutorial", "instructions"}},
		{Name: "context", Words: []string{"background", "overview", "summary", "scope", "history", "purpose", "setting"}},
		{Name: "outcome", Words: []string{"result", "outcome", "benefit", "impact", "success", "improvement", "goal"}},
	}
}

type categoryIndex []map[string]bool

func indexCategories(cats []Category) categoryIndex {
	idx := make(categoryIndex, 0, len(cats))
	for _, c := range cats {
		m := make(map[string]bool, len(c.Words))
		for _, w := range c.Words {
			m[w] = true
		}
		idx = append(idx, m)
	}
	return idx
}

// boost sums per-category contributions, min(matches*matchWeight, catCap),
// and caps the total. Matches count word occurrences, not distinct words.
func (idx categoryIndex) boost(text string, matchWeight, catCap, total float64) float64 {
	if len(idx) == 0 {
		return 0
	}
	ws := words(text)
	var sum float64
	for _, cat := range idx {
		n := 0
		for _, w := range ws {
			if cat[w] {
				n++
			}
		}
		sum += min(float64(n)*matchWeight, catCap)
	}
	return min(sum, total)
}
