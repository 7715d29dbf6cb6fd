package score

import "github.com/dgallion1/docrank/internal/document"

// DocTypeInformational is assigned when no rule matches. It carries no bonus.
const DocTypeInformational = "informational"

// classifySections is how many leading sections are inspected when the
// filename gives no hint.
const classifySections = 3

// DocTypeRule maps hint words to a document type and the job words that
// make that type a good fit.
type DocTypeRule struct {
	Name     string   `yaml:"name"`
	Hints    []string `yaml:"hints"`
	JobTerms []string `yaml:"job_terms"`
}

// DefaultDocTypes is the canonical document-type table, in priority order.
func DefaultDocTypes() []DocTypeRule {
	return []DocTypeRule{
		{
			Name:     "instructional",
			Hints:    []string{"guide", "tutorial", "howto", "manual", "instructions", "steps"},
			JobTerms: []string{"learn", "how", "steps", "guide", "instructions", "tutorial"},
		},
		{
			Name:     "comprehensive",
			Hints:    []string{"complete", "comprehensive", "handbook", "ultimate", "everything"},
			JobTerms: []string{"plan", "complete", "comprehensive", "all", "overview"},
		},
		{
			Name:     "reference",
			Hints:    []string{"reference", "specification", "glossary", "index", "appendix", "api"},
			JobTerms: []string{"find", "lookup", "reference", "check", "details"},
		},
		{
			Name:     "overview",
			Hints:    []string{"overview", "introduction", "summary", "abstract", "about"},
			JobTerms: []string{"understand", "summary", "overview", "introduce", "explore"},
		},
	}
}

// DocType is the result of classifying one document.
type DocType struct {
	Name     string
	JobTerms []string
}

// ClassifyDocument checks the filename first, then the titles and content of
// the first few sections, against each rule in order.
func (s *Scorer) ClassifyDocument(filename string, secs []document.Section) DocType {
	if dt, ok := matchDocType(s.cfg.DocTypes, wordSet(filename)); ok {
		return dt
	}
	n := min(len(secs), classifySections)
	set := make(map[string]bool)
	for _, sec := range secs[:n] {
		for w := range wordSet(sec.Title + " " + sec.Content) {
			set[w] = true
		}
	}
	if dt, ok := matchDocType(s.cfg.DocTypes, set); ok {
		return dt
	}
	return DocType{Name: DocTypeInformational}
}

func matchDocType(rules []DocTypeRule, set map[string]bool) (DocType, bool) {
	if len(set) == 0 {
		return DocType{}, false
	}
	for _, r := range rules {
		for _, h := range r.Hints {
			if set[h] {
				return DocType{Name: r.Name, JobTerms: r.JobTerms}, true
			}
		}
	}
	return DocType{}, false
}

// DocTypeBonus is 1 when any of the type's job terms appears in job.
func DocTypeBonus(dt DocType, job string) float64 {
	if len(dt.JobTerms) == 0 {
		return 0
	}
	set := wordSet(job)
	for _, t := range dt.JobTerms {
		if set[t] {
			return 1
		}
	}
	return 0
}
