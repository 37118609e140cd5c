package models

// arxivCategories is the set of top-level arXiv archive names a
// subscription category may use, plus the "all" pseudo-category that
// searches every field.
var arxivCategories = map[string]bool{
	"all":      true,
	"astro-ph": true,
	"cond-mat": true,
	"cs":       true,
	"econ":     true,
	"eess":     true,
	"gr-qc":    true,
	"hep-ex":   true,
	"hep-lat":  true,
	"hep-ph":   true,
	"hep-th":   true,
	"math":     true,
	"math-ph":  true,
	"nlin":     true,
	"nucl-ex":  true,
	"nucl-th":  true,
	"physics":  true,
	"q-bio":    true,
	"q-fin":    true,
	"quant-ph": true,
	"stat":     true,
}

// ValidCategory reports whether a subscription category is a known
// arXiv archive.
func ValidCategory(category string) bool {
	return arxivCategories[category]
}
