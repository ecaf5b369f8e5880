package analyze

import (
	"strings"

	"catalog-ingest/internal/domain"
)

// MatchCategory resolves a model-suggested category name against the known
// list: exact case-insensitive match first, then substring containment in
// either direction. The first hit in list order wins.
func MatchCategory(categories []domain.Category, name string) (domain.Category, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.Category{}, false
	}

	for _, c := range categories {
		if strings.ToLower(c.Name) == needle {
			return c, true
		}
	}
	for _, c := range categories {
		candidate := strings.ToLower(c.Name)
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return c, true
		}
	}
	return domain.Category{}, false
}
