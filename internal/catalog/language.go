package catalog

import (
	"sort"

	"golang.org/x/text/language"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

// displayName picks the product name for the wanted language. The stored
// name is used when no translation matches; a product with no name at all
// falls back to its first translation, then to its key.
func displayName(p combo.Product, want language.Tag) string {
	keys := make([]string, 0, len(p.Translations))
	for k := range p.Translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]language.Tag, 0, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		t, err := language.Parse(k)
		if err != nil || p.Translations[k] == "" {
			continue
		}
		tags = append(tags, t)
		names = append(names, p.Translations[k])
	}

	if len(tags) > 0 {
		_, i, conf := language.NewMatcher(tags).Match(want)
		if conf != language.No || p.Name == "" {
			return names[i]
		}
	}
	if p.Name != "" {
		return p.Name
	}
	return p.ProductKey
}

// parseLanguage returns the tag for s, or fallback when s is empty or
// malformed. Accept-Language style lists are allowed.
func parseLanguage(s string, fallback language.Tag) language.Tag {
	if s == "" {
		return fallback
	}
	if t, err := language.Parse(s); err == nil {
		return t
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	return tags[0]
}
