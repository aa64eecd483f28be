package analyzer

// Registry is the explicit set of enabled analyzers. It is constructed once
// at startup and passed by reference to the scanner, planner, and generator;
// there is no hidden package-level state. Adding a language means adding an
// Analyzer implementation and registering it here, nothing else changes.
type Registry struct {
	analyzers []Analyzer
	byLang    map[string]Analyzer
}

// NewRegistry creates a registry over the given analyzers.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byLang: make(map[string]Analyzer)}
	for _, a := range analyzers {
		r.Register(a)
	}
	return r
}

// Default returns a registry with all built-in analyzers enabled.
func Default() *Registry {
	return NewRegistry(NewPython(), NewJavaScript())
}

// Register adds an analyzer. A later registration for the same language tag
// replaces the earlier one.
func (r *Registry) Register(a Analyzer) {
	if _, exists := r.byLang[a.Language()]; exists {
		for i, cur := range r.analyzers {
			if cur.Language() == a.Language() {
				r.analyzers[i] = a
				break
			}
		}
	} else {
		r.analyzers = append(r.analyzers, a)
	}
	r.byLang[a.Language()] = a
}

// Resolve returns the analyzer claiming the given file, or false when no
// enabled analyzer matches. An unresolved file is simply skipped by the
// scanner; discovery is selective, not exhaustive.
func (r *Registry) Resolve(path string, head []byte) (Analyzer, bool) {
	for _, a := range r.analyzers {
		if a.Matches(path, head) {
			return a, true
		}
	}
	return nil, false
}

// ByLanguage returns the analyzer registered for a language tag.
func (r *Registry) ByLanguage(lang string) (Analyzer, bool) {
	a, ok := r.byLang[lang]
	return a, ok
}

// Languages returns the registered language tags in registration order.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		langs = append(langs, a.Language())
	}
	return langs
}
