// Package category maps source-native category keys to canonical labels.
package category

// Normalizer translates category keys with an exact, case-sensitive lookup.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	mapping map[string]string
}

// New merges the given mappings in order; later entries win.
func New(mappings ...map[string]string) *Normalizer {
	merged := make(map[string]string)
	for _, m := range mappings {
		for k, v := range m {
			merged[k] = v
		}
	}
	return &Normalizer{mapping: merged}
}

// NewDefault returns a Normalizer over the built-in vocabulary plus overrides.
func NewDefault(overrides map[string]string) *Normalizer {
	return New(DefaultMapping(), overrides)
}

// Normalize returns the canonical label for key, or key itself when unmapped.
func (n *Normalizer) Normalize(key string) string {
	if n == nil {
		return key
	}
	if label, ok := n.mapping[key]; ok {
		return label
	}
	return key
}

// Len returns the number of mapped keys.
func (n *Normalizer) Len() int {
	if n == nil {
		return 0
	}
	return len(n.mapping)
}
