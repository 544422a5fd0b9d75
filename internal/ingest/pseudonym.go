package ingest

import "strconv"

// PseudonymPrefix is prepended to an identity's ordinal to form its label.
const PseudonymPrefix = "Person-"

// Pseudonymizer maps real identities to ordinals in first-seen order. One
// instance belongs to one ingestion run; it only grows.
type Pseudonymizer struct {
	owner    string
	ordinals map[string]int
	names    []string
}

func NewPseudonymizer(owner string) *Pseudonymizer {
	return &Pseudonymizer{
		owner:    owner,
		ordinals: make(map[string]int),
	}
}

// Alias returns the pseudonym for name, assigning the next ordinal on first
// use. The owner keeps their own name.
func (p *Pseudonymizer) Alias(name string) string {
	if name == p.owner {
		return name
	}

	ordinal, ok := p.ordinals[name]
	if !ok {
		ordinal = len(p.names)
		p.ordinals[name] = ordinal
		p.names = append(p.names, name)
	}

	return PseudonymPrefix + strconv.Itoa(ordinal)
}

// Ordinal looks name up without assigning.
func (p *Pseudonymizer) Ordinal(name string) (int, bool) {
	ordinal, ok := p.ordinals[name]
	return ordinal, ok
}

func (p *Pseudonymizer) Len() int {
	return len(p.names)
}

func (p *Pseudonymizer) Owner() string {
	return p.owner
}

// Names returns the real identities indexed by ordinal.
func (p *Pseudonymizer) Names() []string {
	names := make([]string, len(p.names))
	copy(names, p.names)
	return names
}
