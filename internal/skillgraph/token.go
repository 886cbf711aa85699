package skillgraph

// Token is an atomic unit of knowledge: a skill a learner can demonstrate or
// a misconception a wrong answer can reveal.
type Token struct {
	ID            string
	Name          string
	Description   string
	Prerequisites []string // Token IDs that must be understood first
}

// DisplayName returns the token name, falling back to the ID.
func (t Token) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// IsRoot reports whether the token has no prerequisites.
func (t Token) IsRoot() bool {
	return len(t.Prerequisites) == 0
}
