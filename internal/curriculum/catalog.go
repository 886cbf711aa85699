// Package curriculum loads curriculum content and assembles the immutable
// catalog (knowledge graph plus question bank) every engine component is
// constructed with.
package curriculum

import (
	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/skillgraph"
)

// Catalog is the validated, read-only content context. It is produced once by
// Builder.Build and shared by all components; nothing mutates it afterwards.
type Catalog struct {
	Graph *skillgraph.Graph
	Bank  *questionbank.Bank
}

// NewCatalog assembles a catalog from already-validated parts.
func NewCatalog(graph *skillgraph.Graph, bank *questionbank.Bank) *Catalog {
	return &Catalog{Graph: graph, Bank: bank}
}
