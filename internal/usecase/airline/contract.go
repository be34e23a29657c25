package airline

import "github.com/kailas-cloud/flightq/internal/domain"

// Embedder vectorizes the query and, in one batch when it can, the dataset.
type Embedder interface {
	domain.Embedder
}

// Match is the best airline for a query. The zero Match means no reliable match.
type Match struct {
	Code  string
	Name  string
	Score float64
}

// Found reports whether the match carries a code.
func (m Match) Found() bool {
	return m.Code != ""
}
