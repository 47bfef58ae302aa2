package documento

import "context"

// ListParams carries pagination, search and filters for document listings.
type ListParams struct {
	Tipo       string
	Page       int
	Limit      int
	Search     string
	CNPJ       string
	DataInicio string
	DataFim    string
	SortBy     string
	SortOrder  string
}

// Stats summarizes the capture store for the dashboard.
type Stats struct {
	TotalNFSe      int     `json:"totalNfse"`
	TotalNFe       int     `json:"totalNfe"`
	TotalCTe       int     `json:"totalCte"`
	ValorTotalNFSe float64 `json:"valorTotalNfse"`
	ImportadosHoje int     `json:"importadosHoje"`
}

// Repository defines the interface for fiscal document persistence.
type Repository interface {
	// Insert persists a captured document and returns its ID.
	Insert(ctx context.Context, d Documento) (int64, error)

	// ExistsByChave reports whether a document with the access key exists.
	ExistsByChave(ctx context.Context, tipo, chave string) (bool, error)

	// FindByID retrieves a document including its XML payload.
	// Returns nil if not found.
	FindByID(ctx context.Context, tipo string, id int64) (*Documento, error)

	// List retrieves documents with pagination, search and filters.
	// XML payloads are not loaded. Returns the page and the total count.
	List(ctx context.Context, params ListParams) ([]Documento, int, error)

	// ListByPeriodo retrieves NFSe documents (with XML payloads) emitted
	// inside the date range, optionally filtered by tomador CNPJ.
	ListByPeriodo(ctx context.Context, dataInicio, dataFim, cnpjTomador string) ([]Documento, error)

	// Stats aggregates document counts and totals for the dashboard.
	Stats(ctx context.Context) (Stats, error)
}
