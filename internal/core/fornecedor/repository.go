package fornecedor

import "context"

// ListParams carries pagination, search and ordering for vendor listings.
// Search matches nome, cnpj and codigo_erp as a contains filter.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Repository defines the interface for pending-vendor persistence.
type Repository interface {
	// Create persists a new pending vendor and returns its ID.
	Create(ctx context.Context, f Fornecedor) (int64, error)

	// FindByID retrieves a vendor by primary key. Returns nil if not found.
	FindByID(ctx context.Context, id int64) (*Fornecedor, error)

	// FindByCNPJ retrieves a vendor by CNPJ digits. Returns nil if not found.
	FindByCNPJ(ctx context.Context, cnpj string) (*Fornecedor, error)

	// List retrieves vendors with pagination, search, and sorting.
	// Returns the page of vendors and the total row count for the filter.
	List(ctx context.Context, params ListParams) ([]Fornecedor, int, error)

	// UpdateCodigoERP stores the vendor code returned by the ERP.
	UpdateCodigoERP(ctx context.Context, id int64, codigo string) error

	// DeleteByCNPJ removes a vendor confirmed as registered in the ERP.
	DeleteByCNPJ(ctx context.Context, cnpj string) error
}
