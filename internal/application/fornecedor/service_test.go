package fornecedor

import (
	"context"
	"errors"
	"testing"
	"time"

	"simpleit/simpledfe_core/internal/core/cnpj"
	"simpleit/simpledfe_core/internal/core/erp"
	"simpleit/simpledfe_core/internal/core/fornecedor"
	"simpleit/simpledfe_core/internal/infrastructure/cache"
	"simpleit/simpledfe_core/internal/testutil"
)

type mockRepo struct {
	items       []fornecedor.Fornecedor
	total       int
	listErr     error
	updatedID   int64
	updatedCode string
	updateErr   error
	deletedCNPJ string
	deleteErr   error
}

func (m *mockRepo) Create(ctx context.Context, f fornecedor.Fornecedor) (int64, error) {
	return 1, nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*fornecedor.Fornecedor, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i], nil
		}
	}
	return nil, nil
}

func (m *mockRepo) FindByCNPJ(ctx context.Context, c string) (*fornecedor.Fornecedor, error) {
	for i := range m.items {
		if m.items[i].CNPJ == c {
			return &m.items[i], nil
		}
	}
	return nil, nil
}

func (m *mockRepo) List(ctx context.Context, params fornecedor.ListParams) ([]fornecedor.Fornecedor, int, error) {
	return m.items, m.total, m.listErr
}

func (m *mockRepo) UpdateCodigoERP(ctx context.Context, id int64, codigo string) error {
	m.updatedID, m.updatedCode = id, codigo
	return m.updateErr
}

func (m *mockRepo) DeleteByCNPJ(ctx context.Context, c string) error {
	m.deletedCNPJ = c
	return m.deleteErr
}

type mockCNPJ struct {
	empresa *erp.Empresa
	err     error
}

func (m *mockCNPJ) Consultar(ctx context.Context, c string) (*erp.Empresa, error) {
	return m.empresa, m.err
}

type mockERP struct {
	res erp.Resultado
	got erp.Empresa
}

func (m *mockERP) PreCadastro(ctx context.Context, e erp.Empresa) erp.Resultado {
	m.got = e
	return m.res
}

type mockVerifier struct {
	codigo string
	found  bool
	err    error
}

func (m *mockVerifier) VerificarCadastro(ctx context.Context, c string) (string, bool, error) {
	return m.codigo, m.found, m.err
}

func newService(repo *mockRepo, c *mockCNPJ, e *mockERP, v *mockVerifier) (*Service, *cache.DebugBuffer) {
	buf := cache.NewDebugBuffer(10)
	return NewService(repo, c, e, v, buf, testutil.NewNullLogger()), buf
}

func TestListar_Pagination(t *testing.T) {
	repo := &mockRepo{
		items: []fornecedor.Fornecedor{{ID: 1, Nome: "A"}, {ID: 2, Nome: "B"}},
		total: 25,
	}
	svc, _ := newService(repo, nil, nil, nil)

	resp, err := svc.Listar(context.Background(), fornecedor.ListParams{Page: 0, Limit: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := resp.Pagination
	if p.Page != 1 || p.Limit != 10 {
		t.Errorf("expected defaults page=1 limit=10, got %+v", p)
	}
	if p.Total != 25 || p.TotalPages != 3 {
		t.Errorf("expected total=25 totalPages=3, got %+v", p)
	}
	if len(resp.Fornecedores) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp.Fornecedores))
	}
}

func TestListar_TotalPagesNeverZero(t *testing.T) {
	svc, _ := newService(&mockRepo{total: 0}, nil, nil, nil)
	resp, err := svc.Listar(context.Background(), fornecedor.ListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Pagination.TotalPages != 1 {
		t.Errorf("expected totalPages=1 on empty listing, got %d", resp.Pagination.TotalPages)
	}
}

func TestPreCadastro_SuccessStoresCode(t *testing.T) {
	repo := &mockRepo{items: []fornecedor.Fornecedor{{ID: 7, Nome: "ACME", CNPJ: "12345678000195", DataCadastro: time.Now()}}}
	cnpjSvc := &mockCNPJ{empresa: &erp.Empresa{CNPJ: "12345678000195", Nome: "ACME LTDA"}}
	erpSvc := &mockERP{res: erp.Resultado{Success: true, Message: "ok", ERPCode: "4821"}}
	svc, _ := newService(repo, cnpjSvc, erpSvc, nil)

	res, err := svc.PreCadastro(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.ERPCode != "4821" {
		t.Errorf("unexpected result: %+v", res)
	}
	if repo.updatedID != 7 || repo.updatedCode != "4821" {
		t.Errorf("vendor code not persisted: id=%d code=%q", repo.updatedID, repo.updatedCode)
	}
	if erpSvc.got.Nome != "ACME LTDA" {
		t.Errorf("registry data not forwarded to ERP: %+v", erpSvc.got)
	}
}

func TestPreCadastro_FornecedorNaoEncontrado(t *testing.T) {
	svc, _ := newService(&mockRepo{}, nil, nil, nil)
	_, err := svc.PreCadastro(context.Background(), 99)
	if !errors.Is(err, fornecedor.ErrNaoEncontrado) {
		t.Errorf("expected ErrNaoEncontrado, got %v", err)
	}
}

func TestPreCadastro_CNPJLookupFailure(t *testing.T) {
	repo := &mockRepo{items: []fornecedor.Fornecedor{{ID: 1, CNPJ: "12345678000195"}}}
	cnpjSvc := &mockCNPJ{err: cnpj.ErrLimiteConsultas}
	svc, _ := newService(repo, cnpjSvc, nil, nil)

	_, err := svc.PreCadastro(context.Background(), 1)
	if !errors.Is(err, cnpj.ErrLimiteConsultas) {
		t.Errorf("expected wrapped ErrLimiteConsultas, got %v", err)
	}
}

func TestPreCadastro_ERPFailureDoesNotStoreCode(t *testing.T) {
	repo := &mockRepo{items: []fornecedor.Fornecedor{{ID: 1, CNPJ: "12345678000195"}}}
	cnpjSvc := &mockCNPJ{empresa: &erp.Empresa{CNPJ: "12345678000195"}}
	erpSvc := &mockERP{res: erp.Resultado{Success: false, Message: "Erro interno do ERP. Tente novamente mais tarde."}}
	svc, _ := newService(repo, cnpjSvc, erpSvc, nil)

	res, err := svc.PreCadastro(context.Background(), 1)
	if err != nil {
		t.Fatalf("ERP refusal must not be an error: %v", err)
	}
	if res.Success {
		t.Error("expected failed result")
	}
	if repo.updatedCode != "" {
		t.Error("vendor code must not be stored on failure")
	}
}

func TestVerificarERP_FoundRemovesPendingRow(t *testing.T) {
	repo := &mockRepo{}
	v := &mockVerifier{codigo: "55", found: true}
	svc, _ := newService(repo, nil, nil, v)

	resp := svc.VerificarERP(context.Background(), "12.345.678/0001-95")
	if !resp.Cadastrado || resp.CodigoERP != "55" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if repo.deletedCNPJ != "12345678000195" {
		t.Errorf("expected delete by bare digits, got %q", repo.deletedCNPJ)
	}
}

func TestVerificarERP_NotFoundKeepsRow(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newService(repo, nil, nil, &mockVerifier{found: false})

	resp := svc.VerificarERP(context.Background(), "12345678000195")
	if resp.Cadastrado {
		t.Error("expected not registered")
	}
	if repo.deletedCNPJ != "" {
		t.Error("pending row must not be deleted")
	}
}

func TestVerificarERP_WebhookErrorReportsNotRegistered(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newService(repo, nil, nil, &mockVerifier{err: errors.New("timeout")})

	resp := svc.VerificarERP(context.Background(), "12345678000195")
	if resp.Cadastrado {
		t.Error("webhook failure must report not registered")
	}
	if repo.deletedCNPJ != "" {
		t.Error("pending row must not be deleted on webhook failure")
	}
}

func TestERPLog_NormalizesKey(t *testing.T) {
	svc, buf := newService(&mockRepo{}, nil, nil, nil)
	buf.Append("12345678000195", cache.DebugEntry{Operation: "SaveRecord"})

	entries := svc.ERPLog("12.345.678/0001-95")
	if len(entries) != 1 || entries[0].Operation != "SaveRecord" {
		t.Errorf("expected one entry via punctuated CNPJ, got %+v", entries)
	}
}
