package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	audithandler "simpleit/simpledfe_core/internal/adapters/http/audit"
	authhandler "simpleit/simpledfe_core/internal/adapters/http/auth"
	documentohandler "simpleit/simpledfe_core/internal/adapters/http/documento"
	fornecedorhandler "simpleit/simpledfe_core/internal/adapters/http/fornecedor"
	healthhandler "simpleit/simpledfe_core/internal/adapters/http/health"
	reporthandler "simpleit/simpledfe_core/internal/adapters/http/report"
	appaudit "simpleit/simpledfe_core/internal/application/audit"
	appdanfse "simpleit/simpledfe_core/internal/application/danfse"
	appdocumento "simpleit/simpledfe_core/internal/application/documento"
	appfornecedor "simpleit/simpledfe_core/internal/application/fornecedor"
	apphealth "simpleit/simpledfe_core/internal/application/health"
	appreport "simpleit/simpledfe_core/internal/application/report"
	appuser "simpleit/simpledfe_core/internal/application/user"
	"simpleit/simpledfe_core/internal/core/audit"
	"simpleit/simpledfe_core/internal/core/documento"
	"simpleit/simpledfe_core/internal/core/erp"
	"simpleit/simpledfe_core/internal/core/fornecedor"
	"simpleit/simpledfe_core/internal/core/user"
	"simpleit/simpledfe_core/internal/infrastructure/cache"
	"simpleit/simpledfe_core/internal/infrastructure/config"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
	"simpleit/simpledfe_core/internal/testutil"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]user.User
	next  int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]user.User), next: 1}
}

func (m *memUserRepo) Create(_ context.Context, u user.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.next
	m.next++
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *memUserRepo) FindByID(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memUserRepo) FindByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) FindByResetToken(_ context.Context, token string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpira != nil && u.ResetTokenExpira.After(time.Now()) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.PasswordHash = hash
	u.ResetToken = nil
	m.users[id] = u
	return nil
}

func (m *memUserRepo) SetResetToken(_ context.Context, id int64, token string, expira time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ResetToken = &token
	u.ResetTokenExpira = &expira
	m.users[id] = u
	return nil
}

type memDocRepo struct {
	mu         sync.Mutex
	lastParams documento.ListParams
}

func (m *memDocRepo) Insert(_ context.Context, _ documento.Documento) (int64, error) {
	return 1, nil
}
func (m *memDocRepo) ExistsByChave(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
func (m *memDocRepo) FindByID(_ context.Context, _ string, _ int64) (*documento.Documento, error) {
	return nil, nil
}
func (m *memDocRepo) List(_ context.Context, params documento.ListParams) ([]documento.Documento, int, error) {
	m.mu.Lock()
	m.lastParams = params
	m.mu.Unlock()
	return []documento.Documento{}, 0, nil
}
func (m *memDocRepo) ListByPeriodo(_ context.Context, _, _, _ string) ([]documento.Documento, error) {
	return nil, nil
}
func (m *memDocRepo) Stats(_ context.Context) (documento.Stats, error) {
	return documento.Stats{TotalNFSe: 3}, nil
}

func (m *memDocRepo) last() documento.ListParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}

type memFornecedorRepo struct{}

func (memFornecedorRepo) Create(_ context.Context, _ fornecedor.Fornecedor) (int64, error) {
	return 1, nil
}
func (memFornecedorRepo) FindByID(_ context.Context, _ int64) (*fornecedor.Fornecedor, error) {
	return nil, nil
}
func (memFornecedorRepo) FindByCNPJ(_ context.Context, _ string) (*fornecedor.Fornecedor, error) {
	return nil, nil
}
func (memFornecedorRepo) List(_ context.Context, _ fornecedor.ListParams) ([]fornecedor.Fornecedor, int, error) {
	return []fornecedor.Fornecedor{}, 0, nil
}
func (memFornecedorRepo) UpdateCodigoERP(_ context.Context, _ int64, _ string) error { return nil }
func (memFornecedorRepo) DeleteByCNPJ(_ context.Context, _ string) error             { return nil }

type memActionRepo struct{}

func (memActionRepo) SaveAction(_ context.Context, _ audit.UserActionLog) error { return nil }
func (memActionRepo) ListActions(_ context.Context, _ audit.ActionListParams) ([]audit.UserActionLog, int, error) {
	return []audit.UserActionLog{}, 0, nil
}

type stubCNPJ struct{}

func (stubCNPJ) Consultar(_ context.Context, _ string) (*erp.Empresa, error) {
	return &erp.Empresa{}, nil
}

type stubERP struct{}

func (stubERP) PreCadastro(_ context.Context, _ erp.Empresa) erp.Resultado {
	return erp.Resultado{Success: true}
}

type stubVerifier struct{}

func (stubVerifier) VerificarCadastro(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

type testEnv struct {
	server  *Server
	docRepo *memDocRepo
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	log := testutil.NewNullLogger()

	authCfg := config.AuthSettings{
		Enabled:   true,
		Mode:      "local",
		JWTSecret: "test-secret",
		BypassPaths: []string{
			"/health", "/api/auth/login", "/api/auth/register",
			"/api/auth/forgot-password", "/api/auth/reset-password",
		},
	}
	authenticator, err := middleware.NewJWTAuthenticator(authCfg, log)
	if err != nil {
		t.Fatalf("failed to build authenticator: %v", err)
	}

	userSvc := appuser.NewService(newMemUserRepo(), nil, []byte(authCfg.JWTSecret), log)
	auditSvc := appaudit.NewService(memActionRepo{}, log)
	normalizer := appdanfse.NewService(log)
	docRepo := &memDocRepo{}
	docSvc := appdocumento.NewService(docRepo, normalizer, log)
	fornSvc := appfornecedor.NewService(memFornecedorRepo{}, stubCNPJ{}, stubERP{}, stubVerifier{}, cache.NewDebugBuffer(10), log)
	reportSvc := appreport.NewService(docRepo, normalizer, 2, log)
	healthSvc := apphealth.NewService(apphealth.Metadata{Service: "simpledfe_core", Version: "test"})

	srv, err := New(Options{
		HTTP:              config.HTTPSettings{Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second},
		Logger:            log,
		Auth:              authenticator,
		AuthHandler:       authhandler.NewHandler(userSvc, auditSvc, log),
		DocumentoHandler:  documentohandler.NewHandler(docSvc, auditSvc, log),
		FornecedorHandler: fornecedorhandler.NewHandler(fornSvc, auditSvc, log),
		ReportHandler:     reporthandler.NewHandler(reportSvc, log),
		AuditHandler:      audithandler.NewHandler(auditSvc, log),
		HealthHandler:     healthhandler.NewHandler(healthSvc),
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, docRepo: docRepo}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

// login registers an account and returns a valid session token.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "maria",
		"email":    "maria@example.com",
		"password": "segredo1",
		"nome":     "Maria Silva",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register failed: status %d body %s", resp.Code, resp.Body.String())
	}

	resp = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "maria",
		"password": "segredo1",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed: status %d body %s", resp.Code, resp.Body.String())
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || out.Token == "" {
		t.Fatalf("login response missing token: %s", resp.Body.String())
	}
	return out.Token
}

func TestNew_RequiresLogger(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error when logger is missing")
	}
}

func TestHealth_NoTokenRequired(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "UP") {
		t.Errorf("unexpected health payload: %s", resp.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/fornecedores"},
		{http.MethodGet, "/api/nfse"},
		{http.MethodGet, "/api/dashboard/stats"},
		{http.MethodGet, "/api/audit-logs"},
		{http.MethodPost, "/api/relatorios/nfse-tributos"},
	}
	for _, p := range paths {
		resp := env.do(t, p.method, p.path, "", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without token, got %d", p.method, p.path, resp.Code)
		}
	}
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var u user.User
	if err := json.Unmarshal(resp.Body.Bytes(), &u); err != nil {
		t.Fatalf("invalid me payload: %v", err)
	}
	if u.Username != "maria" {
		t.Errorf("expected username maria, got %q", u.Username)
	}
}

func TestDocumentListing_RoutesPerTipo(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)

	for _, tipo := range []string{"nfse", "nfe", "cte"} {
		resp := env.do(t, http.MethodGet, "/api/"+tipo+"?page=2&limit=5", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("GET /api/%s: expected 200, got %d: %s", tipo, resp.Code, resp.Body.String())
		}
		if got := env.docRepo.last(); got.Tipo != tipo || got.Page != 2 || got.Limit != 5 {
			t.Errorf("GET /api/%s: unexpected params forwarded: %+v", tipo, got)
		}
	}

	resp := env.do(t, http.MethodGet, "/api/boleto", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("unknown document type should be 404, got %d", resp.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodGet, "/api/dashboard/stats", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var stats documento.Stats
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid stats payload: %v", err)
	}
	if stats.TotalNFSe != 3 {
		t.Errorf("expected TotalNFSe 3, got %d", stats.TotalNFSe)
	}
}

func TestReport_MissingPeriodIsBadRequest(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/relatorios/nfse-tributos", token, map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing period, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVerificarERP_NotRegistered(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/fornecedores/verificar-erp", token, map[string]string{"cnpj": "12.345.678/0001-95"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out struct {
		Cadastrado bool `json:"cadastrado"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if out.Cadastrado {
		t.Error("verifier returns not found, expected cadastrado=false")
	}
}
