package documento

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	appdanfse "simpleit/simpledfe_core/internal/application/danfse"
	appdocumento "simpleit/simpledfe_core/internal/application/documento"
	"simpleit/simpledfe_core/internal/core/documento"
	"simpleit/simpledfe_core/internal/testutil"
)

type mockRepo struct {
	docs   []documento.Documento
	nextID int64
	total  int
}

func (m *mockRepo) Insert(ctx context.Context, d documento.Documento) (int64, error) {
	m.nextID++
	d.ID = m.nextID
	m.docs = append(m.docs, d)
	return d.ID, nil
}

func (m *mockRepo) ExistsByChave(ctx context.Context, tipo, chave string) (bool, error) {
	for _, d := range m.docs {
		if d.Tipo == tipo && d.Chave == chave {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) FindByID(ctx context.Context, tipo string, id int64) (*documento.Documento, error) {
	for i := range m.docs {
		if m.docs[i].Tipo == tipo && m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, nil
}

func (m *mockRepo) List(ctx context.Context, params documento.ListParams) ([]documento.Documento, int, error) {
	return m.docs, m.total, nil
}

func (m *mockRepo) ListByPeriodo(ctx context.Context, ini, fim, cnpj string) ([]documento.Documento, error) {
	return m.docs, nil
}

func (m *mockRepo) Stats(ctx context.Context) (documento.Stats, error) {
	return documento.Stats{TotalNFSe: len(m.docs)}, nil
}

const sampleNFSe = `<NFSe><infNFSe Id="NFS35001">
  <nNFSe>35</nNFSe>
  <dhEmi>2025-02-01T10:00:00</dhEmi>
  <emit><CNPJ>12345678000195</CNPJ><xNome>PRESTADORA LTDA</xNome></emit>
  <valores><vServ>150.00</vServ></valores>
</infNFSe></NFSe>`

// newRouter mounts the handler behind the same route shapes the server
// uses, so chi URL params resolve.
func newRouter(t *testing.T) (http.Handler, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	svc := appdocumento.NewService(repo, appdanfse.NewService(testutil.NewNullLogger()), testutil.NewNullLogger())
	h := NewHandler(svc, nil, testutil.NewNullLogger())

	r := chi.NewRouter()
	r.Route("/api/{tipo:nfse|nfe|cte}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}/xml", h.DownloadXML)
	})
	r.Post("/api/nfse/import", h.Import)
	r.Get("/api/nfse/{id}/danfse", h.Danfse)
	r.Get("/api/dashboard/stats", h.Stats)
	return r, repo
}

func TestImport_RawBody(t *testing.T) {
	router, repo := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/nfse/import", strings.NewReader(sampleNFSe))
	req.Header.Set("Content-Type", "application/xml")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(repo.docs) != 1 {
		t.Fatalf("expected one stored document, got %d", len(repo.docs))
	}
	if repo.docs[0].CNPJPrestador != "12345678000195" {
		t.Errorf("capture fields not extracted: %+v", repo.docs[0])
	}
}

func TestImport_EmptyBody(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/nfse/import", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", w.Code)
	}
}

func TestImport_DuplicateChave(t *testing.T) {
	router, _ := newRouter(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/nfse/import", strings.NewReader(sampleNFSe))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		want := http.StatusCreated
		if i == 1 {
			want = http.StatusConflict
		}
		if w.Code != want {
			t.Errorf("import %d: expected %d, got %d", i, want, w.Code)
		}
	}
}

func TestList_ForwardsTipoFromRoute(t *testing.T) {
	router, repo := newRouter(t)
	repo.docs = []documento.Documento{{ID: 1, Tipo: documento.TipoCTe, Chave: "k"}}
	repo.total = 1

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cte/?page=2&limit=5", nil))

	var resp appdocumento.ListResponse
	testutil.ReadJSONResponse(t, w, &resp)
	if resp.Pagination.Page != 2 || resp.Pagination.Limit != 5 {
		t.Errorf("query params not forwarded: %+v", resp.Pagination)
	}
	if len(resp.Documentos) != 1 {
		t.Errorf("expected one row, got %d", len(resp.Documentos))
	}
}

func TestList_UnknownTipoIs404(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/boleto/", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unrouted tipo, got %d", w.Code)
	}
}

func TestDownloadXML_ReturnsAttachment(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/nfse/import", strings.NewReader(sampleNFSe))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("import failed: %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nfse/1/xml", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=nfse-1.xml" {
		t.Errorf("unexpected disposition: %q", got)
	}
	if w.Body.String() != sampleNFSe {
		t.Error("download must return the original payload")
	}
}

func TestDownloadXML_NotFound(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nfse/99/xml", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDanfse_NormalizesStoredDocument(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/nfse/import", strings.NewReader(sampleNFSe))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nfse/1/danfse", nil))

	var doc map[string]any
	testutil.ReadJSONResponse(t, w, &doc)
	if len(doc) == 0 {
		t.Error("expected a normalized document payload")
	}
}

func TestStats_OK(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))

	var stats documento.Stats
	testutil.ReadJSONResponse(t, w, &stats)
	if stats.TotalNFSe != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
