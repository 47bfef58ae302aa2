package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appuser "simpleit/simpledfe_core/internal/application/user"
	"simpleit/simpledfe_core/internal/core/user"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
	"simpleit/simpledfe_core/internal/testutil"
)

type mockRepo struct {
	mu     sync.Mutex
	nextID int64
	users  []user.User
}

func (m *mockRepo) Create(ctx context.Context, u user.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.users = append(m.users, u)
	return u.ID, nil
}

func (m *mockRepo) find(match func(u user.User) bool) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if match(m.users[i]) {
			u := m.users[i]
			return &u
		}
	}
	return nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*user.User, error) {
	return m.find(func(u user.User) bool { return u.ID == id }), nil
}

func (m *mockRepo) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return m.find(func(u user.User) bool { return u.Username == username }), nil
}

func (m *mockRepo) FindByEmail(ctx context.Context, addr string) (*user.User, error) {
	return m.find(func(u user.User) bool { return u.Email == addr }), nil
}

func (m *mockRepo) FindByResetToken(ctx context.Context, token string) (*user.User, error) {
	now := time.Now()
	return m.find(func(u user.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token &&
			u.ResetTokenExpira != nil && u.ResetTokenExpira.After(now)
	}), nil
}

func (m *mockRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].PasswordHash = hash
			m.users[i].ResetToken = nil
			m.users[i].ResetTokenExpira = nil
		}
	}
	return nil
}

func (m *mockRepo) SetResetToken(ctx context.Context, id int64, token string, expira time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].ResetToken = &token
			m.users[i].ResetTokenExpira = &expira
		}
	}
	return nil
}

func newHandler(t *testing.T) (*Handler, *appuser.Service) {
	t.Helper()
	svc := appuser.NewService(&mockRepo{}, nil, []byte("test-secret"), testutil.NewNullLogger())
	return NewHandler(svc, nil, testutil.NewNullLogger()), svc
}

func register(t *testing.T, svc *appuser.Service) {
	t.Helper()
	_, err := svc.Register(context.Background(), appuser.RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "segredo1",
		Nome:     "Maria Silva",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

func TestLogin_OK(t *testing.T) {
	h, svc := newHandler(t)
	register(t, svc)

	w := httptest.NewRecorder()
	req := testutil.CreateRequest(http.MethodPost, "/api/auth/login",
		LoginRequest{Username: "maria", Password: "segredo1"}, nil)
	h.Login(w, req)

	var resp LoginResponse
	testutil.ReadJSONResponse(t, w, &resp)
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.User == nil || resp.User.Username != "maria" {
		t.Errorf("unexpected user: %+v", resp.User)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, svc := newHandler(t)
	register(t, svc)

	w := httptest.NewRecorder()
	req := testutil.CreateRequest(http.MethodPost, "/api/auth/login",
		LoginRequest{Username: "maria", Password: "errada12"}, nil)
	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	body := testutil.ReadErrorResponse(t, w)
	if body["message"] != "Erro de Autenticação" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	req := testutil.CreateRequest(http.MethodPost, "/api/auth/login", LoginRequest{Username: "maria"}, nil)
	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRegister_Created(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	req := testutil.CreateRequest(http.MethodPost, "/api/auth/register", appuser.RegisterRequest{
		Username: "joao",
		Email:    "joao@example.com",
		Password: "segredo1",
		Nome:     "João",
	}, nil)
	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegister_Duplicate(t *testing.T) {
	h, svc := newHandler(t)
	register(t, svc)

	w := httptest.NewRecorder()
	req := testutil.CreateRequest(http.MethodPost, "/api/auth/register", appuser.RegisterRequest{
		Username: "maria",
		Email:    "other@example.com",
		Password: "segredo1",
		Nome:     "Maria",
	}, nil)
	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	req := testutil.CreateRequest(http.MethodPost, "/api/auth/register", appuser.RegisterRequest{
		Username: "joao",
		Email:    "joao@example.com",
		Password: "123",
		Nome:     "João",
	}, nil)
	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestMe_RequiresSession(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	h.Me(w, testutil.CreateRequest(http.MethodGet, "/api/auth/me", nil, nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without claims, got %d", w.Code)
	}
}

func TestMe_ReturnsAuthenticatedUser(t *testing.T) {
	h, svc := newHandler(t)
	register(t, svc)

	req := testutil.CreateRequest(http.MethodGet, "/api/auth/me", nil, nil)
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUser{},
		middleware.UserClaims{UserID: 1, Username: "maria", Tipo: user.TipoComum})
	w := httptest.NewRecorder()
	h.Me(w, req.WithContext(ctx))

	var u user.User
	testutil.ReadJSONResponse(t, w, &u)
	if u.Username != "maria" || u.Email != "maria@example.com" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestLogout_OK(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	h.Logout(w, testutil.CreateRequest(http.MethodPost, "/api/auth/logout", nil, nil))

	var resp map[string]string
	testutil.ReadJSONResponse(t, w, &resp)
	if resp["message"] != "Logout realizado com sucesso" {
		t.Errorf("unexpected body: %v", resp)
	}
}
