package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"simpleit/simpledfe_core/internal/core/email"
	"simpleit/simpledfe_core/internal/core/user"
)

const (
	bcryptCost    = 12
	tokenLifetime = 24 * time.Hour
	resetLifetime = time.Hour
)

// Service orchestrates account management and authentication.
type Service struct {
	repo      user.Repository
	mailer    email.Sender
	jwtSecret []byte
	log       *slog.Logger
}

// NewService creates a new user service. mailer may be nil when outbound
// email is disabled.
func NewService(repo user.Repository, mailer email.Sender, jwtSecret []byte, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Nome     string `json:"nome"`
	Tipo     string `json:"tipo"`
}

// Register creates a new account and sends the welcome mail.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*user.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" || req.Email == "" || req.Nome == "" {
		return nil, fmt.Errorf("username, email e nome são obrigatórios")
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("a senha deve ter no mínimo 6 caracteres")
	}
	if req.Tipo == "" {
		req.Tipo = user.TipoComum
	}

	if existing, err := s.repo.FindByUsername(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	} else if existing != nil {
		return nil, user.ErrUsuarioExiste
	}
	if existing, err := s.repo.FindByEmail(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	} else if existing != nil {
		return nil, user.ErrUsuarioExiste
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := user.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Nome:         req.Nome,
		Tipo:         req.Tipo,
		Status:       user.StatusAtivo,
		CreatedAt:    time.Now(),
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	s.sendAsync(email.Message{
		To:      u.Email,
		Subject: "Bem-vindo ao SimpleDFe",
		HTML:    fmt.Sprintf("<p>Olá %s,</p><p>Sua conta <strong>%s</strong> foi criada com sucesso.</p>", u.Nome, u.Username),
	})

	s.log.Info("usuário criado", "user_id", id, "username", u.Username)
	return &u, nil
}

// Login validates the credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *user.User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return "", nil, user.ErrCredenciaisInvalidas
	}
	if u.Status != user.StatusAtivo {
		return "", nil, user.ErrUsuarioInativo
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, user.ErrCredenciaisInvalidas
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}

func (s *Service) issueToken(u *user.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", u.ID),
		"username": u.Username,
		"tipo":     u.Tipo,
		"iat":      now.Unix(),
		"exp":      now.Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// Me returns the account for an authenticated user ID.
func (s *Service) Me(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, user.ErrNaoEncontrado
	}
	return u, nil
}

// ForgotPassword issues a reset token and mails it to the account. Unknown
// emails succeed silently so the endpoint does not leak registered accounts.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(emailAddr)))
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if u == nil {
		s.log.Info("recuperação de senha para email desconhecido")
		return nil
	}

	token := uuid.NewString()
	if err := s.repo.SetResetToken(ctx, u.ID, token, time.Now().Add(resetLifetime)); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	s.sendAsync(email.Message{
		To:      u.Email,
		Subject: "Redefinição de senha - SimpleDFe",
		HTML:    fmt.Sprintf("<p>Olá %s,</p><p>Use o token abaixo para redefinir sua senha. Ele expira em 1 hora.</p><p><code>%s</code></p>", u.Nome, token),
	})
	return nil
}

// ResetPassword replaces the password of the account holding a valid token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("a senha deve ter no mínimo 6 caracteres")
	}

	u, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		return fmt.Errorf("find user by reset token: %w", err)
	}
	if u == nil {
		return user.ErrTokenInvalido
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info("senha redefinida", "user_id", u.ID)
	return nil
}

// sendAsync delivers mail without blocking the request flow.
func (s *Service) sendAsync(msg email.Message) {
	if s.mailer == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("pânico no envio de email", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Warn("falha no envio de email", "to", msg.To, "error", err)
		}
	}()
}
