package user

import (
	"errors"
	"time"
)

// Domain errors for authentication and account management.
var (
	ErrCredenciaisInvalidas = errors.New("usuário ou senha inválidos")
	ErrUsuarioExiste        = errors.New("usuário ou email já cadastrado")
	ErrNaoEncontrado        = errors.New("usuário não encontrado")
	ErrTokenInvalido        = errors.New("token inválido ou expirado")
	ErrUsuarioInativo       = errors.New("usuário inativo")
)

// Account types.
const (
	TipoAdmin = "admin"
	TipoComum = "comum"
)

// Account statuses.
const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// User is a platform account. PasswordHash is a bcrypt digest and never
// leaves the service boundary.
type User struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Nome             string     `json:"nome"`
	Tipo             string     `json:"tipo"`
	Status           string     `json:"status"`
	ResetToken       *string    `json:"-"`
	ResetTokenExpira *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}
