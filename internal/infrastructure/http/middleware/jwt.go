package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"simpleit/simpledfe_core/internal/infrastructure/config"
	httperrors "simpleit/simpledfe_core/internal/infrastructure/http"
)

// ContextKeyToken exposes the verified JWT token via request context.
type ContextKeyToken struct{}

// ContextKeyUser exposes the authenticated identity via request context.
type ContextKeyUser struct{}

// UserClaims is the identity extracted from a validated token.
type UserClaims struct {
	UserID   int64
	Username string
	Tipo     string
}

// GetUser returns the authenticated identity stored in ctx, if any.
func GetUser(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(ContextKeyUser{}).(UserClaims)
	return claims, ok
}

// JWTAuthenticator validates Authorization headers. In local mode tokens are
// HS256 signed with the application secret; in jwks mode they are validated
// against a remote JWKS endpoint.
type JWTAuthenticator struct {
	cfg        config.AuthSettings
	log        *slog.Logger
	jwks       keyfunc.Keyfunc
	cancel     context.CancelFunc
	bypassPath map[string]struct{}
}

func NewJWTAuthenticator(cfg config.AuthSettings, log *slog.Logger) (*JWTAuthenticator, error) {
	auth := &JWTAuthenticator{
		cfg:        cfg,
		log:        log,
		bypassPath: make(map[string]struct{}),
	}

	for _, path := range cfg.BypassPaths {
		if path != "" {
			auth.bypassPath[path] = struct{}{}
		}
	}

	if !cfg.Enabled || cfg.Mode != "jwks" {
		return auth, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	override := keyfunc.Override{
		RefreshInterval: 6 * time.Hour,
		RefreshErrorHandlerFunc: func(url string) func(context.Context, error) {
			return func(c context.Context, err error) {
				log.Error("failed to refresh JWKS", "url", url, "error", err)
			}
		},
		HTTPTimeout: 10 * time.Second,
	}

	jwks, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{cfg.JWKSetURI}, override)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("unable to load JWKS: %w", err)
	}
	auth.jwks = jwks
	auth.cancel = cancel

	return auth, nil
}

// Middleware enforces JWT validation on inbound requests.
func (a *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	if !a.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.shouldBypass(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			httperrors.WriteError(w, http.StatusUnauthorized, "Erro de Autenticação", []string{"Credenciais de acesso inválidas"}, a.log)
			return
		}

		token, err := a.parse(tokenString)
		if err != nil || !token.Valid {
			a.log.Warn("token validation failed", "error", err)
			httperrors.WriteError(w, http.StatusUnauthorized, "Erro de Autenticação", []string{"Token inválido ou expirado"}, a.log)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyToken{}, token)
		if claims, ok := identityFromToken(token); ok {
			ctx = context.WithValue(ctx, ContextKeyUser{}, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *JWTAuthenticator) parse(tokenString string) (*jwt.Token, error) {
	if a.cfg.Mode == "jwks" {
		return jwt.Parse(tokenString, a.jwks.Keyfunc,
			jwt.WithIssuer(a.cfg.IssuerURI),
			jwt.WithLeeway(a.cfg.ClockSkew),
			jwt.WithValidMethods([]string{
				jwt.SigningMethodRS256.Alg(),
				jwt.SigningMethodRS384.Alg(),
				jwt.SigningMethodRS512.Alg(),
				jwt.SigningMethodPS256.Alg(),
				jwt.SigningMethodES256.Alg(),
			}),
		)
	}

	return jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.JWTSecret), nil
	},
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
}

func identityFromToken(token *jwt.Token) (UserClaims, bool) {
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, false
	}

	var claims UserClaims
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.UserID, _ = strconv.ParseInt(sub, 10, 64)
	}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if tipo, ok := mapClaims["tipo"].(string); ok {
		claims.Tipo = tipo
	}
	if claims.Username == "" && claims.UserID == 0 {
		return UserClaims{}, false
	}
	return claims, true
}

// Close stops background JWKS refreshers.
func (a *JWTAuthenticator) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *JWTAuthenticator) shouldBypass(path string) bool {
	_, ok := a.bypassPath[path]
	return ok
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}
