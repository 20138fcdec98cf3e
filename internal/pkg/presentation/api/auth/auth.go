package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/tracing"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
)

type organizationContextKey struct{ name string }

var orgCtxKey = &organizationContextKey{"organization"}

var tracer = otel.Tracer("iot-telemetry-core/auth")

var ErrMissingToken = fmt.Errorf("authorization header missing")
var ErrInvalidToken = fmt.Errorf("invalid token")

// Claims are the token claims this service cares about. Org is the name of the caller's organization.
type Claims struct {
	Org string `json:"org"`
	jwt.RegisteredClaims
}

type Enticator interface {
	RequireOrganization() func(http.Handler) http.Handler
}

type impl struct {
	secret []byte
}

func NewAuthenticator(secret []byte) (Enticator, error) {
	if len(secret) == 0 {
		return nil, errors.New("a token secret is required")
	}

	return &impl{secret: secret}, nil
}

func (a *impl) RequireOrganization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error

			logger := logging.GetLoggerFromContext(r.Context())

			_, span := tracer.Start(r.Context(), "check-auth")
			defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

			token := r.Header.Get("Authorization")

			if token == "" || !strings.HasPrefix(token, "Bearer ") {
				err = ErrMissingToken
				logger.Info().Msg(err.Error())
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			var claims *Claims
			claims, err = a.parse(token[7:])
			if err != nil {
				logger.Warn().Err(err).Msg("authorization failed")
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			r = r.WithContext(WithOrganization(r.Context(), claims.Org))

			next.ServeHTTP(w, r)
		})
	}
}

func (a *impl) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	if !token.Valid || strings.TrimSpace(claims.Org) == "" {
		return nil, fmt.Errorf("%w: organization claim missing", ErrInvalidToken)
	}

	return claims, nil
}

// NewToken signs a token for the given organization. It is used by tests and tooling.
func NewToken(secret []byte, org string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Org: org})
	return token.SignedString(secret)
}

func WithOrganization(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, orgCtxKey, org)
}

// OrganizationFromContext returns the organization name of the authenticated caller, if any.
func OrganizationFromContext(ctx context.Context) (string, bool) {
	org, ok := ctx.Value(orgCtxKey).(string)
	return org, ok && org != ""
}
