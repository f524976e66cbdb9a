package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safe2go/support-import/internal/domain"
	apperrors "github.com/safe2go/support-import/pkg/util/errorutil"
)

var (
	adminOp  = domain.Operator{ID: "u-1", Name: "Pedro Lima", Role: domain.OperatorRoleAdmin}
	clientOp = domain.Operator{ID: "u-2", Name: "Maria Alves", Role: domain.OperatorRoleClient}
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret")
	token, expiresAt, err := tm.GenerateToken(adminOp, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, adminOp, claims.Operator())
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret")

	other, _, err := NewTokenManager("other").GenerateToken(adminOp, time.Hour)
	require.NoError(t, err)
	_, err = tm.ParseToken(other)
	assert.Error(t, err)

	expired, _, err := tm.GenerateToken(adminOp, -time.Minute)
	require.NoError(t, err)
	_, err = tm.ParseToken(expired)
	assert.Error(t, err)

	anonymous, _, err := tm.GenerateToken(domain.Operator{ID: "u-3"}, time.Hour)
	require.NoError(t, err)
	_, err = tm.ParseToken(anonymous)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Name: "x", RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)
}

func newApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/", NewAuthMiddleware(tm).Handle, guard, func(c *fiber.Ctx) error {
		op, ok := OperatorFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(op.Name)
	})
	return app
}

func request(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMiddlewareAndRoleGuard(t *testing.T) {
	tm := NewTokenManager("secret")
	app := newApp(tm, RequireRole(domain.OperatorRoleAdmin))

	adminToken, _, err := tm.GenerateToken(adminOp, time.Hour)
	require.NoError(t, err)
	clientToken, _, err := tm.GenerateToken(clientOp, time.Hour)
	require.NoError(t, err)

	status, body := request(t, app, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pedro Lima", body)

	status, body = request(t, app, "Bearer "+clientToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body)

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		status, body = request(t, app, header)
		assert.Equal(t, http.StatusUnauthorized, status, header)
		assert.Equal(t, "UNAUTHORIZED", body, header)
	}
}

func TestRequireRoleAnyOperator(t *testing.T) {
	tm := NewTokenManager("secret")
	app := newApp(tm, RequireRole())
	clientToken, _, err := tm.GenerateToken(clientOp, time.Hour)
	require.NoError(t, err)

	status, body := request(t, app, "bearer "+clientToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Maria Alves", body)
}
