package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appbilling "github.com/socialstax/backend/internal/application/billing"
	appidentity "github.com/socialstax/backend/internal/application/identity"
	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/identity"
	"github.com/socialstax/backend/internal/infrastructure/auth"
	"github.com/socialstax/backend/internal/infrastructure/config"
	"github.com/socialstax/backend/internal/infrastructure/persistence"
	"github.com/socialstax/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testEnv wires the handlers against sqlite-backed repositories so the
// tests exercise the full request path.
type testEnv struct {
	router     *gin.Engine
	jwtService *auth.JWTService
	userRepo   *persistence.UserRepository
	usageRepo  *persistence.UsageRepository
	grantRepo  *persistence.GrantRepository
	user       *identity.User
	admin      *identity.User
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&persistence.UserModel{},
		&persistence.UsageRecordModel{},
		&persistence.FreeAccessGrantModel{},
	))

	userRepo := persistence.NewUserRepository(db)
	usageRepo := persistence.NewUsageRepository(db)
	grantRepo := persistence.NewGrantRepository(db)

	logger := zap.NewNop()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-for-handlers",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "socialstax-test",
	})

	authService := appidentity.NewAuthService(userRepo, jwtService, logger)
	quotaService := appbilling.NewQuotaService(usageRepo, grantRepo, userRepo, billing.DefaultLimitTable(), logger)
	usageService := appbilling.NewUsageService(usageRepo, logger)
	grantService := appbilling.NewGrantService(grantRepo, userRepo, logger)
	resetService := appbilling.NewResetService(usageRepo, logger)

	ctx := context.Background()
	user, err := identity.NewUser("user@example.com", "password1")
	require.NoError(t, err)
	require.NoError(t, userRepo.Save(ctx, user))

	admin, err := identity.NewAdminUser("admin@example.com", "password1")
	require.NoError(t, err)
	require.NoError(t, userRepo.Save(ctx, admin))

	authHandler := NewAuthHandler(authService)
	quotaHandler := NewQuotaHandler(quotaService)
	usageHandler := NewUsageHandler(usageService, quotaService)
	grantHandler := NewGrantHandler(grantService)
	resetHandler := NewResetHandler(resetService)
	systemHandler := NewSystemHandler(&persistence.Database{DB: db}, "test")

	router := gin.New()
	router.Use(middleware.RequestID())

	router.GET("/health", systemHandler.Health)
	router.GET("/ready", systemHandler.Ready)

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/refresh", authHandler.Refresh)

	authed := v1.Group("", middleware.RequireAuth(jwtService))
	authed.POST("/quota/check", quotaHandler.Check)
	authed.POST("/quota/consume", quotaHandler.Consume)
	authed.POST("/usage/increment", usageHandler.Increment)
	authed.GET("/usage", usageHandler.GetUsage)

	adm := v1.Group("/admin", middleware.RequireAuth(jwtService), middleware.RequireAdmin())
	adm.GET("/users/:id/usage", usageHandler.GetUserUsage)
	adm.GET("/users/:id/grants", grantHandler.ListForUser)
	adm.POST("/grants", grantHandler.Create)
	adm.GET("/grants", grantHandler.List)
	adm.DELETE("/grants/:id", grantHandler.Revoke)
	adm.POST("/usage/reset", resetHandler.Trigger)

	return &testEnv{
		router:     router,
		jwtService: jwtService,
		userRepo:   userRepo,
		usageRepo:  usageRepo,
		grantRepo:  grantRepo,
		user:       user,
		admin:      admin,
	}
}

func (e *testEnv) token(t *testing.T, user *identity.User) string {
	t.Helper()
	pair, err := e.jwtService.GenerateTokenPair(user)
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// apiEnvelope mirrors the standard response shape with the data left raw
// so each test can decode its own payload.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) apiEnvelope {
	t.Helper()
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Data)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
	return envelope
}
