package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/classtrack/schoolsync-backend/internal/deltas"
	"github.com/classtrack/schoolsync-backend/internal/handlers"
	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/middleware"
	"github.com/classtrack/schoolsync-backend/internal/mirror"
	"github.com/classtrack/schoolsync-backend/internal/repos"
	"github.com/classtrack/schoolsync-backend/internal/services"
	"github.com/classtrack/schoolsync-backend/internal/syncer"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

type testAPI struct {
	db     *gorm.DB
	router *gin.Engine
	staff  *types.Staff
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(types.AllModels()...))

	log := logger.NewNop()
	staffRepo := repos.NewStaffRepo(db, log)
	gradebookRepo := repos.NewGradebookRepo(db, log)
	deltaRepo := repos.NewDeltaRepo(db, log)
	actionRepo := repos.NewActionRecordRepo(db, log)
	syncRunRepo := repos.NewSyncRunRepo(db, log)

	orch := syncer.NewOrchestrator(syncer.NewGormStore(db, log), mirror.NewIlluminateAdapter(db, log), nil, log)
	engine := deltas.NewEngine(db, log)

	authService := services.NewAuthService(db, log, staffRepo, "test-secret", time.Hour)
	deltaService := services.NewDeltaService(db, log, engine, deltaRepo, gradebookRepo, nil)
	actionService := services.NewActionService(db, log, actionRepo, deltaRepo)
	syncService := services.NewSyncService(db, log, orch, syncRunRepo)

	router := NewRouter(RouterConfig{
		AuthHandler:    handlers.NewAuthHandler(log, authService),
		AuthMiddleware: middleware.NewAuthMiddleware(log, authService),
		MissingHandler: handlers.NewMissingHandler(log, deltaService),
		DeltaHandler:   handlers.NewDeltaHandler(log, deltaService),
		ActionHandler:  handlers.NewActionHandler(log, actionService),
		SyncHandler:    handlers.NewSyncHandler(log, syncService),
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	staff := &types.Staff{Email: "pat.lee@district.example", Password: string(hash), FirstName: "Pat"}
	require.NoError(t, db.Create(staff).Error)

	return &testAPI{db: db, router: router, staff: staff}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", "", gin.H{"email": a.staff.Email, "password": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_HealthcheckIsPublic(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/login", "", gin.H{"email": api.staff.Email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/deltas", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/deltas", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := api.login(t)
	rec = api.do(t, http.MethodGet, "/deltas", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouter_MissingEndpointsEnforceOwnership(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	gradebook := &types.Gradebook{Name: "Algebra GB"}
	require.NoError(t, api.db.Create(gradebook).Error)

	rec := api.do(t, http.MethodGet, "/gradebooks/"+gradebook.ID.String()+"/missing", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, api.db.Table("gradebook_owner").Create(map[string]any{
		"gradebook_id": gradebook.ID,
		"staff_id":     api.staff.ID,
	}).Error)

	rec = api.do(t, http.MethodGet, "/gradebooks/"+gradebook.ID.String()+"/missing", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/me/missing", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouter_ActionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	rec := api.do(t, http.MethodPost, "/actions", token, gin.H{"kind": "note", "body": "Checked in with family."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/actions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Actions []types.ActionRecord `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "Checked in with family.", resp.Actions[0].Body)
}

func TestRouter_SyncEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	rec := api.do(t, http.MethodPost, "/sync/staff/100", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/sync/runs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Runs []types.SyncRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
}
