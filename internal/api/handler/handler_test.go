package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"igress/internal/app/service"
	"igress/internal/common"
	"igress/internal/common/security"
	"igress/internal/domain/repository"
	"igress/internal/platform/cache"
	"igress/internal/platform/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver map[string][]string

func (s stubResolver) Resolve(_ context.Context, userID string) (*cache.Principal, error) {
	roles, ok := s[userID]
	if !ok {
		return nil, common.NotFoundf("User not found")
	}
	return &cache.Principal{Roles: roles, IsActive: true}, nil
}

func setupJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour, BcryptCost: 4}
	security.InitJWT()
}

func mount(pattern string, register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(security.TokenAuth))
	r.Route(pattern, register)
	return r
}

func do(t *testing.T, h http.Handler, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		tok, err := security.GenerateToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func newClassroomRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	svc := service.NewClassroomService(repository.NewPgClassroomRepository(db), repository.NewPgUserRepository(db))
	resolver := stubResolver{"staff-1": {"staff"}, "student-1": {"student"}}
	return mount("/api/classroom", NewClassroomHandler(svc, resolver).RegisterRoutes), mock
}

func TestClassroomCreate(t *testing.T) {
	setupJWT(t)
	h, mock := newClassroomRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO classrooms")).
		WithArgs(sqlmock.AnyArg(), "Algorithms", sqlmock.AnyArg(), "", "staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec, body := do(t, h, http.MethodPost, "/api/classroom/create", "staff-1", map[string]string{"name": "Algorithms"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Classroom created", body["message"])
	assert.NotEmpty(t, body["classroomId"])
	assert.Regexp(t, `^algorithms-[0-9a-f]{8}$`, body["slug"])
}

func TestClassroomCreateRequiresName(t *testing.T) {
	setupJWT(t)
	h, _ := newClassroomRouter(t)

	rec, body := do(t, h, http.MethodPost, "/api/classroom/create", "staff-1", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name is required", body["error"])
}

func TestClassroomRoutesRejectStudents(t *testing.T) {
	setupJWT(t)
	h, _ := newClassroomRouter(t)

	rec, body := do(t, h, http.MethodGet, "/api/classroom/all", "student-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", body["error"])

	rec, body = do(t, h, http.MethodGet, "/api/classroom/all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization token required", body["error"])
}

func TestAuthRegisterValidation(t *testing.T) {
	setupJWT(t)
	svc := service.NewAuthService(nil, nil)
	h := mount("/api/auth", NewAuthHandler(svc, stubResolver{}, nil).RegisterRoutes)

	rec, body := do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScheduleRequiresFields(t *testing.T) {
	setupJWT(t)
	svc := service.NewTestService(nil)
	h := mount("/api/test", NewTestHandler(svc, stubResolver{"staff-1": {"staff"}}).RegisterRoutes)

	rec, body := do(t, h, http.MethodPost, "/api/test/schedule", "staff-1", map[string]string{"classroom_id": "c1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Classroom ID, Test ID, and Scheduled Time are required", body["error"])
}

func TestFinalizeTakesClassroomTestFromPath(t *testing.T) {
	setupJWT(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	locks := lockerFunc(func(key string) error {
		assert.Equal(t, "finalize:3f2c9a10-7d4e-4b8a-9c1f-2a6b5d8e0f11:student-1", key)
		return common.ErrLockNotAcquired
	})
	svc := service.NewSubmissionService(
		repository.NewPgSubmissionRepository(db), repository.NewPgQuestionRepository(db),
		repository.NewPgTestRepository(db), repository.NewPgClassroomRepository(db),
		nil, nil, locks, time.Minute,
	)
	h := mount("/api/submission", NewSubmissionHandler(svc, stubResolver{"student-1": {"student"}}).RegisterRoutes)

	rec, body := do(t, h, http.MethodPost, "/api/submission/submit/3f2c9a10-7d4e-4b8a-9c1f-2a6b5d8e0f11", "student-1", map[string]interface{}{"mcqAnswers": []interface{}{}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, common.ErrLockNotAcquired.Error(), body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

type lockerFunc func(key string) error

func (f lockerFunc) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if err := f(key); err != nil {
		return nil, err
	}
	return func() {}, nil
}

func TestMalformedPathIDIsNotFound(t *testing.T) {
	setupJWT(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := service.NewSubmissionService(
		repository.NewPgSubmissionRepository(db), repository.NewPgQuestionRepository(db),
		repository.NewPgTestRepository(db), repository.NewPgClassroomRepository(db),
		nil, nil, lockerFunc(func(string) error { return nil }), time.Minute,
	)
	h := mount("/api/submission", NewSubmissionHandler(svc, stubResolver{"student-1": {"student"}}).RegisterRoutes)

	for _, path := range []string{"/api/submission/id/abc", "/api/submission/get-all/abc"} {
		rec, body := do(t, h, http.MethodGet, path, "student-1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Resource not found", body["error"], path)
	}
	rec, _ := do(t, h, http.MethodPost, "/api/submission/submit/abc", "student-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffListing(t *testing.T) {
	setupJWT(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	users := repository.NewPgUserRepository(db)
	svc := service.NewAdminService(users, nil)
	h := mount("/api/staff", NewStaffHandler(svc, stubResolver{"admin-1": {"admin"}, "staff-1": {"staff"}}).RegisterRoutes)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_name", "email", "classrooms", "tests"}).
			AddRow("s-1", "Ada", "ada@x.com", 2, 5))

	rec, body := do(t, h, http.MethodGet, "/api/staff/all", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	staff := body["staff"].([]interface{})
	require.Len(t, staff, 1)
	first := staff[0].(map[string]interface{})
	assert.Equal(t, "ada@x.com", first["email"])
	assert.EqualValues(t, 2, first["classroom_count"])
	assert.EqualValues(t, 5, first["test_count"])

	rec, _ = do(t, h, http.MethodGet, "/api/staff/all", "staff-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
