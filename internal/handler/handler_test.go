package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/phdplan/internal/config"
	"github.com/iliyamo/phdplan/internal/middleware"
	"github.com/iliyamo/phdplan/internal/recurrence"
	"github.com/iliyamo/phdplan/internal/repository"
	"github.com/iliyamo/phdplan/internal/service"
	"github.com/iliyamo/phdplan/internal/utils"
)

const secret = "handler-secret"

var now = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

var taskCols = []string{
	"id", "user_id", "descricao", "data", "status", "prioridade", "categoria", "descricao_original",
	"o_que", "como", "onde", "cta", "duracao", "kpi_meta", "tipo_dia", "dia_semana",
	"tema_macro", "angulo", "canal_area",
	"recorrencia_tipo", "recorrencia_intervalo", "recorrencia_dia_mes", "recorrencia_dias_semana",
	"recorrencia_inicio", "recorrencia_fim", "serie_id", "created_at", "updated_at",
}

func taskRow(rows *sqlmock.Rows, id, owner uint64, desc string) *sqlmock.Rows {
	return rows.AddRow(id, owner, desc, "2026-01-05", "A fazer", "Alta", "Tese", "",
		"", "", "", "", "", "", "", "", "", "", "",
		"", 0, 0, "", nil, nil, "", now, now)
}

type fixture struct {
	e    *echo.Echo
	mock sqlmock.Sqlmock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "mysql")

	e := echo.New()
	plan := NewPlanHandler(service.NewPlanner(sdb, service.NopPublisher{}, nil))
	users := NewUserHandler(service.NewAccounts(sdb, bcrypt.MinCost))
	auth := NewAuthHandler(config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1},
		service.NewAccounts(sdb, bcrypt.MinCost), repository.NewTokenRepo(sdb))

	e.POST("/v1/auth/logout", auth.Logout)
	g := e.Group("/v1", middleware.JWTAuth(secret))
	g.GET("/tasks", plan.ListTasks)
	g.POST("/tasks", plan.CreateTask)
	g.PATCH("/tasks/:id", plan.UpdateTask)
	g.DELETE("/tasks/:id", plan.DeleteTask)
	g.POST("/shares", plan.SharePlan)
	g.POST("/import/excel", plan.ImportExcel)
	g.DELETE("/users/:id", users.Delete)
	return fixture{e: e, mock: mock}
}

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func (f fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f fixture) json(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return f.do(t, method, path, token, r, echo.MIMEApplicationJSON)
}

func TestFailStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Field: "data", Message: "required"}, http.StatusBadRequest},
		{recurrence.ErrEmptyRecurrence, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", recurrence.ErrInvalidRule), http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrNotFound, http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
		{&service.TxError{Op: "x", Err: errors.New("boom")}, http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, fail(c, tc.err))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	}
}

func TestPageParams(t *testing.T) {
	e := echo.New()
	ctx := func(q string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/x"+q, nil), httptest.NewRecorder())
	}

	p, err := page(ctx(""), defaultTaskLimit)
	require.NoError(t, err)
	assert.Equal(t, repository.Page{Limit: defaultTaskLimit}, p)

	p, err = page(ctx("?offset=20&limit=999999"), defaultLimit)
	require.NoError(t, err)
	assert.Equal(t, repository.Page{Offset: 20, Limit: maxLimit}, p)

	_, err = page(ctx("?limit=0"), defaultLimit)
	assert.Error(t, err)
	_, err = page(ctx("?offset=-1"), defaultLimit)
	assert.Error(t, err)
}

func TestListTasksRequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.json(t, http.MethodGet, "/v1/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListTasksAdmin(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT .* FROM atividades ORDER BY id DESC LIMIT 10 OFFSET 0`).
		WillReturnRows(taskRow(taskRow(sqlmock.NewRows(taskCols), 2, 1, "b"), 1, 3, "a"))

	rec := f.json(t, http.MethodGet, "/v1/tasks?limit=10", bearer(t, 9, "admin"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0]["descricao"])
	assert.Equal(t, "2026-01-05", tasks[0]["data"])
	assert.Equal(t, "Alta", tasks[0]["prioridade"])
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateTaskBadRequests(t *testing.T) {
	f := newFixture(t)
	tok := bearer(t, 9, "admin")

	rec := f.json(t, http.MethodPost, "/v1/tasks", tok, `{"descricao":"x","prioridade":"Urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(t, http.MethodPost, "/v1/tasks", tok, `{"descricao":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "data")

	rec = f.json(t, http.MethodPost, "/v1/tasks", tok, `{
		"descricao":"Month end",
		"recorrencia_tipo":"dia_mes",
		"recorrencia_dia_mes":31,
		"recorrencia_inicio":"2026-02-01",
		"recorrencia_fim":"2026-02-28"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), recurrence.ErrEmptyRecurrence.Error())
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateTaskDefaultsPriority(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO atividades`).
		WithArgs(uint64(9), "Read paper", "2026-01-05", "A fazer", "Média", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	f.mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).
		WillReturnRows(taskRow(sqlmock.NewRows(taskCols), 5, 9, "Read paper"))
	f.mock.ExpectCommit()

	rec := f.json(t, http.MethodPost, "/v1/tasks", bearer(t, 9, "admin"), `{"descricao":"Read paper","data":"2026-01-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateTaskForbidden(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT .* FROM users WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at", "updated_at"}).
			AddRow(2, "bob@example.com", "x", "user", now, now))
	f.mock.ExpectQuery(`SELECT .* FROM plan_shares WHERE shared_with_email = \?`).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "shared_with_email", "permission", "created_at"}))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).
		WillReturnRows(taskRow(sqlmock.NewRows(taskCols), 3, 1, "mine"))
	f.mock.ExpectRollback()

	rec := f.json(t, http.MethodPatch, "/v1/tasks/3", bearer(t, 2, "user"), `{"status":"Feito"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeleteTaskBadID(t *testing.T) {
	f := newFixture(t)
	rec := f.json(t, http.MethodDelete, "/v1/tasks/abc", bearer(t, 9, "admin"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareRejectsUnknownPermission(t *testing.T) {
	f := newFixture(t)
	rec := f.json(t, http.MethodPost, "/v1/shares", bearer(t, 1, "user"),
		`{"shared_with_email":"bob@example.com","permission":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRequiresFile(t *testing.T) {
	f := newFixture(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	rec := f.do(t, http.MethodPost, "/v1/import/excel", bearer(t, 1, "user"), &body, w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file")
}

func TestImportRejectsNonWorkbook(t *testing.T) {
	f := newFixture(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "plan.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a zip"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rec := f.do(t, http.MethodPost, "/v1/import/excel", bearer(t, 1, "user"), &body, w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeleteSelfRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.json(t, http.MethodDelete, "/v1/users/9", bearer(t, 9, "admin"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(t, http.MethodDelete, "/v1/users/4", bearer(t, 2, "user"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogoutWithBearerRevokesAll(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = NOW\(\) WHERE user_id = \?`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rec := f.json(t, http.MethodPost, "/v1/auth/logout", bearer(t, 4, "user"), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())

	rec = f.json(t, http.MethodPost, "/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
