package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/court-opinions/engine/internal/api/handlers"
	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/repository"
	"github.com/court-opinions/engine/internal/services"
	"github.com/court-opinions/engine/internal/storage"
	"github.com/court-opinions/engine/pkg/database"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	_, _ = logger.Init("error", "json")
	os.Exit(m.Run())
}

type opinionRow struct {
	CaseName    string `parquet:"case_name"`
	Court       string `parquet:"court"`
	CaseDate    string `parquet:"case_date"`
	JudgesNames string `parquet:"judges_names"`
}

func opinions(t *testing.T, n int) []byte {
	t.Helper()
	rows := make([]opinionRow, n)
	for i := range rows {
		rows[i] = opinionRow{
			CaseName:    fmt.Sprintf("Case %d", i),
			Court:       "Supreme Court",
			CaseDate:    "2020-01-02",
			JudgesNames: "Roe; Doe",
		}
	}
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[opinionRow](&buf)
	_, err := w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type server struct {
	t *testing.T
	h http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := storage.NewFileStore(afero.NewMemMapFs(), "/uploads", 10<<20)
	require.NoError(t, err)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	locker := lock.NewMemory()

	auth := services.NewAuthService(userRepo, []byte("router-test-secret-0123"), time.Hour)
	projects := services.NewProjectService(db, projectRepo, userRepo, assignmentRepo, store, locker,
		services.ProjectDefaults{AIModel: models.AIModelGPT, BudgetLimit: 100})
	uploads := services.NewUploadService(db, projectRepo, caseRepo, assignmentRepo, store, locker)
	cases := services.NewCaseService(db, projectRepo, caseRepo, assignmentRepo, locker)
	assigns := services.NewAssignmentService(db, projectRepo, caseRepo, userRepo, assignmentRepo, locker)

	return &server{t: t, h: NewRouter(Dependencies{
		Tokens:          auth,
		AuthHandler:     handlers.NewAuthHandler(auth, time.Hour),
		ProjectsHandler: handlers.NewProjectsHandler(projects),
		UploadsHandler:  handlers.NewUploadsHandler(uploads, 10<<20, time.Minute),
		CasesHandler:    handlers.NewCasesHandler(cases, assigns),
		HealthHandler:   handlers.NewHealthHandler(nil),
	})}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Rule    string `json:"rule"`
		Details string `json:"details"`
	} `json:"error"`
}

func (s *server) do(method, path, token string, body []byte, contentType string) (int, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr.Code, env
}

func (s *server) json(method, path, token string, v any) (int, envelope) {
	s.t.Helper()
	var body []byte
	if v != nil {
		var err error
		body, err = json.Marshal(v)
		require.NoError(s.t, err)
	}
	return s.do(method, path, token, body, "application/json")
}

// user registers an account and returns its token and id.
func (s *server) user(email, role string) (string, string) {
	s.t.Helper()
	code, env := s.json(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "password123", "full_name": email, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, code)
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &u))

	form := url.Values{"username": {email}, "password": {"password123"}}
	code, env = s.do(http.MethodPost, "/auth/login", "", []byte(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(s.t, http.StatusOK, code)
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &tok))
	require.Equal(s.t, "bearer", tok.TokenType)
	return tok.AccessToken, u.ID
}

func (s *server) upload(token, projectID, filename string, data []byte) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = fw.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())
	return s.do(http.MethodPost, "/uploads/projects/"+projectID+"/parquet", token, buf.Bytes(), mw.FormDataContentType())
}

func status(t *testing.T, env envelope) string {
	t.Helper()
	var p struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p.Status
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("admin@court.test", "admin")
	scholar, scholarID := s.user("scholar@court.test", "scholar")

	code, env := s.json(http.MethodPost, "/projects", admin, map[string]any{"name": "Opinions 2020", "description": "state courts"})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "draft", status(t, env))
	var p struct {
		ID      string `json:"id"`
		AIModel string `json:"ai_model"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Equal(t, models.AIModelGPT, p.AIModel)
	base := "/projects/" + p.ID

	code, env = s.json(http.MethodPatch, base+"/send-to-scholar", admin, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "state", env.Error.Rule)
	require.Equal(t, "scholar_assigned", env.Error.Details)

	code, env = s.upload(admin, p.ID, "opinions.parquet", opinions(t, 12))
	require.Equal(t, http.StatusOK, code)
	var sum struct {
		TotalRows     int `json:"total_rows"`
		CasesImported int `json:"cases_imported"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	require.Equal(t, 12, sum.TotalRows)
	require.Equal(t, 12, sum.CasesImported)

	code, env = s.json(http.MethodPatch, base+"/assign-scholar?scholar_id="+scholarID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ready", status(t, env))

	code, env = s.json(http.MethodPatch, base+"/launch", scholar, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "status=active", env.Error.Details)

	code, env = s.json(http.MethodPatch, base+"/send-to-scholar", admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "active", status(t, env))

	code, _ = s.json(http.MethodPatch, base+"/launch", admin, nil)
	require.Equal(t, http.StatusForbidden, code)

	code, env = s.json(http.MethodGet, base+"/cases?limit=5", scholar, nil)
	require.Equal(t, http.StatusOK, code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 5)
	require.Equal(t, "Case 0", rows[0]["case_name"])
	require.Equal(t, []any{"Roe", "Doe"}, rows[0]["judges_names"])

	code, env = s.json(http.MethodPatch, base+"/launch", scholar, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "launched", status(t, env))

	code, env = s.upload(admin, p.ID, "again.parquet", opinions(t, 2))
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "policy_violation", env.Error.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("admin@court.test", "admin")
	scholar, _ := s.user("scholar@court.test", "scholar")

	code, env := s.json(http.MethodGet, "/projects", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, env = s.json(http.MethodPost, "/projects", scholar, map[string]any{"name": "mine"})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "role", env.Error.Rule)

	code, env = s.json(http.MethodPost, "/projects", admin, map[string]any{"description": "no name"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, env.Error.Message, "name: required")

	code, env = s.json(http.MethodPost, "/projects", admin, map[string]any{"name": "p"})
	require.Equal(t, http.StatusCreated, code)
	var p struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))

	code, _ = s.json(http.MethodPatch, "/projects/"+p.ID+"/ai-model?ai_model=GPT-2", admin, nil)
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = s.json(http.MethodPatch, "/projects/"+p.ID+"/ai-model?ai_model="+url.QueryEscape(models.AIModelSonnet), admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.json(http.MethodPatch, "/projects/"+p.ID+"/assign-scholar?scholar_id=-1", admin, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "state", env.Error.Rule)
	code, _ = s.json(http.MethodPatch, "/projects/"+p.ID+"/assign-scholar?scholar_id=nobody", admin, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, env = s.upload(admin, p.ID, "cases.csv", []byte("a,b\n1,2\n"))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid", env.Error.Code)

	code, _ = s.json(http.MethodGet, "/projects/not-a-uuid", admin, nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestCaseTableAndCount(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("admin@court.test", "admin")

	_, env := s.json(http.MethodPost, "/projects", admin, map[string]any{"name": "p"})
	var p struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	code, _ := s.upload(admin, p.ID, "opinions.parquet", opinions(t, 3))
	require.Equal(t, http.StatusOK, code)

	code, env = s.json(http.MethodGet, "/uploads/projects/"+p.ID+"/cases-count", admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, fmt.Sprintf(`{"project_id":%q,"total_cases":3}`, p.ID), string(env.Data))

	code, env = s.json(http.MethodGet, "/projects/"+p.ID+"/cases/table?columns=court,case_name", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var table struct {
		Available []string `json:"available_columns"`
		Selected  []string `json:"selected_columns"`
		Rows      []struct {
			Cells []struct {
				Text string `json:"text"`
			} `json:"cells"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &table))
	require.Equal(t, []string{"case_name", "court", "case_date", "judges_names"}, table.Available)
	require.Equal(t, []string{"case_name", "court"}, table.Selected)
	require.Len(t, table.Rows, 3)
	require.Equal(t, "Supreme Court", table.Rows[0].Cells[1].Text)

	code, env = s.json(http.MethodDelete, "/uploads/projects/"+p.ID+"/parquet", admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(env.Data), `"removedCount":3`)

	code, _ = s.json(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
}

func TestUnassignSentinelAfterAssign(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("admin@court.test", "admin")
	_, scholarID := s.user("scholar@court.test", "scholar")

	_, env := s.json(http.MethodPost, "/projects", admin, map[string]any{"name": "p"})
	var p struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	code, _ := s.upload(admin, p.ID, "opinions.parquet", opinions(t, 2))
	require.Equal(t, http.StatusOK, code)

	code, env = s.json(http.MethodPatch, "/projects/"+p.ID+"/assign-scholar?scholar_id="+scholarID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ready", status(t, env))

	code, env = s.json(http.MethodPatch, "/projects/"+p.ID+"/assign-scholar?scholar_id=-1", admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "draft", status(t, env))
	require.Contains(t, string(env.Data), `"scholar_id":null`)
}

func TestAIModelAuthorizedBeforeValidation(t *testing.T) {
	s := newServer(t)
	owner, _ := s.user("admin@court.test", "admin")
	other, _ := s.user("admin2@court.test", "admin")

	_, env := s.json(http.MethodPost, "/projects", owner, map[string]any{"name": "p"})
	var p struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))

	code, env := s.json(http.MethodPatch, "/projects/"+p.ID+"/ai-model?ai_model=GPT-2", other, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "ownership", env.Error.Rule)

	code, _ = s.json(http.MethodPatch, "/projects/00000000-0000-0000-0000-000000000001/ai-model?ai_model=GPT-2", owner, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, env = s.json(http.MethodPatch, "/projects/"+p.ID+"/ai-model?ai_model=GPT-2", owner, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid", env.Error.Code)
}
