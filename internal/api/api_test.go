package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-gallery/internal/account"
	"github.com/prompt-gallery/internal/blob"
	"github.com/prompt-gallery/internal/config"
	"github.com/prompt-gallery/internal/logger"
	"github.com/prompt-gallery/internal/middleware"
	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/moderation"
	"github.com/prompt-gallery/internal/session"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/storage/memory"
	"github.com/prompt-gallery/internal/view"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	handler http.Handler
	store   *storage.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()
	store := memory.New()
	require.NoError(t, storage.Seed(context.Background(), store))

	sessions := session.NewManager(config.SessionConfig{
		Secret:     "api-test-secret-0123456789",
		TTL:        time.Hour,
		CookieName: "session",
	})
	blobs, err := blob.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	views := view.NewComposer(store, nil, log)
	mod := moderation.NewService(store, moderation.Options{
		Blobs:         blobs,
		Views:         views,
		MaxImageBytes: 1 << 10,
		Log:           log,
	})

	h := NewHandler(Services{
		Store:         store,
		Accounts:      account.NewService(store.Users, sessions, log),
		Moderation:    mod,
		Views:         views,
		Sessions:      sessions,
		MaxImageBytes: 1 << 10,
		Log:           log,
	})
	return &testServer{
		handler: NewRouter(h, middleware.NewAuthMiddleware(sessions), blobs, log),
		store:   store,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	return s.do(t, method, path, token, r, "application/json")
}

func (s *testServer) signup(t *testing.T, name, email string) model.LoginResponse {
	t.Helper()
	rec := s.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "secret1", "confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func submitForm(t *testing.T, categoryID, text string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", text))
	require.NoError(t, mw.WriteField("categoryId", categoryID))
	if image != nil {
		fw, err := mw.CreateFormFile("image", "dog.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSignupLoginFlow(t *testing.T) {
	s := newTestServer(t)

	first := s.signup(t, "Root", "root@example.com")
	assert.Equal(t, model.UserRoleAdmin, first.User.Role)
	second := s.signup(t, "Ann", "Ann@Example.com")
	assert.Equal(t, model.UserRoleUser, second.User.Role)
	assert.Equal(t, "ann@example.com", second.User.Email)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, "session", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	rec = s.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ann@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"email": "ann@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"email": "root@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/me", second.Token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decode[model.User](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestSignup_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "A", "email": "nope", "password": "123", "confirmPassword": "456",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decode[model.ValidationError](t, rec)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "confirmPassword")

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPages_Gate(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signup(t, "Root", "root@example.com").Token
	userToken := s.signup(t, "Ann", "ann@example.com").Token

	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"anonymous home", "/", "", http.StatusOK, ""},
		{"anonymous admin", "/admin", "", http.StatusSeeOther, "/admin/login"},
		{"anonymous submit", "/submit-prompt", "", http.StatusSeeOther, "/login"},
		{"anonymous login page", "/login", "", http.StatusOK, ""},
		{"user admin", "/admin", userToken, http.StatusSeeOther, "/"},
		{"user login page", "/login", userToken, http.StatusSeeOther, "/"},
		{"user submit", "/submit-prompt", userToken, http.StatusOK, ""},
		{"admin admin", "/admin", adminToken, http.StatusOK, ""},
		{"admin admin login", "/admin/login", adminToken, http.StatusSeeOther, "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, tt.token, nil, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestSubmitModerateFlow(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signup(t, "Root", "root@example.com").Token
	userToken := s.signup(t, "Ann", "ann@example.com").Token

	body, ct := submitForm(t, "cat-1", "A dog wearing sunglasses", pngBytes)
	rec := s.do(t, http.MethodPost, "/api/v1/prompts", "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, ct = submitForm(t, "cat-1", "A dog wearing sunglasses", pngBytes)
	rec = s.do(t, http.MethodPost, "/api/v1/prompts", userToken, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prompt := decode[model.Prompt](t, rec)
	assert.Equal(t, model.PromptStatusPending, prompt.Status)

	home := decode[model.HomeView](t, s.do(t, http.MethodGet, "/", "", nil, ""))
	for _, p := range home.Prompts {
		assert.NotEqual(t, prompt.ID, p.ID)
	}

	rec = s.do(t, http.MethodGet, "/prompt/"+prompt.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/prompt/"+prompt.ID, userToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[model.PromptDetailView](t, rec)

	rec = s.do(t, http.MethodGet, detail.Prompt.ImageURL, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = s.do(t, http.MethodPost, "/api/v1/admin/prompts/"+prompt.ID+"/approve", userToken, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/admin/prompts/"+prompt.ID+"/approve", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/prompts/"+prompt.ID+"/approve", adminToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	home = decode[model.HomeView](t, s.do(t, http.MethodGet, "/", "", nil, ""))
	require.NotEmpty(t, home.Prompts)
	assert.Equal(t, prompt.ID, home.Prompts[0].ID)

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/prompts/"+prompt.ID, adminToken, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, detail.Prompt.ImageURL, "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/prompts/"+prompt.ID, adminToken, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmit_Validation(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signup(t, "Ann", "ann@example.com").Token

	body, ct := submitForm(t, "cat-1", "too short", nil)
	rec := s.do(t, http.MethodPost, "/api/v1/prompts", userToken, body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decode[model.ValidationError](t, rec)
	assert.Contains(t, verr.Fields, "text")
	assert.Contains(t, verr.Fields, "image")

	body, ct = submitForm(t, "cat-1", "A dog wearing sunglasses", append(append([]byte{}, pngBytes...), make([]byte, 2<<10)...))
	rec = s.do(t, http.MethodPost, "/api/v1/prompts", userToken, body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[model.ValidationError](t, rec).Fields, "image")

	body, ct = submitForm(t, "cat-does-not-exist", "A dog wearing sunglasses", pngBytes)
	rec = s.do(t, http.MethodPost, "/api/v1/prompts", userToken, body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"Please select a category."}, decode[model.ValidationError](t, rec).Fields["categoryId"])

	body, ct = submitForm(t, "cat-1", "A dog wearing sunglasses", make([]byte, 2<<20))
	rec = s.do(t, http.MethodPost, "/api/v1/prompts", userToken, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFavoriteAndCopy(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signup(t, "Ann", "ann@example.com").Token

	rec := s.do(t, http.MethodPost, "/api/v1/prompts/p-1/favorite", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/prompts/p-1/favorite", userToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[storage.FavoriteResult](t, rec)
	assert.True(t, res.Favorited)
	assert.Equal(t, 1, res.Count)

	home := decode[model.HomeView](t, s.do(t, http.MethodGet, "/", userToken, nil, ""))
	for _, p := range home.Prompts {
		assert.Equal(t, p.ID == "p-1", p.IsFavorite, p.ID)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/prompts/p-1/favorite", userToken, nil, "")
	res = decode[storage.FavoriteResult](t, rec)
	assert.False(t, res.Favorited)
	assert.Equal(t, 0, res.Count)

	rec = s.do(t, http.MethodPost, "/api/v1/prompts/p-1/copy", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[map[string]int](t, rec)["copiesCount"])
}

func TestCategoryAdministration(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signup(t, "Root", "root@example.com").Token
	userToken := s.signup(t, "Ann", "ann@example.com").Token

	rec := s.doJSON(t, http.MethodPost, "/api/v1/admin/categories", userToken, map[string]string{"name": "Food", "icon": "Pizza"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/api/v1/admin/categories", adminToken, map[string]string{"name": "F", "icon": ""})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/api/v1/admin/categories", adminToken, map[string]string{"name": "Food", "icon": "Pizza"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Category](t, rec)

	rec = s.doJSON(t, http.MethodPut, "/api/v1/admin/categories/"+created.ID, adminToken, map[string]string{"name": "Cooking", "icon": "Pizza"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cooking", decode[model.Category](t, rec).Name)

	rec = s.doJSON(t, http.MethodPut, "/api/v1/admin/categories/cat-missing", adminToken, map[string]string{"name": "Cooking", "icon": "Pizza"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/categories/cat-1", adminToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]int64](t, rec)["reassigned"])

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/categories/"+model.UncategorizedID, adminToken, nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	categories := decode[[]model.Category](t, s.do(t, http.MethodGet, "/api/v1/categories", "", nil, ""))
	for _, c := range categories {
		assert.NotEqual(t, "cat-1", c.ID)
	}
}

func TestAdCodes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signup(t, "Root", "root@example.com").Token

	rec := s.doJSON(t, http.MethodPut, "/api/v1/admin/ads/native-prompt-grid", adminToken, map[string]string{"code": "<div>ad</div>"})
	require.Equal(t, http.StatusOK, rec.Code)

	ads := decode[map[string]string](t, s.do(t, http.MethodGet, "/api/v1/ads", "", nil, ""))
	assert.Equal(t, "<div>ad</div>", ads["native-prompt-grid"])

	admin := decode[model.AdminView](t, s.do(t, http.MethodGet, "/admin", adminToken, nil, ""))
	assert.Len(t, admin.AdCodes, len(storage.AdPlacements))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/health", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "disabled", resp.Cache)
	assert.Equal(t, "disabled", resp.Scheduler)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}
