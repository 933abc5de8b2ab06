package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

const (
	memberID = "11111111-1111-4111-8111-111111111111"
	staffID  = "22222222-2222-4222-8222-222222222222"
)

type tokenTable map[string]port.AccessClaims

func (t tokenTable) VerifyAccess(token string) (port.AccessClaims, error) {
	claims, ok := t[token]
	if !ok {
		return port.AccessClaims{}, errors.New("bad token")
	}
	return claims, nil
}

type accountTable map[string]domain.Account

func (a accountTable) GetByID(_ context.Context, id string) (*domain.Account, error) {
	account, ok := a[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

var (
	testTokens = tokenTable{
		"member": {SubjectID: memberID, Role: "user"},
		"staff":  {SubjectID: staffID, Role: "moderator"},
	}
	testAccounts = accountTable{
		memberID: {ID: memberID, Username: "alice", Email: "alice@example.com", Role: domain.RoleStandard, IsActive: true},
		staffID:  {ID: staffID, Username: "mod", Email: "mod@example.com", Role: domain.RoleModerator, IsActive: true},
	}
)

// signedIn runs the real authentication and liveness gates ahead of handler.
func signedIn(handler gin.HandlerFunc) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.RequireAuth(testTokens),
		middleware.RequireActive(testAccounts, nil),
		handler,
	}
}

// maybeSignedIn runs the optional gates ahead of handler.
func maybeSignedIn(handler gin.HandlerFunc) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.OptionalAuth(testTokens),
		middleware.OptionalActive(testAccounts, nil),
		handler,
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.EnrichContext())
	return r
}

func doJSON(r http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// doRaw sends body verbatim so tests pin the JSON field names clients use.
func doRaw(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func accessCookie(token string) *http.Cookie {
	return &http.Cookie{Name: middleware.AccessCookieName, Value: token}
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type stubAuth struct {
	registered  []usecase.RegisterInput
	registerErr error
	login       func(usecase.LoginInput) (*usecase.LoginResult, error)
	refresh     func(string) (*usecase.RefreshResult, error)
	loggedOut   []string
}

func (s *stubAuth) Register(_ context.Context, input usecase.RegisterInput) (*domain.Account, error) {
	s.registered = append(s.registered, input)
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.Account{ID: memberID, Username: input.Username, Email: input.Email}, nil
}

func (s *stubAuth) Login(_ context.Context, input usecase.LoginInput) (*usecase.LoginResult, error) {
	return s.login(input)
}

func (s *stubAuth) Logout(_ context.Context, refreshToken, _ string) error {
	s.loggedOut = append(s.loggedOut, refreshToken)
	return nil
}

func (s *stubAuth) Refresh(_ context.Context, refreshToken, _ string) (*usecase.RefreshResult, error) {
	return s.refresh(refreshToken)
}

type stubReset struct {
	token    string
	resetErr error
	emails   []string
	resets   []usecase.ResetPasswordInput
}

func (s *stubReset) RequestReset(_ context.Context, input usecase.RequestResetInput) (*usecase.ResetRequestResult, error) {
	s.emails = append(s.emails, input.Email)
	if input.Email == "ghost@example.com" {
		return &usecase.ResetRequestResult{}, nil
	}
	return &usecase.ResetRequestResult{Token: s.token}, nil
}

func (s *stubReset) ResetPassword(_ context.Context, input usecase.ResetPasswordInput) error {
	s.resets = append(s.resets, input)
	return s.resetErr
}

type stubProfiles struct {
	account  domain.Account
	err      error
	lastID   string
	settings domain.Settings
}

func (s *stubProfiles) GetMe(_ context.Context, id string) (*domain.Account, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	account := s.account
	return &account, nil
}

func (s *stubProfiles) UpdateMe(_ context.Context, id string, input usecase.UpdateProfileInput) (*domain.Account, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	account := s.account
	if input.Bio != nil {
		account.Bio = *input.Bio
	}
	return &account, nil
}

func (s *stubProfiles) UpdateSettings(_ context.Context, id string, settings domain.Settings) (domain.Settings, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	s.settings = settings
	return settings, nil
}

type stubAdmin struct {
	lastList  usecase.ListUsersInput
	lastActor usecase.Actor
	err       error
}

func (s *stubAdmin) ListUsers(_ context.Context, input usecase.ListUsersInput) (*usecase.UserPage, error) {
	s.lastList = input
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.UserPage{
		Users:      []domain.Account{testAccounts[memberID]},
		Pagination: usecase.Pagination{Total: 1, Page: input.Page, Limit: input.Limit, Pages: 1},
	}, nil
}

func (s *stubAdmin) Ban(_ context.Context, actor usecase.Actor, targetID string) (*domain.Account, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	account := testAccounts[memberID]
	account.ID = targetID
	account.IsActive = false
	return &account, nil
}

func (s *stubAdmin) Unban(_ context.Context, actor usecase.Actor, targetID string) (*domain.Account, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	account := testAccounts[memberID]
	account.ID = targetID
	return &account, nil
}

func (s *stubAdmin) ChangeRole(_ context.Context, actor usecase.Actor, targetID string, input usecase.ChangeRoleInput) (*domain.Account, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	account := testAccounts[memberID]
	account.ID = targetID
	account.Role = domain.Role(input.Role)
	return &account, nil
}
