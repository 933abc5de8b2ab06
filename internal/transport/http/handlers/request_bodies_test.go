package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

func TestAuthRequestBodies(t *testing.T) {
	auth := &stubAuth{}
	var loginInput usecase.LoginInput
	auth.login = func(input usecase.LoginInput) (*usecase.LoginResult, error) {
		loginInput = input
		return &usecase.LoginResult{Account: domain.Account{ID: memberID, Username: "alice"}, AccessToken: "a", RefreshToken: "r"}, nil
	}
	r := newAuthRouter(t, auth, false)

	rr := doRaw(r, http.MethodPost, "/register", `{"username":"alice","email":"alice@example.com","password":"CorrectHorse99"}`)
	if rr.Code != http.StatusCreated || len(auth.registered) != 1 {
		t.Fatalf("register: %d %s", rr.Code, rr.Body.String())
	}
	if got := auth.registered[0]; got.Username != "alice" || got.Email != "alice@example.com" || got.Password != "CorrectHorse99" {
		t.Fatalf("register fields not bound: %+v", got)
	}

	rr = doRaw(r, http.MethodPost, "/login", `{"email":"alice@example.com","password":"CorrectHorse99"}`)
	if rr.Code != http.StatusOK || loginInput.Email != "alice@example.com" || loginInput.Password != "CorrectHorse99" {
		t.Fatalf("login: %d %+v", rr.Code, loginInput)
	}
}

func TestPasswordRequestBodies(t *testing.T) {
	reset := &stubReset{token: "raw-reset"}
	h := NewPasswordHandler(reset, true, nil)
	r := newTestRouter()
	r.POST("/forgot", h.ForgotPassword)
	r.POST("/reset", h.ResetPassword)

	rr := doRaw(r, http.MethodPost, "/forgot", `{"email":"alice@example.com"}`)
	if rr.Code != http.StatusOK || len(reset.emails) != 1 || reset.emails[0] != "alice@example.com" {
		t.Fatalf("forgot: %d %v", rr.Code, reset.emails)
	}
	if decodeBody[ForgotPasswordResponse](t, rr).ResetToken != "raw-reset" {
		t.Fatalf("expected resetToken in body, got %s", rr.Body.String())
	}

	rr = doRaw(r, http.MethodPost, "/reset", `{"token":"abc","newPassword":"CorrectHorse99"}`)
	if rr.Code != http.StatusOK || len(reset.resets) != 1 {
		t.Fatalf("reset: %d %s", rr.Code, rr.Body.String())
	}
	if got := reset.resets[0]; got.Token != "abc" || got.NewPassword != "CorrectHorse99" {
		t.Fatalf("reset fields not bound: %+v", got)
	}
}

type memoryPlants struct {
	created []domain.Plant
}

func (m *memoryPlants) Create(_ context.Context, plants ...domain.Plant) ([]domain.Plant, error) {
	m.created = append(m.created, plants...)
	return plants, nil
}

func (m *memoryPlants) GetByID(context.Context, string) (*domain.Plant, error) {
	return nil, usecase.ErrPlantNotFound
}

func (m *memoryPlants) List(context.Context, domain.PlantFilter) ([]domain.Plant, int, error) {
	return nil, 0, nil
}

func (m *memoryPlants) AppendImage(context.Context, string, string, time.Time) (*domain.Plant, error) {
	return nil, usecase.ErrPlantNotFound
}

func TestBulkCreateTakesBareArray(t *testing.T) {
	repo := &memoryPlants{}
	svc := usecase.NewPlantService(repo, nil, 0, zaptest.NewLogger(t))
	h := NewPlantHandler(svc, 5<<20, nil)
	r := newTestRouter()
	r.POST("/plants/bulk", signedIn(h.BulkCreate)...)

	const nettle = `{"name":"Ortie","latinName":"Urtica dioica","edibleParts":["leaves"],"toxic":false}`

	rr := doRaw(r, http.MethodPost, "/plants/bulk", "["+nettle+"]", accessCookie("staff"))
	created := decodeBody[BulkPlantResponse](t, rr)
	if rr.Code != http.StatusCreated || created.Count != 1 || created.Plants[0].LatinName != "Urtica dioica" {
		t.Fatalf("single item: %d %s", rr.Code, rr.Body.String())
	}
	if len(repo.created) != 1 || repo.created[0].EdibleParts[0] != "leaves" {
		t.Fatalf("unexpected stored plants %+v", repo.created)
	}

	for name, body := range map[string]string{
		"empty":    `[]`,
		"oversize": "[" + strings.TrimSuffix(strings.Repeat(nettle+",", 101), ",") + "]",
	} {
		rr := doRaw(r, http.MethodPost, "/plants/bulk", body, accessCookie("staff"))
		resp := decodeBody[ErrorResponse](t, rr)
		if rr.Code != http.StatusBadRequest || resp.Message != "invalid data" || len(resp.Details) != 1 || resp.Details[0].Field != "plants" {
			t.Fatalf("%s: expected validation error, got %d %s", name, rr.Code, rr.Body.String())
		}
	}
	if len(repo.created) != 1 {
		t.Fatalf("rejected batches must not be stored, got %d plants", len(repo.created))
	}

	rr = doRaw(r, http.MethodPost, "/plants/bulk", `{"plants":[`+nettle+`]}`, accessCookie("staff"))
	if rr.Code != http.StatusBadRequest || decodeBody[ErrorResponse](t, rr).Message != "invalid payload" {
		t.Fatalf("wrapped object must be rejected, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestLoginWithWrongShapeIsRejectedAsCredentials(t *testing.T) {
	var seen []usecase.LoginInput
	auth := &stubAuth{login: func(input usecase.LoginInput) (*usecase.LoginResult, error) {
		seen = append(seen, input)
		return nil, usecase.ErrInvalidCredentials
	}}
	r := newAuthRouter(t, auth, false)

	rr := doRaw(r, http.MethodPost, "/login", `{"email":42,"password":["x"]}`)
	if rr.Code != http.StatusUnauthorized || decodeBody[ErrorResponse](t, rr).Message != "incorrect credentials" {
		t.Fatalf("expected 401, got %d %s", rr.Code, rr.Body.String())
	}
	if len(seen) != 1 || seen[0].Password != "" {
		t.Fatalf("login must still run with unbound credentials, got %+v", seen)
	}
}
