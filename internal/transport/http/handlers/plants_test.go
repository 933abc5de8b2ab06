package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

type stubPlants struct {
	lastList   usecase.ListPlantsInput
	lastUpload usecase.ImageUpload
	uploaded   []byte
	bulkCount  int
	err        error
}

func (s *stubPlants) List(_ context.Context, input usecase.ListPlantsInput) (*usecase.PlantPage, error) {
	s.lastList = input
	page := &usecase.PlantPage{
		Plants:     []domain.Plant{{ID: "p1", Name: "Basil", LatinName: "Ocimum basilicum"}},
		Pagination: usecase.Pagination{Total: 1, Page: 1, Limit: 50, Pages: 1},
	}
	if !input.Authenticated {
		page.Notice = usecase.GuestNotice
	}
	return page, nil
}

func (s *stubPlants) Get(_ context.Context, id string) (*domain.Plant, error) {
	if id != "p1" {
		return nil, usecase.ErrPlantNotFound
	}
	return &domain.Plant{ID: "p1", Name: "Basil"}, nil
}

func (s *stubPlants) Create(_ context.Context, _ string, input usecase.PlantInput) (*domain.Plant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Plant{ID: "p2", Name: input.Name, LatinName: input.LatinName}, nil
}

func (s *stubPlants) BulkCreate(_ context.Context, _ string, inputs []usecase.PlantInput) ([]domain.Plant, error) {
	s.bulkCount = len(inputs)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Plant, len(inputs))
	for i, in := range inputs {
		out[i] = domain.Plant{Name: in.Name}
	}
	return out, nil
}

func (s *stubPlants) AddImage(_ context.Context, _ string, plantID string, upload usecase.ImageUpload) (*domain.Plant, error) {
	s.lastUpload = upload
	if upload.Body == nil {
		return nil, &usecase.ValidationError{Fields: []usecase.FieldError{{Field: "image", Message: "is required"}}}
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return nil, err
	}
	s.uploaded = data
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Plant{ID: plantID, Images: []string{"https://cdn.example.com/x.png"}}, nil
}

func newPlantRouter(plants *stubPlants, maxUpload int64) http.Handler {
	h := NewPlantHandler(plants, maxUpload, nil)
	r := newTestRouter()
	r.GET("/plants", maybeSignedIn(h.List)...)
	r.GET("/plants/:id", h.Get)
	r.POST("/plants", signedIn(h.Create)...)
	r.POST("/plants/bulk", signedIn(h.BulkCreate)...)
	r.POST("/plants/:id/image", signedIn(h.AddImage)...)
	return r
}

func TestPlantListGuestAndMember(t *testing.T) {
	plants := &stubPlants{}
	r := newPlantRouter(plants, 5<<20)

	rr := doJSON(r, http.MethodGet, "/plants?q=bas&family=Lamiaceae&page=3", nil)
	guest := decodeBody[PlantListResponse](t, rr)
	if rr.Code != http.StatusOK || plants.lastList.Authenticated || guest.Notice == "" {
		t.Fatalf("guest listing: %d %+v", rr.Code, guest)
	}
	if plants.lastList.Query != "bas" || plants.lastList.Family != "Lamiaceae" || plants.lastList.Page != 3 {
		t.Fatalf("filters not forwarded: %+v", plants.lastList)
	}
	if guest.Plants[0].Images == nil || guest.Plants[0].LatinName != "Ocimum basilicum" {
		t.Fatalf("unexpected plant payload %+v", guest.Plants[0])
	}

	rr = doJSON(r, http.MethodGet, "/plants", nil, accessCookie("member"))
	if member := decodeBody[PlantListResponse](t, rr); !plants.lastList.Authenticated || member.Notice != "" {
		t.Fatalf("member listing must not carry a notice: %+v", member)
	}

	rr = doJSON(r, http.MethodGet, "/plants", nil, accessCookie("forged"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token on an optional route: expected 401, got %d", rr.Code)
	}

	if rr := doJSON(r, http.MethodGet, "/plants?limit=lots", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric limit: expected 400, got %d", rr.Code)
	}
}

func TestPlantGetAndCreate(t *testing.T) {
	plants := &stubPlants{}
	r := newPlantRouter(plants, 5<<20)

	if rr := doJSON(r, http.MethodGet, "/plants/p1", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := doJSON(r, http.MethodGet, "/plants/missing", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr := doJSON(r, http.MethodPost, "/plants", usecase.PlantInput{Name: "Mint", LatinName: "Mentha"}, accessCookie("staff"))
	if rr.Code != http.StatusCreated || decodeBody[PlantPayload](t, rr).LatinName != "Mentha" {
		t.Fatalf("unexpected create response %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(r, http.MethodPost, "/plants/bulk", []usecase.PlantInput{{Name: "A"}, {Name: "B"}}, accessCookie("staff"))
	bulk := decodeBody[BulkPlantResponse](t, rr)
	if rr.Code != http.StatusCreated || bulk.Count != 2 || plants.bulkCount != 2 {
		t.Fatalf("unexpected bulk response %d %+v", rr.Code, bulk)
	}

	plants.err = &usecase.ValidationError{Fields: []usecase.FieldError{{Field: "plants[1].latinName", Message: "is required"}}}
	rr = doJSON(r, http.MethodPost, "/plants/bulk", []usecase.PlantInput{{Name: "A"}, {Name: "B"}}, accessCookie("staff"))
	if body := decodeBody[ErrorResponse](t, rr); rr.Code != http.StatusBadRequest || body.Details[0].Field != "plants[1].latinName" {
		t.Fatalf("expected indexed field error, got %d %+v", rr.Code, body)
	}
}

func multipartImage(t *testing.T, field string, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="leaf.png"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func uploadImage(r http.Handler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/plants/p1/image", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(accessCookie("staff"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestPlantImageUpload(t *testing.T) {
	plants := &stubPlants{}
	r := newPlantRouter(plants, 1024)

	data := []byte("\x89PNG\r\n\x1a\nrest-of-image")
	body, contentType := multipartImage(t, "image", "image/png", data)
	rr := uploadImage(r, body, contentType)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if plants.lastUpload.Filename != "leaf.png" || plants.lastUpload.ContentType != "image/png" || plants.lastUpload.Size != int64(len(data)) {
		t.Fatalf("unexpected upload metadata %+v", plants.lastUpload)
	}
	if !bytes.Equal(plants.uploaded, data) {
		t.Fatalf("upload body not forwarded")
	}

	body, contentType = multipartImage(t, "photo", "image/png", data)
	rr = uploadImage(r, body, contentType)
	if errBody := decodeBody[ErrorResponse](t, rr); rr.Code != http.StatusBadRequest || errBody.Details[0].Field != "image" {
		t.Fatalf("missing field: expected 400 image required, got %d %s", rr.Code, rr.Body.String())
	}

	body, contentType = multipartImage(t, "image", "image/png", bytes.Repeat([]byte("x"), 200<<10))
	rr = uploadImage(r, body, contentType)
	if rr.Code != http.StatusBadRequest || decodeBody[ErrorResponse](t, rr).Message != "image too large" {
		t.Fatalf("oversized body: expected 400, got %d %s", rr.Code, rr.Body.String())
	}

	plants.err = usecase.ErrUnsupportedImage
	body, contentType = multipartImage(t, "image", "text/plain", []byte("hello"))
	if rr := uploadImage(r, body, contentType); rr.Code != http.StatusBadRequest {
		t.Fatalf("unsupported type: expected 400, got %d", rr.Code)
	}

	plants.err = errors.New("bucket unreachable")
	body, contentType = multipartImage(t, "image", "image/png", data)
	if rr := uploadImage(r, body, contentType); rr.Code != http.StatusInternalServerError {
		t.Fatalf("store failure: expected 500, got %d", rr.Code)
	}
}
