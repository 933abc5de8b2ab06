package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

const (
	imageFormField = "image"
	// multipartOverhead leaves room for boundaries and headers around the file.
	multipartOverhead = 64 << 10
)

// PlantService manages the catalog.
type PlantService interface {
	List(ctx context.Context, input usecase.ListPlantsInput) (*usecase.PlantPage, error)
	Get(ctx context.Context, id string) (*domain.Plant, error)
	Create(ctx context.Context, actorID string, input usecase.PlantInput) (*domain.Plant, error)
	BulkCreate(ctx context.Context, actorID string, inputs []usecase.PlantInput) ([]domain.Plant, error)
	AddImage(ctx context.Context, actorID, plantID string, upload usecase.ImageUpload) (*domain.Plant, error)
}

var plantErrorCases = []ErrorCase{
	{Err: usecase.ErrPlantNotFound, Status: http.StatusNotFound, Message: "plant not found"},
	{Err: usecase.ErrImageTooLarge, Status: http.StatusBadRequest, Message: "image too large"},
	{Err: usecase.ErrUnsupportedImage, Status: http.StatusBadRequest, Message: "file must be an image"},
}

// PlantHandler exposes /api/plants endpoints.
type PlantHandler struct {
	plants         PlantService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewPlantHandler constructs PlantHandler.
func NewPlantHandler(plants PlantService, maxUploadBytes int64, log *zap.Logger) *PlantHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlantHandler{plants: plants, maxUploadBytes: maxUploadBytes, logger: log}
}

// List godoc
// @Summary Browse the catalog
// @Description Guests get the first 50 matches and a notice; signed-in accounts page freely.
// @Tags Plants
// @Produce json
// @Param q query string false "Name contains, case-insensitive"
// @Param family query string false "Exact family"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, up to 100"
// @Success 200 {object} PlantListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/plants [get]
func (h *PlantHandler) List(c *gin.Context) {
	input := usecase.ListPlantsInput{
		Query:  c.Query("q"),
		Family: c.Query("family"),
	}
	_, input.Authenticated = middleware.GetEffectiveIdentity(c)

	var fields []usecase.FieldError
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, usecase.FieldError{Field: "page", Message: "must be a number"})
		}
		input.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, usecase.FieldError{Field: "limit", Message: "must be a number"})
		}
		input.Limit = limit
	}
	if len(fields) > 0 {
		RespondWithMappedError(c, h.logger, &usecase.ValidationError{Fields: fields}, nil)
		return
	}

	page, err := h.plants.List(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, plantErrorCases)
		return
	}

	c.JSON(http.StatusOK, PlantListResponse{
		Plants:     newPlantPayloads(page.Plants),
		Pagination: newPaginationPayload(page.Pagination),
		Notice:     page.Notice,
	})
}

// Get godoc
// @Summary One plant
// @Tags Plants
// @Produce json
// @Param id path string true "Plant id"
// @Success 200 {object} PlantPayload
// @Failure 404 {object} ErrorResponse
// @Router /api/plants/{id} [get]
func (h *PlantHandler) Get(c *gin.Context) {
	plant, err := h.plants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, plantErrorCases)
		return
	}
	c.JSON(http.StatusOK, newPlantPayload(*plant))
}

// Create godoc
// @Summary Add a plant
// @Tags Plants
// @Accept json
// @Produce json
// @Param request body usecase.PlantInput true "Plant"
// @Success 201 {object} PlantPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/plants [post]
func (h *PlantHandler) Create(c *gin.Context) {
	var req usecase.PlantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	plant, err := h.plants.Create(c.Request.Context(), actorFrom(c).ID, req)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, plantErrorCases)
		return
	}
	c.JSON(http.StatusCreated, newPlantPayload(*plant))
}

// BulkCreate godoc
// @Summary Add up to 100 plants at once
// @Description All or nothing: one invalid plant rejects the whole batch.
// @Tags Plants
// @Accept json
// @Produce json
// @Param request body []usecase.PlantInput true "Plants"
// @Success 201 {object} BulkPlantResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/plants/bulk [post]
func (h *PlantHandler) BulkCreate(c *gin.Context) {
	var req []usecase.PlantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	plants, err := h.plants.BulkCreate(c.Request.Context(), actorFrom(c).ID, req)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, plantErrorCases)
		return
	}
	c.JSON(http.StatusCreated, BulkPlantResponse{
		Message: "plants created",
		Count:   len(plants),
		Plants:  newPlantPayloads(plants),
	})
}

// AddImage godoc
// @Summary Upload a plant image
// @Description Multipart field "image". Images only, 5 MiB at most.
// @Tags Plants
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Plant id"
// @Param image formData file true "Image file"
// @Success 200 {object} PlantPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/plants/{id}/image [post]
func (h *PlantHandler) AddImage(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	var upload usecase.ImageUpload
	header, err := c.FormFile(imageFormField)
	switch {
	case err == nil:
		file, err := header.Open()
		if err != nil {
			RespondWithMappedError(c, h.logger, err, plantErrorCases)
			return
		}
		defer file.Close()
		upload = usecase.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	case isBodyTooLarge(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "image too large"})
		return
	}

	plant, err := h.plants.AddImage(c.Request.Context(), actorFrom(c).ID, c.Param("id"), upload)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, plantErrorCases)
		return
	}
	c.JSON(http.StatusOK, newPlantPayload(*plant))
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
