package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const (
	defaultPlantPageLimit = 20
	maxPlantPageLimit     = 100
	guestPlantLimit       = 50
	maxBulkPlants         = 100
	defaultMaxImageBytes  = 5 << 20
	sniffLen              = 512

	// GuestNotice is attached to anonymous listings.
	GuestNotice = "To see more results, please register or log in."
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ImageMetrics counts upload outcomes.
type ImageMetrics interface {
	ObserveImageUpload(result string)
}

// PlantService implements the catalog.
type PlantService struct {
	plants   port.PlantRepository
	images   port.ImageStore
	logger   *zap.Logger
	metrics  ImageMetrics
	maxImage int64
	now      func() time.Time
}

// NewPlantService constructs a PlantService. maxImageBytes <= 0 selects 5 MiB.
func NewPlantService(plants port.PlantRepository, images port.ImageStore, maxImageBytes int64, log *zap.Logger) *PlantService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxImageBytes <= 0 {
		maxImageBytes = defaultMaxImageBytes
	}
	return &PlantService{
		plants:   plants,
		images:   images,
		logger:   log,
		maxImage: maxImageBytes,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (s *PlantService) WithClock(clock func() time.Time) *PlantService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithMetrics attaches upload counters.
func (s *PlantService) WithMetrics(metrics ImageMetrics) *PlantService {
	s.metrics = metrics
	return s
}

// ListPlantsInput filters the catalog. Page and Limit are ignored for guests.
type ListPlantsInput struct {
	Query         string
	Family        string
	Page          int
	Limit         int
	Authenticated bool
}

// PlantPage is one page of the catalog.
type PlantPage struct {
	Plants     []domain.Plant
	Pagination Pagination
	Notice     string
}

// List returns plants sorted by name. Guests always get the first 50
// matches as a single page.
func (s *PlantService) List(ctx context.Context, input ListPlantsInput) (*PlantPage, error) {
	filter := domain.PlantFilter{
		Query:  strings.TrimSpace(input.Query),
		Family: strings.TrimSpace(input.Family),
	}

	page, limit := input.Page, input.Limit
	if !input.Authenticated {
		page, limit = 1, guestPlantLimit
	} else {
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = defaultPlantPageLimit
		}
		if limit > maxPlantPageLimit {
			limit = maxPlantPageLimit
		}
	}
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	plants, total, err := s.plants.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}

	result := &PlantPage{Plants: plants}
	if input.Authenticated {
		result.Pagination = Pagination{Total: total, Page: page, Limit: limit, Pages: pageCount(total, limit)}
		return result, nil
	}

	if total > guestPlantLimit {
		total = guestPlantLimit
	}
	result.Pagination = Pagination{Total: total, Page: 1, Limit: guestPlantLimit, Pages: 1}
	result.Notice = GuestNotice
	return result, nil
}

// Get returns one plant.
func (s *PlantService) Get(ctx context.Context, id string) (*domain.Plant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPlantNotFound
	}
	plant, err := s.plants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, fmt.Errorf("get plant: %w", err)
	}
	return plant, nil
}

// PlantInput is the payload of a plant creation.
type PlantInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	LatinName   string   `json:"latinName" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Images      []string `json:"images" validate:"max=20,dive,url,max=2048"`
	Family      string   `json:"family" validate:"max=100"`
	EdibleParts []string `json:"edibleParts" validate:"max=20,dive,required,max=100"`
	Toxic       bool     `json:"toxic"`
	Habitats    []string `json:"habitats" validate:"max=20,dive,required,max=100"`
	Seasons     []string `json:"seasons" validate:"max=12,dive,required,max=50"`
}

type bulkPlantInput struct {
	Plants []PlantInput `json:"plants" validate:"min=1,max=100,dive"`
}

// Create stores one plant.
func (s *PlantService) Create(ctx context.Context, actorID string, input PlantInput) (*domain.Plant, error) {
	if err := validateStruct(normalizePlant(input), ""); err != nil {
		return nil, err
	}

	created, err := s.plants.Create(ctx, s.newPlant(normalizePlant(input)))
	if err != nil {
		return nil, fmt.Errorf("create plant: %w", err)
	}
	if len(created) != 1 {
		return nil, fmt.Errorf("create plant: expected 1 row, got %d", len(created))
	}

	s.logger.Info("plant created", zap.String("plant_id", created[0].ID), zap.String("by", actorID))
	return &created[0], nil
}

// BulkCreate stores between 1 and 100 plants atomically.
func (s *PlantService) BulkCreate(ctx context.Context, actorID string, inputs []PlantInput) ([]domain.Plant, error) {
	batch := bulkPlantInput{Plants: make([]PlantInput, len(inputs))}
	for i, input := range inputs {
		batch.Plants[i] = normalizePlant(input)
	}
	if len(batch.Plants) > maxBulkPlants {
		return nil, invalidField("plants", fmt.Sprintf("must contain at most %d items", maxBulkPlants))
	}
	if err := validateStruct(batch, ""); err != nil {
		return nil, err
	}

	plants := make([]domain.Plant, len(batch.Plants))
	for i, input := range batch.Plants {
		plants[i] = s.newPlant(input)
	}

	created, err := s.plants.Create(ctx, plants...)
	if err != nil {
		return nil, fmt.Errorf("bulk create plants: %w", err)
	}

	s.logger.Info("plants created", zap.Int("count", len(created)), zap.String("by", actorID))
	return created, nil
}

func (s *PlantService) newPlant(input PlantInput) domain.Plant {
	now := s.now().UTC()
	return domain.Plant{
		ID:          uuid.NewString(),
		Name:        input.Name,
		LatinName:   input.LatinName,
		Description: input.Description,
		Images:      input.Images,
		Family:      input.Family,
		EdibleParts: input.EdibleParts,
		Toxic:       input.Toxic,
		Habitats:    input.Habitats,
		Seasons:     input.Seasons,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func normalizePlant(input PlantInput) PlantInput {
	input.Name = strings.TrimSpace(input.Name)
	input.LatinName = strings.TrimSpace(input.LatinName)
	input.Description = strings.TrimSpace(input.Description)
	input.Family = strings.TrimSpace(input.Family)
	return input
}

// ImageUpload is one uploaded file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddImage validates the upload, stores it and appends its URL to the plant.
// Both the declared and the sniffed content type must be images.
func (s *PlantService) AddImage(ctx context.Context, actorID, plantID string, upload ImageUpload) (*domain.Plant, error) {
	if _, err := s.Get(ctx, plantID); err != nil {
		return nil, err
	}

	if upload.Body == nil || upload.Size == 0 {
		s.observeUpload("rejected")
		return nil, invalidField("image", "is required")
	}
	if upload.Size > s.maxImage {
		s.observeUpload("rejected")
		return nil, ErrImageTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		s.observeUpload("rejected")
		return nil, ErrUnsupportedImage
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	sniffed := http.DetectContentType(head)
	if !strings.HasPrefix(sniffed, "image/") {
		s.observeUpload("rejected")
		return nil, ErrUnsupportedImage
	}

	ext, ok := imageExtensions[sniffed]
	if !ok {
		ext = strings.ToLower(filepath.Ext(upload.Filename))
	}
	key := fmt.Sprintf("plants/%s/%s%s", plantID, uuid.NewString(), ext)

	url, err := s.images.Put(ctx, key, io.MultiReader(bytes.NewReader(head), upload.Body), upload.Size, sniffed)
	if err != nil {
		s.observeUpload("failed")
		return nil, fmt.Errorf("store image: %w", err)
	}

	plant, err := s.plants.AppendImage(ctx, plantID, url, s.now().UTC())
	if err != nil {
		s.observeUpload("failed")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, fmt.Errorf("append image: %w", err)
	}

	s.observeUpload("stored")
	s.logger.Info("plant image stored",
		zap.String("plant_id", plantID),
		zap.String("key", key),
		zap.String("by", actorID),
	)
	return plant, nil
}

func (s *PlantService) observeUpload(result string) {
	if s.metrics != nil {
		s.metrics.ObserveImageUpload(result)
	}
}
