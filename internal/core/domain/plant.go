package domain

import "time"

// Plant is a catalog record.
type Plant struct {
	ID          string
	Name        string
	LatinName   string
	Description string
	Images      []string
	Family      string
	EdibleParts []string
	Toxic       bool
	Habitats    []string
	Seasons     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlantFilter narrows plant listings.
type PlantFilter struct {
	Query  string
	Family string
	Offset int
	Limit  int
}
