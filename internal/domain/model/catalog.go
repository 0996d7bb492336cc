package model

import (
	"sort"
	"strings"
)

// Service is one entry of the service catalog.
type Service struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Catalog resolves service ids to the titles stored on bookings.
type Catalog struct {
	titles map[string]string
}

// NewCatalog builds a catalog from an id -> title map.
func NewCatalog(entries map[string]string) *Catalog {
	titles := make(map[string]string, len(entries))
	for id, title := range entries {
		titles[strings.ToLower(strings.TrimSpace(id))] = strings.TrimSpace(title)
	}
	return &Catalog{titles: titles}
}

// Title returns the title for id.
func (c *Catalog) Title(id string) (string, bool) {
	if c == nil {
		return "", false
	}
	t, ok := c.titles[strings.ToLower(strings.TrimSpace(id))]
	return t, ok && t != ""
}

// Services returns the catalog sorted by id.
func (c *Catalog) Services() []Service {
	if c == nil {
		return nil
	}
	out := make([]Service, 0, len(c.titles))
	for id, title := range c.titles {
		out = append(out, Service{ID: id, Title: title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
