package tools

import (
	"strings"
	"sync"
)

// Drug is a catalog entry.
type Drug struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
}

// Catalog is the read-only drug catalog, keyed by lower-cased name.
type Catalog struct {
	mu    sync.RWMutex
	drugs map[string]Drug
}

// NewCatalog creates a catalog seeded with drugs.
func NewCatalog(drugs ...Drug) *Catalog {
	c := &Catalog{drugs: make(map[string]Drug, len(drugs))}
	for _, d := range drugs {
		c.drugs[strings.ToLower(d.Name)] = d
	}
	return c
}

// DefaultCatalog returns the demo pharmacy inventory.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Drug{
			Name:        "Acetaminophen",
			Price:       6.99,
			Quantity:    25,
			Description: "An analgesic and antipyretic medication used for pain and fever control.",
		},
		Drug{
			Name:        "Aspirin",
			Price:       4.50,
			Quantity:    100,
			Description: "Commonly used for mild to moderate pain relief, inflammation, and fever.",
		},
	)
}

// Lookup finds a drug by case-insensitive exact name.
func (c *Catalog) Lookup(name string) (Drug, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.drugs[strings.ToLower(name)]
	return d, ok
}

// Len returns the number of drugs in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.drugs)
}
