package attractions

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"aeterna/internal/models"
)

//go:embed data/attractions.yaml
var defaultAttractions []byte

const cacheKey = "attractions"

// Catalogue serves pages of attraction records from a YAML file, or from the
// bundled set when no path is configured. Parsed records are cached and the
// file is re-read after the cache expires.
type Catalogue struct {
	path  string
	cache *cache.Cache
}

// NewCatalogue creates a catalogue reading path (empty for the bundled set)
func NewCatalogue(path string) *Catalogue {
	return &Catalogue{
		path:  path,
		cache: cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Page returns the first limit attractions in file order. limit <= 0 returns all.
func (c *Catalogue) Page(limit int) ([]models.Attraction, error) {
	all, err := c.all()
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return append([]models.Attraction(nil), all...), nil
}

func (c *Catalogue) all() ([]models.Attraction, error) {
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.Attraction), nil
	}

	data := defaultAttractions
	if c.path != "" {
		var err error
		data, err = os.ReadFile(c.path)
		if err != nil {
			return nil, fmt.Errorf("attractions YAML not found at %s: %w", c.path, err)
		}
	}

	var items []models.Attraction
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse attractions YAML: %w", err)
	}

	c.cache.SetDefault(cacheKey, items)
	return items, nil
}
