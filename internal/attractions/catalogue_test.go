package attractions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledCatalogue(t *testing.T) {
	c := NewCatalogue("")

	all, err := c.Page(0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 6)
	assert.Equal(t, "Uluru", all[0].Name)
	assert.Equal(t, "Yulara", all[0].City)
	assert.Equal(t, -25.3444, all[0].Location["lat"])

	page, err := c.Page(5)
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestPageReturnsCopy(t *testing.T) {
	c := NewCatalogue("")

	page, err := c.Page(2)
	require.NoError(t, err)
	page[0].Name = "changed"

	again, err := c.Page(2)
	require.NoError(t, err)
	assert.Equal(t, "Uluru", again[0].Name)
}

func TestCatalogueFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attractions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: a1
  name: Bondi Beach
  type: coastal
  city: Sydney
- id: a2
  name: Daintree
  type: rainforest
`), 0o600))

	page, err := NewCatalogue(path).Page(10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Bondi Beach", page[0].Name)
	assert.Equal(t, "", page[1].City)
}

func TestCatalogueMissingFile(t *testing.T) {
	_, err := NewCatalogue(filepath.Join(t.TempDir(), "absent.yaml")).Page(5)
	assert.Error(t, err)
}
