package nixcfg

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/nixstall/nixstall/pkg/errors"
)

// Catalog is the vendor extension point: a TOML file of additional
// fragments appended to every rendered configuration. Catalog fragments may
// reference the standard placeholders (for example @@hostname@@) and take
// part in the same completeness validation as the built-in fragments.
type Catalog struct {
	Fragments []CatalogFragment `toml:"fragment"`
}

// CatalogFragment is one vendor-supplied fragment.
type CatalogFragment struct {
	Name string `toml:"name"`
	Text string `toml:"text"`
}

// LoadCatalog reads a fragment catalog from path. An empty path yields an
// empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad,
			"Cannot read fragment catalog", path+" could not be read.")
	}
	var catalog Catalog
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse,
			"Cannot parse fragment catalog", path+" is not valid TOML.")
	}
	return &catalog, nil
}

// ExtraFragments converts the catalog entries for Conditions.
func (c *Catalog) ExtraFragments() []Fragment {
	frags := make([]Fragment, 0, len(c.Fragments))
	for _, f := range c.Fragments {
		frags = append(frags, Fragment{Name: f.Name, Text: f.Text})
	}
	return frags
}
