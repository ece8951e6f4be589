// Package composer assembles layers and controls onto a base map and exports
// the result as a self-contained HTML page.
package composer

import (
	"fmt"

	"github.com/jengzang/geomap/internal/models"
)

// Composer builds a Map. Layers and controls are appended in call order,
// which is also paint order and layer-toggle order. Once the map is exported
// every mutator fails with models.ErrAlreadyExported.
type Composer struct {
	m *models.Map
}

// New starts a map centered on base
func New(base models.Location, zoom int, tiles string) *Composer {
	if tiles == "" {
		tiles = DefaultTiles
	}
	return &Composer{m: &models.Map{
		Center:   base,
		Zoom:     zoom,
		Tiles:    tiles,
		Layers:   []models.Layer{},
		Controls: []models.Control{},
	}}
}

// SetTitle sets the page title
func (c *Composer) SetTitle(title string) error {
	if c.m.Sealed() {
		return models.ErrAlreadyExported
	}
	c.m.Title = title
	return nil
}

// AddLayer appends a layer; later layers are painted on top
func (c *Composer) AddLayer(layer models.Layer) error {
	if c.m.Sealed() {
		return models.ErrAlreadyExported
	}
	c.m.Layers = append(c.m.Layers, layer)
	return nil
}

// AddControl appends a control. Adding the same control twice is a no-op.
func (c *Composer) AddControl(ctl models.Control) error {
	if c.m.Sealed() {
		return models.ErrAlreadyExported
	}
	if !models.KnownControl(string(ctl)) {
		return fmt.Errorf("unknown control %q", ctl)
	}
	for _, existing := range c.m.Controls {
		if existing == ctl {
			return nil
		}
	}
	c.m.Controls = append(c.m.Controls, ctl)
	return nil
}

// SetLegend attaches the color legend
func (c *Composer) SetLegend(legend *models.Legend) error {
	if c.m.Sealed() {
		return models.ErrAlreadyExported
	}
	c.m.Legend = legend
	return nil
}

// Compose returns the assembled map
func (c *Composer) Compose() *models.Map {
	return c.m
}
