package composer

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultTiles is the base map style used when none is configured
const DefaultTiles = "OpenStreetMap"

// Tiles describes a raster tile provider
type Tiles struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

var tileProviders = map[string]Tiles{
	"OpenStreetMap": {
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	},
	"Stamen Toner": {
		URL:         "https://tiles.stadiamaps.com/tiles/stamen_toner/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://stadiamaps.com/">Stadia Maps</a> &copy; <a href="https://stamen.com/">Stamen Design</a> &copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     20,
	},
	"CartoDB positron": {
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	"CartoDB dark_matter": {
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
}

// ResolveTiles finds a tile provider by name, ignoring case
func ResolveTiles(name string) (Tiles, error) {
	if name == "" {
		name = DefaultTiles
	}
	for key, t := range tileProviders {
		if strings.EqualFold(key, name) {
			t.Name = key
			return t, nil
		}
	}
	return Tiles{}, fmt.Errorf("unknown tiles style %q (known: %s)", name, strings.Join(TileStyles(), ", "))
}

// TileStyles returns the names of the known tile providers
func TileStyles() []string {
	names := make([]string, 0, len(tileProviders))
	for name := range tileProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
