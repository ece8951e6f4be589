package composer

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/jengzang/geomap/internal/models"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

// pageData is the template input
type pageData struct {
	Title string
	Spec  template.JS
}

// Render produces the HTML page for m without writing it anywhere
func Render(m *models.Map) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil map")
	}

	tiles, err := ResolveTiles(m.Tiles)
	if err != nil {
		return nil, err
	}

	spec, err := json.Marshal(struct {
		*models.Map
		TileLayer Tiles `json:"tile_layer"`
	}{m, tiles})
	if err != nil {
		return nil, fmt.Errorf("failed to encode map: %w", err)
	}

	title := m.Title
	if title == "" {
		title = "geomap"
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{Title: title, Spec: template.JS(spec)}); err != nil {
		return nil, fmt.Errorf("failed to render map: %w", err)
	}
	return buf.Bytes(), nil
}

// Export writes the map to dest and seals it.
// The seal is claimed before rendering so concurrent exports of one map
// cannot both succeed; a failed export releases it. The page is written to a
// temporary file next to dest and renamed into place, so dest never holds a
// partial page.
func Export(m *models.Map, dest string) error {
	if m == nil {
		return &models.ExportError{Destination: dest, Err: errors.New("nil map")}
	}
	if !m.Seal() {
		return &models.ExportError{Destination: dest, Err: models.ErrAlreadyExported}
	}

	page, err := Render(m)
	if err != nil {
		m.Unseal()
		return err
	}

	if err := writeFile(dest, page); err != nil {
		m.Unseal()
		return &models.ExportError{Destination: dest, Err: err}
	}
	return nil
}

func writeFile(dest string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".geomap-*.html.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}
