package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/geomap/internal/database"
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/repository"
)

const statesGeoJSON = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"STATE_NAME": "NSW"}, "geometry": {"type": "Polygon", "coordinates": [[[140,-37],[153,-37],[153,-29],[140,-29],[140,-37]]]}},
  {"type": "Feature", "properties": {"STATE_NAME": "VIC"}, "geometry": {"type": "Polygon", "coordinates": [[[141,-39],[150,-39],[150,-37],[141,-37],[141,-39]]]}}
]}`

const unemploymentCSV = "Region,Unemployment Rate (15+)\nAustralia,5.1\nNSW,4.5\nVIC,4.9\nACT,3.8\n"

const incidentsCSV = `IncidntNum,Descript,Date,X,Y
1,GRAND THEFT FROM LOCKED AUTO,01/05/2015,-122.4194,37.7749
2,VANDALISM,01/06/2015,-122.4075,37.7880
`

const configTemplate = `
log_level: error
server:
  jwt_secret: s3cret
  db_path: %[1]s/history/runs.db
maps:
  - name: unemployment
    output: %[1]s/choro.html
    data:
      path: %[1]s/unemployment.csv
    geometry: %[1]s/states.geojson
    geometry_key: STATE_NAME
    join_key_field: Region
    metric_field: Unemployment Rate (15+)
    row_drop:
      indices: [0]
      field: Region
      equals: [Australia]
    legend_name: Unemployment Rate in Australian States(%%)
  - name: incidents
    output: %[1]s/map.html
    data:
      path: %[1]s/incidents.csv
    lat_field: "Y"
    lon_field: "X"
    label_field: Descript
    date_field: Date
    layers: [markers, heat]
    controls: [zoom-measure, scale]
`

// workspace writes fixtures and a config file into a temp dir and makes it
// the working directory
func workspace(t *testing.T, cfg string) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Chdir(dir)

	for name, data := range map[string]string{
		"states.geojson":   statesGeoJSON,
		"unemployment.csv": unemploymentCSV,
		"incidents.csv":    incidentsCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}

	cfgPath = filepath.Join(dir, "maps.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(cfg, dir)), 0o644))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRender_Config(t *testing.T) {
	dir, cfg := workspace(t, configTemplate)

	out, err := execute(t, "render", "--config", cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "Map generation for unemployment successful")
	assert.Contains(t, out, "Map generation for incidents successful")
	assert.Contains(t, out, `unmatched keys: "ACT"`)
	assert.FileExists(t, filepath.Join(dir, "choro.html"))
	assert.FileExists(t, filepath.Join(dir, "map.html"))
}

func TestRender_Only(t *testing.T) {
	dir, cfg := workspace(t, configTemplate)

	_, err := execute(t, "render", "--config", cfg, "--only", "incidents")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "map.html"))
	assert.NoFileExists(t, filepath.Join(dir, "choro.html"))

	_, err = execute(t, "render", "--config", cfg, "--only", "missing")
	assert.ErrorContains(t, err, `no map named "missing"`)
}

func TestRender_PartialFailure(t *testing.T) {
	dir, cfg := workspace(t, configTemplate)
	require.NoError(t, os.Remove(filepath.Join(dir, "states.geojson")))

	out, err := execute(t, "render", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `map "unemployment"`)
	assert.Contains(t, out, "Map generation for incidents successful")
	assert.FileExists(t, filepath.Join(dir, "map.html"))
	assert.NoFileExists(t, filepath.Join(dir, "choro.html"))
}

func TestRender_Flags(t *testing.T) {
	dir, _ := workspace(t, configTemplate)
	output := filepath.Join(dir, "heat.html")

	out, err := execute(t, "render",
		"--data", filepath.Join(dir, "incidents.csv"),
		"--lat", "Y", "--lon", "X",
		"--layers", "heat",
		"--tiles", "Stamen Toner",
		"--center", "37.76,-122.45", "--zoom", "12",
		"--output", output,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Map generation for heat successful")

	page, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(page), "stadiamaps")

	_, err = execute(t, "render", "--data", "x.csv", "--only", "incidents")
	assert.ErrorContains(t, err, "--only")
}

func TestRender_NothingConfigured(t *testing.T) {
	workspace(t, configTemplate)

	_, err := execute(t, "render")
	assert.ErrorContains(t, err, "no maps configured")

	_, err = execute(t, "render", "--config", "missing.yaml")
	assert.ErrorContains(t, err, "failed to read config")
}

func TestRender_History(t *testing.T) {
	dir, cfg := workspace(t, configTemplate)

	_, err := execute(t, "render", "--config", cfg, "--history")
	require.NoError(t, err)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(dir, "history", "runs.db"), ReadOnly: true})
	require.NoError(t, err)
	defer db.Close()

	runs, total, err := repository.NewRunRepository(db).List(ctx, models.RunFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range runs {
		assert.Equal(t, "cli", r.Source)
		assert.Equal(t, models.RunSucceeded, r.Status)
	}
}

func TestValidate(t *testing.T) {
	dir, cfg := workspace(t, configTemplate)

	out, err := execute(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "validated, nothing written"))
	assert.NoFileExists(t, filepath.Join(dir, "choro.html"))
	assert.NoFileExists(t, filepath.Join(dir, "map.html"))
}

func TestConfigDump(t *testing.T) {
	_, cfg := workspace(t, configTemplate)

	out, err := execute(t, "config", "dump", "--config", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "marker_limit: 100")
}

func TestConfigStyles(t *testing.T) {
	workspace(t, configTemplate)

	out, err := execute(t, "config", "styles")
	require.NoError(t, err)
	assert.Contains(t, out, "Stamen Toner")
	assert.Contains(t, out, "PuBuGn")
}

func TestToken(t *testing.T) {
	_, cfg := workspace(t, configTemplate)

	out, err := execute(t, "token", "--config", cfg, "--subject", "ops")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)

	_, err = execute(t, "token")
	assert.ErrorContains(t, err, "jwt secret is empty")
}
