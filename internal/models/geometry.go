package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// GeoJSONPolygon represents a GeoJSON Polygon type for API input/output
type GeoJSONPolygon struct {
	Type        string        `json:"type" binding:"required,eq=Polygon"`
	Coordinates [][][]float64 `json:"coordinates" binding:"required"`
}

// OuterRing returns the polygon's outer ring as [lng, lat] pairs, or nil if
// the polygon carries no coordinates.
func (g *GeoJSONPolygon) OuterRing() [][]float64 {
	if g == nil || len(g.Coordinates) == 0 {
		return nil
	}
	return g.Coordinates[0]
}

// Value implements the driver.Valuer interface for GeoJSONPolygon.
// Converts GeoJSON to WKT (Well-Known Text) format for PostGIS GEOMETRY(Polygon, 4326).
//
// Flow:
// GeoJSON → geom.Polygon → WKT string
// Example output: "SRID=4326;POLYGON((30.0 -1.9, 30.1 -1.9, 30.1 -1.8, 30.0 -1.8, 30.0 -1.9))"
func (g *GeoJSONPolygon) Value() (driver.Value, error) {
	if g == nil || g.Type == "" {
		return nil, nil
	}

	geoJSONBytes, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Polygon")
	}

	polygon.SetSRID(4326)

	wktString, err := wkt.Marshal(polygon)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to WKT: %w", err)
	}

	wktWithSRID := fmt.Sprintf("SRID=%d;%s", polygon.SRID(), wktString)

	return wktWithSRID, nil
}

// Scan implements the sql.Scanner interface for GeoJSONPolygon.
// Converts PostGIS GEOMETRY to GeoJSON.
func (g *GeoJSONPolygon) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan GeoJSONPolygon: expected []byte, got %T", value)
	}

	geometry, err := ewkb.Unmarshal(bytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal EWKB: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return fmt.Errorf("scanned geometry is not a Polygon")
	}

	geoJSONBytes, err := geojson.Marshal(polygon)
	if err != nil {
		return fmt.Errorf("failed to marshal to GeoJSON: %w", err)
	}

	return json.Unmarshal(geoJSONBytes, g)
}
