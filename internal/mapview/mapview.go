package mapview

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/svca/portal/internal/occurrence"
)

// Entry é um item da barra lateral de ocorrências ativas.
type Entry struct {
	ID      int    `json:"id"`
	Title   string `json:"titulo"`
	Address string `json:"endereco"`
	Status  string `json:"status"`
	Path    string `json:"path"`
}

// FeatureCollection exporta os pontos com coordenadas. Pontos sem latitude
// ou longitude ficam de fora.
func FeatureCollection(points []occurrence.MapPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		f := geojson.NewPointFeature([]float64{*p.Longitude, *p.Latitude})
		f.ID = p.ID
		f.SetProperty("id", p.ID)
		f.SetProperty("titulo", p.Title)
		f.SetProperty("endereco", p.Address)
		f.SetProperty("status", p.Status)
		f.SetProperty("path", occurrence.DetailPath(p.ID))
		fc.AddFeature(f)
	}
	return fc
}

// Sidebar lista todas as ocorrências ativas com o link de detalhe público.
func Sidebar(points []occurrence.MapPoint) []Entry {
	out := make([]Entry, 0, len(points))
	for _, p := range points {
		out = append(out, Entry{
			ID:      p.ID,
			Title:   p.Title,
			Address: p.Address,
			Status:  p.Status,
			Path:    occurrence.DetailPath(p.ID),
		})
	}
	return out
}
