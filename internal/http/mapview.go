package http

import (
	"net/http"

	"github.com/svca/portal/internal/geocode"
	"github.com/svca/portal/internal/mapview"
	"github.com/svca/portal/internal/occurrence"
)

// MapFeatures exporta as ocorrências ativas como GeoJSON.
func (h *Handler) MapFeatures(w http.ResponseWriter, r *http.Request) {
	points, err := h.backend(r).ListActiveMapOccurrences(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, mapview.FeatureCollection(points))
}

// MapSidebar lista as ocorrências ativas com o link do detalhe público.
func (h *Handler) MapSidebar(w http.ResponseWriter, r *http.Request) {
	points, err := h.backend(r).ListActiveMapOccurrences(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": mapview.Sidebar(points)})
}

// Geocode converte o endereço do formulário em coordenadas.
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		coords geocode.Coordinates
		err    error
	)
	if address := q.Get("q"); address != "" {
		coords, err = h.geocoder.Search(r.Context(), address)
	} else {
		coords, err = h.geocoder.SearchParts(r.Context(), occurrence.AddressParts{
			Street:       q.Get("rua"),
			Number:       q.Get("numero"),
			Neighborhood: q.Get("bairro"),
			City:         q.Get("cidade"),
			State:        q.Get("estado"),
			Postcode:     q.Get("cep"),
		})
	}
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, coords)
}
