package geocode

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/occurrence"
)

func TestSearch(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		if gotQuery == "Lugar Nenhum" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"lat":"-8.0476","lon":"-34.8770","display_name":"Recife"}]`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Limiter: rate.NewLimiter(rate.Inf, 1)})
	ctx := context.Background()

	coords, err := c.SearchParts(ctx, occurrence.AddressParts{Street: "Rua da Aurora", Number: "100", City: "Recife", State: "PE"})
	if err != nil {
		t.Fatal(err)
	}
	if coords.Latitude != -8.0476 || coords.Longitude != -34.8770 {
		t.Fatalf("coords = %+v", coords)
	}
	if gotQuery != "Rua da Aurora, 100, Recife, PE" || gotUA != DefaultUserAgent {
		t.Fatalf("query=%q ua=%q", gotQuery, gotUA)
	}

	_, err = c.Search(ctx, "Lugar Nenhum")
	if !errors.Is(err, ErrNotFound) || !apperr.Is(err, apperr.KindValidation) || apperr.Message(err) != MsgNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := c.Search(ctx, "  "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty address must fail locally, got %v", err)
	}
}

func TestSearchRespectsLimiter(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `[{"lat":"1","lon":"2"}]`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.Search(ctx, "Recife"); err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := c.Search(ctx, "Olinda"); !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("second call within the window must wait and observe cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}
