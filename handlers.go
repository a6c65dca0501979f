package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/kwv/terminalmap/indoor"
)

// newHTTPServer builds the map and search API. locate receives positions
// resolved from QR codes; nil means session.Locate.
func newHTTPServer(session *indoor.Session, renderer *indoor.Renderer, store *indoor.Store, locate func(indoor.Position)) http.Handler {
	if store == nil {
		store = indoor.NewStore()
	}
	if locate == nil {
		locate = func(pos indoor.Position) {
			if err := session.Locate(pos); err != nil {
				log.Printf("Error locating %s: %v", pos.ID, err)
			}
		}
	}

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Status     string    `json:"status"`
			Version    string    `json:"version"`
			Timestamp  time.Time `json:"timestamp"`
			HasDataset bool      `json:"hasDataset"`
			Dataset    string    `json:"dataset,omitempty"`
			FitState   string    `json:"fitState"`
		}{
			Status:    "ok",
			Version:   Version,
			Timestamp: time.Now(),
			FitState:  session.FitState().String(),
		}
		if ds, err := session.Dataset(); err == nil {
			status.HasDataset = true
			status.Dataset = ds.Version
		}
		writeJSON(w, http.StatusOK, status)
	})

	mux.HandleFunc("/features.geojson", func(w http.ResponseWriter, r *http.Request) {
		ds, err := session.Dataset()
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := ds.ToGeoJSON().MarshalJSON()
		if err != nil {
			log.Printf("Error encoding GeoJSON: %v", err)
			http.Error(w, "encoding GeoJSON failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	})

	mux.HandleFunc("/bounds", func(w http.ResponseWriter, r *http.Request) {
		ds, err := session.Dataset()
		if err != nil {
			writeError(w, err)
			return
		}
		if ds.Bounds.Empty() {
			http.Error(w, "Dataset has no bounds", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Version   string        `json:"version"`
			SouthWest indoor.LatLng `json:"southWest"`
			NorthEast indoor.LatLng `json:"northEast"`
			Center    indoor.LatLng `json:"center"`
		}{
			Version:   ds.Version,
			SouthWest: ds.Bounds.SouthWest(),
			NorthEast: ds.Bounds.NorthEast(),
			Center:    ds.Bounds.Center(),
		})
	})

	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := renderer.RenderSVGWith(&buf, filterFrom(r, session)); err != nil {
			log.Printf("Error rendering map SVG: %v", err)
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(buf.Bytes())
	})

	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := renderer.RenderPNGWith(&buf, filterFrom(r, session)); err != nil {
			log.Printf("Error rendering map PNG: %v", err)
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(buf.Bytes())
	})

	// Location search; a non-empty query is remembered as a recent search
	mux.HandleFunc("/locations", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		category := r.URL.Query().Get("category")

		type result struct {
			indoor.Location
			Favorite bool `json:"favorite"`
		}
		found := indoor.Search(session.Catalog(), q, category)
		results := make([]result, 0, len(found))
		for _, loc := range found {
			results = append(results, result{Location: loc, Favorite: store.IsFavorite(loc.ID)})
		}
		store.AddRecent(q)

		writeJSON(w, http.StatusOK, struct {
			Query    string         `json:"query"`
			Category string         `json:"category,omitempty"`
			Results  []result       `json:"results"`
			Recent   []string       `json:"recent"`
			Counts   map[string]int `json:"counts"`
		}{
			Query:    q,
			Category: category,
			Results:  results,
			Recent:   store.Recent(),
			Counts:   indoor.CategoryCounts(session.Catalog()),
		})
	})

	mux.HandleFunc("/recent", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodDelete:
			store.ClearRecent()
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			return
		}
		writeJSON(w, http.StatusOK, store.Recent())
	})

	mux.HandleFunc("/favorites", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, store.Favorites())
		case http.MethodPost:
			id := r.URL.Query().Get("id")
			if !session.Catalog().Has(id) {
				http.Error(w, fmt.Sprintf("unknown location %q", id), http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, struct {
				ID       string `json:"id"`
				Favorite bool   `json:"favorite"`
			}{ID: id, Favorite: store.ToggleFavorite(id)})
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})

	// Hit test in rendering units (x = lng, y = lat)
	mux.HandleFunc("/feature", func(w http.ResponseWriter, r *http.Request) {
		x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
		y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
		if errX != nil || errY != nil {
			http.Error(w, "x and y must be numbers", http.StatusBadRequest)
			return
		}
		ds, err := session.Dataset()
		if err != nil {
			writeError(w, err)
			return
		}
		entry, ok := ds.FeatureAt(orb.Point{x, y})
		if !ok {
			http.Error(w, "No feature at point", http.StatusNotFound)
			return
		}
		info, err := session.Click(entry.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	})

	// Pointer enter (POST) and exit (DELETE) for one feature id
	mux.HandleFunc("/hover", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "id must be an integer", http.StatusBadRequest)
			return
		}
		id := indoor.FeatureID(n)

		switch r.Method {
		case http.MethodPost:
			err = session.PointerEnter(id)
		case http.MethodDelete:
			err = session.PointerExit(id)
		default:
			methodNotAllowed(w, http.MethodPost, http.MethodDelete)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		style, err := session.Style(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			ID      indoor.FeatureID   `json:"id"`
			Hovered bool               `json:"hovered"`
			Style   indoor.PaintParams `json:"style"`
		}{ID: id, Hovered: r.Method == http.MethodPost, Style: style})
	})

	mux.HandleFunc("/focus", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			layer := r.URL.Query().Get("layer")
			if err := session.Focus(layer); err != nil {
				if errors.Is(err, indoor.ErrNoDataset) || errors.Is(err, indoor.ErrFeatureNotFound) {
					writeError(w, err)
					return
				}
				// the highlight is set even when a viewport sink failed
				log.Printf("Error focusing %s: %v", layer, err)
			}
		case http.MethodDelete:
			session.ClearFocus()
			if renderer != nil {
				renderer.ResetFrame()
			}
		default:
			methodNotAllowed(w, http.MethodPost, http.MethodDelete)
			return
		}
		writeJSON(w, http.StatusOK, session.Filter())
	})

	mux.HandleFunc("/locate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		pos, err := indoor.QRLocation(r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		locate(pos)
		writeJSON(w, http.StatusOK, pos)
	})

	mux.HandleFunc("/position", func(w http.ResponseWriter, r *http.Request) {
		pos, ok := session.UserPosition()
		if !ok {
			http.Error(w, "Position unknown", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			indoor.Position
			Radius float64 `json:"radius"`
		}{Position: pos, Radius: pos.MarkerRadius()})
	})

	mux.Handle("/metrics", indoor.MetricsHandler())

	// Default route serves HTML page embedding the SVG map
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>terminalmap</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;height:100%;overflow:hidden;background:#f8fafc}
img{display:block;width:100vw;height:100vh;object-fit:contain}
</style>
</head>
<body>
<img src="/map.svg" alt="Terminal Map">
</body>
</html>`)
	})

	// Wrap mux with logging and request metrics
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		_, pattern := mux.Handler(r)
		indoor.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
	})
}

// filterFrom reads ?category= and ?highlight=, falling back to the session
// filter when neither is present.
func filterFrom(r *http.Request, session *indoor.Session) indoor.FilterState {
	q := r.URL.Query()
	if !q.Has("category") && !q.Has("highlight") {
		return session.Filter()
	}
	return indoor.FilterState{
		SelectedCategory: q.Get("category"),
		HighlightedLayer: q.Get("highlight"),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, indoor.ErrNoDataset):
		http.Error(w, "No dataset loaded", http.StatusServiceUnavailable)
	case errors.Is(err, indoor.ErrFeatureNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
