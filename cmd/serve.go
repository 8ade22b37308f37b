package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skyfence-jp/skyfence/internal/config"
	"github.com/skyfence-jp/skyfence/internal/forecast"
	"github.com/skyfence-jp/skyfence/internal/mesh"
	"github.com/skyfence-jp/skyfence/internal/zone"
)

// maxForecastPayload caps stored forecast payload size.
const maxForecastPayload = 1 << 20

// serveEnv holds the request-serving state: the zone set and its
// classifier are built once at startup and treated as immutable, so
// handlers need no locking.
type serveEnv struct {
	classifier *zone.Classifier
	source     zone.CandidateSource
	zones      []*zone.Feature
	cache      *forecast.Cache
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification and mesh HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		zones, err := loadZoneSet(ctx)
		if err != nil {
			return err
		}
		c, err := newClassifier()
		if err != nil {
			return err
		}

		env := &serveEnv{
			classifier: c,
			source:     candidateSource(zones),
			zones:      zones,
			cache: forecast.NewCache(
				cfg.Cache.MaxEntries,
				time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
			),
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env, cfg.Server),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("server listening",
				zap.Int("port", cfg.Server.Port),
				zap.Int("zones", len(zones)),
			)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&zonesDataset, "dataset", "", "use a stored zone dataset instead of the zone directory")
	serveCmd.Flags().StringVar(&zonesDir, "dir", "", "zone source directory (defaults to zones.dir)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter wires the HTTP API.
func newRouter(env *serveEnv, srvCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: srvCfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if srvCfg.RateLimit > 0 {
		r.Use(rateLimiter(rate.Limit(srvCfg.RateLimit), srvCfg.Burst))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "zones": len(env.zones)})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify/point", env.handleClassifyPoint)
		r.Post("/classify/path", env.handleClassifyPath)
		r.Post("/classify/area", env.handleClassifyArea)

		r.Get("/mesh/encode", env.handleMeshEncode)
		r.Get("/mesh/zoom", env.handleMeshZoom)
		r.Get("/mesh/{code}", env.handleMeshDecode)
		r.Get("/mesh/{code}/neighbors", env.handleMeshNeighbors)

		r.Get("/forecast/stats", env.handleForecastStats)
		r.Get("/forecast/{code}", env.handleForecastGet)
		r.Put("/forecast/{code}", env.handleForecastPut)
	})

	return r
}

// rateLimiter applies a server-wide token bucket.
func rateLimiter(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Classification handlers
// ---------------------------------------------------------------------------

func (env *serveEnv) handleClassifyPoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lng float64 `json:"lng"`
		Lat float64 `json:"lat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	verdict := env.classifier.ClassifyPoint(orb.Point{req.Lng, req.Lat}, env.source)
	writeJSON(w, http.StatusOK, verdict)
}

func (env *serveEnv) handleClassifyPath(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Coordinates [][2]float64 `json:"coordinates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	path := make(orb.LineString, 0, len(req.Coordinates))
	for _, c := range req.Coordinates {
		path = append(path, orb.Point{c[0], c[1]})
	}
	writeJSON(w, http.StatusOK, env.classifier.ClassifyPath(path, env.zones))
}

func (env *serveEnv) handleClassifyArea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Coordinates [][2]float64 `json:"coordinates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ring := make(orb.Ring, 0, len(req.Coordinates))
	for _, c := range req.Coordinates {
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	writeJSON(w, http.StatusOK, env.classifier.ClassifyPolygon(orb.Polygon{ring}, env.zones))
}

// ---------------------------------------------------------------------------
// Mesh handlers
// ---------------------------------------------------------------------------

func (env *serveEnv) handleMeshEncode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}
	level := 3
	if s := q.Get("level"); s != "" {
		if level, err1 = strconv.Atoi(s); err1 != nil {
			writeError(w, http.StatusBadRequest, "level must be 1, 2 or 3")
			return
		}
	}

	code, err := mesh.LatLngToCode(lat, lng, mesh.Level(level))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cellInfo(code))
}

func (env *serveEnv) handleMeshDecode(w http.ResponseWriter, r *http.Request) {
	code, err := mesh.Parse(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cellInfo(code))
}

func (env *serveEnv) handleMeshNeighbors(w http.ResponseWriter, r *http.Request) {
	code, err := mesh.Parse(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":      code,
		"neighbors": mesh.Surrounding(code),
	})
}

func (env *serveEnv) handleMeshZoom(w http.ResponseWriter, r *http.Request) {
	zoom, err := strconv.ParseFloat(r.URL.Query().Get("z"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "z query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, mesh.ConfigForZoom(zoom))
}

// ---------------------------------------------------------------------------
// Forecast cache handlers
//
// The engine does not fetch weather data. These endpoints let the
// external weather collaborator park JSON documents keyed by mesh code
// with the configured TTL, and serve them back to map clients. Payloads
// are validated as JSON on write so reads can replay them under a JSON
// content type without inspection.
// ---------------------------------------------------------------------------

func (env *serveEnv) handleForecastGet(w http.ResponseWriter, r *http.Request) {
	code, err := mesh.Parse(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data := env.cache.Get(code)
	if data == nil {
		writeError(w, http.StatusNotFound, "no cached forecast for cell")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (env *serveEnv) handleForecastPut(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "code")
	if !mesh.IsValid(raw) {
		writeError(w, http.StatusBadRequest, "invalid mesh code")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxForecastPayload))
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty payload")
		return
	}
	if !json.Valid(data) {
		writeError(w, http.StatusBadRequest, "payload must be a JSON document")
		return
	}
	env.cache.Put(mesh.Code(raw), data)
	w.WriteHeader(http.StatusNoContent)
}

func (env *serveEnv) handleForecastStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, env.cache.Stats())
}
