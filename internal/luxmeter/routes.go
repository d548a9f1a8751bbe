package luxmeter

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ztkent/lux-meter/internal/tools"
)

// NewRouter wires the dashboard and API routes for meter.
func NewRouter(meter *LuxMeter) *chi.Mux {
	r := chi.NewRouter()
	// Log requests and recover from panics
	r.Use(middleware.Logger)
	r.Use(handleServerPanic)

	r.Group(func(r chi.Router) {
		r.Use(tools.CheckInNetwork)

		r.Get("/", meter.ServeResultsGraph())
		r.Post("/graph", meter.ServeResultsGraph())
		r.Get("/graph", meter.ServeResultsGraph())

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/start", meter.Start())
			r.Get("/stop", meter.Stop())
			r.Get("/status", meter.ServeSensorStatus())
			r.Get("/current-conditions", meter.CurrentConditions())
			r.Get("/conditions", meter.HistoricalConditions())
			r.Post("/settings", meter.UpdateSettings())
			r.Get("/export", meter.ServeResultsDB())
		})
	})

	// Route for service identification
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, struct {
			ServiceName string `json:"service_name"`
		}{
			ServiceName: "Lux Meter",
		}, http.StatusOK)
	})
	return r
}

func handleServerPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				ServeResponse(w, r, fmt.Sprintf("%v", err), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
