package server

import (
	"net/http"
)

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(deps Deps) http.Handler {
	return newMux(deps)
}

func newMux(deps Deps) http.Handler {
	h := &handler{
		priceSvc:        deps.Prices,
		jobSvc:          deps.Jobs,
		announcementSvc: deps.Announcements,
		tickers:         deps.Tickers,
		stats:           deps.Stats,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/tickers", h.listTickers)
	mux.HandleFunc("GET /api/v1/prices/{symbol}", h.getPrices)
	mux.HandleFunc("GET /api/v1/reports/{symbol}", h.getReports)
	mux.HandleFunc("GET /api/v1/jobs", h.listJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.getJob)

	// Apply middleware stack: requestID -> logging -> recovery
	var handler http.Handler = mux
	handler = recovery(handler)
	handler = logging(handler)
	handler = requestID(handler)

	return handler
}
