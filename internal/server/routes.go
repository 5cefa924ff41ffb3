package server

import "net/http"

// NewMux assembles the route table. metricsHandler is optional; passing nil
// leaves /metrics unrouted.
func NewMux(h *Handler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/trace", h.HandleTrace)
	mux.HandleFunc("/v1/graphs/build", h.HandleBuild)
	mux.HandleFunc("/v1/graphs/", h.HandleGraphStatus)
	mux.HandleFunc("/v1/datasets", h.HandleDatasets)
	mux.HandleFunc("/v1/feedback/ws", h.HandleFeedbackWS)
	mux.HandleFunc("/healthz", h.HandleHealthz)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	return cors(mux)
}
