package handler

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter wires the page, API and run endpoints.
func NewRouter(upload *UploadHandler, runs *RunHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", upload.Index).Methods("GET")
	r.HandleFunc("/predict", upload.Predict).Methods("POST")
	r.HandleFunc("/api/predictions", upload.APIPredict).Methods("POST")

	r.HandleFunc("/runs", runs.ListRuns).Methods("GET")
	r.HandleFunc("/runs/{id}", runs.GetRun).Methods("GET")
	r.HandleFunc("/runs/{id}/predictions.csv", runs.DownloadCSV).Methods("GET")
	r.HandleFunc("/runs/{id}/predictions.xlsx", runs.DownloadXLSX).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	}).Methods("GET")

	return r
}

// Wrap adds CORS, access logging and panic recovery around h.
func Wrap(h http.Handler, allowedOrigins []string, accessLog io.Writer) http.Handler {
	h = handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(accessLog, h)
}
