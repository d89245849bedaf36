package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"tpccharness/api/reportapi"
	"tpccharness/internal/report"
)

// Handler serves a report directory. The data file is read on every request
// so reports appended to while serving are picked up.
type Handler struct {
	dir string
}

func NewHandler(dir string) *Handler {
	return &Handler{dir: dir}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/report/", http.StatusFound)
	})
	r.Get("/metrics", h.metricsHandler)

	api := chi.NewRouter()
	api.Get("/", routeListHandler(r))
	api.Get("/report", statusHandler(func(r *http.Request) (reportapi.ReportingData, error) {
		return h.load()
	}))
	api.Get("/series", statusHandler(func(r *http.Request) (reportapi.Series, error) {
		data, err := h.load()
		return data.TxRtTpmSeries, err
	}))
	api.Get("/tx/{type}", statusHandler(func(r *http.Request) (reportapi.TransactionData, error) {
		t, err := reportapi.ParseTxType(chi.URLParam(r, "type"))
		if err != nil {
			return reportapi.TransactionData{}, reportapi.ErrorNotFound(err)
		}
		data, err := h.load()
		if err != nil {
			return reportapi.TransactionData{}, err
		}
		tx, ok := data.Transaction(t)
		if !ok {
			return tx, reportapi.ErrorNotFound(fmt.Errorf("report has no %v transactions", t))
		}
		return tx, nil
	}))
	r.Mount("/api", api)

	fs := http.StripPrefix("/report/", http.FileServer(http.Dir(h.dir)))
	r.Get("/report/*", fs.ServeHTTP)
}

func (h *Handler) load() (reportapi.ReportingData, error) {
	prior, err := report.LoadPrior(h.dir)
	if err != nil {
		if errors.Is(err, report.ErrNoPriorReport) {
			return reportapi.ReportingData{}, reportapi.ErrorNotFound(err)
		}
		return reportapi.ReportingData{}, reportapi.ErrorUnprocessable(err)
	}
	return prior.Decode()
}

func (h *Handler) metricsHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.load()
	if err != nil {
		writeError(w, err)
		return
	}
	reg := report.NewRegistry(&data)
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func routeListHandler(router chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type routePath struct {
			Method string `json:"method"`
			Path   string `json:"path"`
		}

		var routes []routePath
		err := chi.Walk(router, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			routes = append(routes, routePath{Method: method, Path: route})
			return nil
		})

		type response struct {
			Routes []routePath `json:"routes"`
		}
		writeResponse(w, response{Routes: routes}, err)
	}
}

func statusHandler[O any](fn func(*http.Request) (O, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		resp, err := fn(r)
		writeResponse(w, resp, err)
	}
}

func writeResponse[T any](w http.ResponseWriter, resp T, err error) {
	if err != nil {
		writeError(w, err)
		return
	}

	enc, err := json.Marshal(resp)
	if err != nil {
		writeError(w, fmt.Errorf("failed to marshal response: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(enc)
}

func writeError(w http.ResponseWriter, err error) {
	log.WithError(err).Warn("Request failed")

	enc, _ := json.Marshal(map[string]string{"error": getDisplayError(err).Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(getErrorStatusCode(err))
	w.Write(enc)
}

func getErrorStatusCode(err error) int {
	var se interface{ StatusCode() int }
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return http.StatusInternalServerError
}

func getDisplayError(err error) error {
	var se interface{ DisplayError() error }
	if errors.As(err, &se) {
		return se.DisplayError()
	}
	return err
}

// ServeDir reports whether dir looks like a report directory.
func ServeDir(dir string) error {
	if _, err := os.Stat(report.DataFilePath(dir)); err != nil {
		return fmt.Errorf("%s is not a report directory: %w", dir, err)
	}
	return nil
}
