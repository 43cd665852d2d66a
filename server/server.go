package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/robfig/cron"

	"github.com/lumenblog/lumen/controller"
	"github.com/lumenblog/lumen/models"
)

const shutdownTimeout = 10 * time.Second

// statusRecorder remembers the status code a handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withEnv attaches the process Env to every request
func withEnv(env *models.Env) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(models.WithEnv(r.Context(), env)))
		})
	}
}

// timed records the duration and outcome of every API request, and who
// made it once the handler has resolved the session
func timed(env *models.Env) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, info := models.WithRequestInfo(r)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rec, r)

			if env.Perf != nil {
				env.Perf.LogRequest(
					r.URL.Path,
					time.Since(start),
					rec.status < http.StatusBadRequest,
					info.UserID,
				)
			}
		})
	}
}

// NewRouter registers every handler
func NewRouter(env *models.Env) *mux.Router {
	r := mux.NewRouter()
	r.Use(withEnv(env))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(timed(env))
	for url, handler := range apiHandlers {
		api.HandleFunc(url[len("/api"):], handler)
	}
	api.NotFoundHandler = http.HandlerFunc(controller.NotFoundHandler)

	for url, handler := range rootHandlers {
		r.HandleFunc(url, handler)
	}
	r.Handle("/metrics", controller.PrometheusHandler)

	if env.MockOAuth {
		glog.Info("Mock OAuth routes registered for local testing")
		for url, handler := range mockOAuthHandlers {
			r.HandleFunc(url, handler)
		}
	}

	return r
}

// StartServer owns the http process and cron jobs. It returns when ctx is
// cancelled or the listener fails.
func StartServer(ctx context.Context, env *models.Env, port int64) error {

	// Set up the cron jobs
	c := cron.New()
	for schedule, job := range jobs(env) {
		err := c.AddFunc(schedule, job)
		if err != nil {
			return fmt.Errorf("could not schedule %q: %v", schedule, err)
		}
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(env),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		glog.Infof("Listening on %s", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
