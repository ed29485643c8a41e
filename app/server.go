// Copyright 2025 CareBridge
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// router assembles the operational HTTP surface: liveness, readiness,
// and Prometheus metrics behind CORS.
func (a *App) router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", a.handleHealth).Methods("GET")
	r.HandleFunc("/ready", a.handleReady).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// handleHealth is the liveness probe. It reports the process alive and
// names the backend serving each concern; it never reaches out to
// those backends.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(a, w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     serviceName,
		"version":     serviceVersion,
		"environment": a.cfg.Environment,
		"timestamp":   time.Now().UTC(),
		"backends":    a.backends,
	})
}

// handleReady is the readiness probe: not ready during shutdown, and
// not ready while a configured workflow database is unreachable. An
// unreachable embedding cache only degrades the response body; the
// cache soft-fails at runtime, so it never takes the instance out of
// rotation.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if !a.ready.Load() {
		writeJSON(a, w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "shutting_down",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			writeJSON(a, w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"reason": "workflow database unreachable",
			})
			return
		}
	}

	body := map[string]interface{}{"status": "ready"}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			body["embedding_cache"] = "degraded"
		}
	}
	writeJSON(a, w, http.StatusOK, body)
}

func writeJSON(a *App, w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("", "", "failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
