package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dustinel/risk-engine/internal/repo"
)

// mock-model stands in for the hosted scoring model and the communications gateway
// during local development.
func main() {
	addr := flag.String("addr", ":8080", "listen address")
	delay := flag.Duration("delay", 0, "artificial latency added to /score")
	flag.Parse()

	r := chi.NewRouter()
	r.Use(middleware.Logger, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/score", func(w http.ResponseWriter, r *http.Request) {
		var fv repo.FeatureVector
		if err := json.NewDecoder(r.Body).Decode(&fv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if *delay > 0 {
			time.Sleep(*delay)
		}
		writeJSON(w, http.StatusOK, score(fv))
	})

	r.Post("/sms", accept("sms"))
	r.Post("/email", accept("email"))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("mock-model listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// score is a toy linear model over the feature vector.
func score(fv repo.FeatureVector) repo.RemoteScore {
	health := 100.0
	var factors []repo.RemoteFactor
	if fv.HasMask == 0 {
		health -= 28
		factors = append(factors, repo.RemoteFactor{Type: "NO_MASK", Severity: "HIGH", Weight: 0.33})
	}
	if fv.HasHelmet == 0 {
		health -= 24
		factors = append(factors, repo.RemoteFactor{Type: "NO_HELMET", Severity: "HIGH", Weight: 0.29})
	}
	if fv.DustLevel >= 2 {
		health -= float64(fv.DustLevel) * 7
		factors = append(factors, repo.RemoteFactor{Type: "DUST_EXPOSURE", Severity: "MEDIUM", Weight: 0.18})
	}
	health -= fv.FatigueScore * 20
	health -= float64(fv.HazardCount) * 4

	confidence := 0.87
	return repo.RemoteScore{
		HealthScore:  &health,
		RiskFactors:  factors,
		Confidence:   &confidence,
		ModelVersion: "mock-v1",
	}
}

func accept(channel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("%s delivered: %v", channel, body)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}
