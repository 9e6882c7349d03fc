package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func newServer(addr string) *http.Server {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.Handler())
	hdlr.HandleFunc("/healthz", handleHealthz)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK")) //nolint:errcheck
}
