package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/zyedidia/rvpmu"
)

var countGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "rvpmu_event_count",
		Help: "Logical running total of a performance event",
	},
	[]string{"event", "counter"},
)

func startMetricsServer(listenAddr string) {
	prometheus.MustRegister(countGauge)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Infof("serving metrics on %s", listenAddr)
	go func() {
		server := &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			fatalf("metrics server: %v", err)
		}
	}()
}

func publishCounts(counts rvpmu.Counts) {
	for _, c := range counts {
		counter := "-"
		if c.Counter != rvpmu.Unbound {
			counter = fmt.Sprintf("%d", c.Counter)
		}
		countGauge.WithLabelValues(c.Event, counter).Set(float64(c.Value))
	}
}
