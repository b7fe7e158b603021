// Package metrics exposes Prometheus metrics for tool calls, conversation
// operations and context resolution.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every pairkit collector
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		ToolInvocations, ToolDuration,
		ConversationRequests, ContextFiles,
		LedgerRecords,
	)
}

var ToolInvocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pairkit_tool_invocations_total",
		Help: "Tool calls by tool and terminal status",
	},
	[]string{"tool", "status"},
)

var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pairkit_tool_duration_seconds",
		Help:    "Tool call latency from dispatch to completion",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

var ConversationRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pairkit_conversation_requests_total",
		Help: "Session manager operations by outcome",
	},
	[]string{"op", "outcome"}, // ok | error | no_connection
)

var ContextFiles = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "pairkit_context_files",
		Help:    "Files returned per context resolution",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	},
)

var LedgerRecords = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pairkit_ledger_records_total",
		Help: "File edit records appended, by tool",
	},
	[]string{"tool"},
)

// RecordTool records one completed tool call
func RecordTool(tool, status string, elapsed time.Duration) {
	ToolInvocations.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordConversation records one session manager operation
func RecordConversation(op, outcome string) {
	ConversationRequests.WithLabelValues(op, outcome).Inc()
}

// Handler returns the /metrics handler
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Server wraps the metrics HTTP server
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server listening on addr (host:port)
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background. Listen errors other than a clean
// shutdown are sent on the returned channel.
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return errc
}

// Stop gracefully shuts down the metrics server
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
