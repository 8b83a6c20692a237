// Package telemetry exposes prometheus metrics for loom task execution.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TasksStarted counts task invocations by command.
	TasksStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loom",
		Name:      "tasks_started_total",
		Help:      "Number of task invocations, labelled by command.",
	}, []string{"command"})

	// TasksSucceeded counts task invocations whose results were interpreted as success.
	TasksSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loom",
		Name:      "tasks_succeeded_total",
		Help:      "Number of successful task invocations, labelled by command.",
	}, []string{"command"})

	// TasksFailed counts task invocations whose results were interpreted as failure.
	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loom",
		Name:      "tasks_failed_total",
		Help:      "Number of failed task invocations, labelled by command.",
	}, []string{"command"})

	// NodesExecuted counts executed graph nodes by terminal status.
	NodesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loom",
		Name:      "nodes_executed_total",
		Help:      "Number of executed graph nodes, labelled by status.",
	}, []string{"status"})
)

// Expose serves the /metrics endpoint on the given port. Intended for
// orchestrators that want scrape access to the embedding process.
func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
