/*
Package observability turns engine lifecycle hooks into Prometheus metrics.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	eng, _ := switchboard.New(switchboard.WithLifecycleHooks(metrics.Hooks()))

The HTTP adapter serves the registry at /metrics.
*/
package observability
