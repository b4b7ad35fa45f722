/*
Package observability provides tools for monitoring the guidebook engine.

Both helpers produce domain.LifecycleHooks, so they compose with any other hooks
through domain.MergeHooks:

	metrics, _ := observability.NewMetrics(nil)
	hooks := domain.MergeHooks(metrics.Hooks(), observability.LoggingHooks(logger))
	engine, _ := guidebook.New("leaves.yaml", guidebook.WithLifecycleHooks(hooks))
	http.Handle("/metrics", metrics.Handler())
*/
package observability
