// Package api provides the HTTP REST API for graylight.
//
// It exposes the light registry, state reads (resolving virtual lights from
// their children), state changes (fanning out to children), the recorded
// state history and Prometheus metrics.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
