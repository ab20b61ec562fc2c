// Package httpserver provides a reusable HTTP server implementation with common
// functionality for the subnet's long-running services.
//
// The httpserver package implements a base HTTP server with standard health
// endpoints, graceful shutdown capabilities, metrics, and flexible routing. The
// registry, miner, and validator binaries all serve their endpoints through it.
//
// # Key Components
//
//   - BaseServer: Core HTTP server with health checks, metrics, and lifecycle management
//   - RouteRegistrar: Interface for components to register their routes with the server
//
// # Server Lifecycle
//
// The BaseServer implements a complete server lifecycle:
//
//  1. Initialization: Configure server with HTTP settings and route registrars
//  2. Startup: Run HTTP and metrics servers in background goroutines
//  3. Operation: Handle requests with proper logging and monitoring
//  4. Readiness Control: Support drain/undrain operations for load balancers
//  5. Graceful Shutdown: Wait for in-flight requests to complete
//
// # Health and Diagnostics
//
// All servers built with BaseServer automatically include:
//
//   - Liveness Check: Simple endpoint to verify server is running (/livez)
//   - Readiness Check: Endpoint indicating if server is ready to accept requests (/readyz)
//   - Drain Control: Endpoints to prepare for graceful shutdown (/drain, /undrain)
//   - Metrics: Optional Prometheus-compatible metrics endpoint
//   - Profiling: Optional pprof debugging endpoints when enabled
//
// # Usage Example
//
//	// Services register their routes through the RouteRegistrar interface,
//	// which *services.HTTPMiner, *services.HTTPValidator, and
//	// *services.Registry all satisfy.
//	miner, _ := services.NewHTTPMiner(cfg, signingKey)
//
//	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
//	    ListenAddr:  cfg.HTTPAddr,
//	    MetricsAddr: "127.0.0.1:9090",
//	    Log:         log,
//	}, miner)
//	if err != nil {
//	    return err
//	}
//
//	srv.RunInBackground()
//	defer srv.Shutdown()
//
// This approach ensures consistent behavior across the registry, miner, and
// validator binaries while allowing specialized functionality to be added.
package httpserver
