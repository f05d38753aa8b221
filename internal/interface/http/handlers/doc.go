// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Judging update ingestion for the scoring pipeline
//   - Reusable middleware components
//   - Jury authentication middleware
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("cache_breaker", handlers.NewBreakerCheck(scoreboardCache.Breaker()))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Judging Ingestion
//
// The IngestHandler interface accepts judging result updates posted by the
// judging hosts and turns them into domain events:
//
//	ingest := handlers.NewJudgingIngest(eventBus)
//	ingest.SetErrorHandler(func(err error) {
//	    log.Printf("Publish failed: %v", err)
//	})
//
//	err := ingest.HandleJudgingUpdate(ctx, payload)
//
// Each accepted update triggers a score row recomputation downstream, so the
// handler validates payloads strictly and rejects unknown verdicts.
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	// Jury API key authentication (bcrypt hash comparison)
//	auth := handlers.NewJuryAuth("X-API-Key", keyHash)
//	protected := auth.Middleware(rebuildHandler)
//
//	// Request timeout
//	withTimeout := handlers.TimeoutMiddleware(30 * time.Second)(myHandler)
//
//	// Security headers
//	secure := handlers.SecurityHeadersMiddleware(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	    auth.Middleware,
//	)
//
// # Best Practices
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
//   - Return detailed information for debugging
//
// When ingesting judging updates:
//   - Validate IDs and verdicts before publishing anything
//   - Process score recomputation asynchronously via the event bus
//   - Keep the endpoint idempotent, recomputation is derived from storage
//   - Log all rejected payloads for debugging
//
// When using middleware:
//   - Apply security middleware early in the chain
//   - Apply authentication before authorization
//   - Use request size limits to prevent DoS attacks
//   - Add proper timeout handling for all endpoints
package handlers
