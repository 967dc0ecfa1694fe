// Package http implements the HTTP handlers of the resampling service.
// Handlers stay thin: they decode and validate requests, call the service
// layer and render the result with go-chi/render.
//
// # Endpoints
//
//	POST   /api/runs          start a run (202, 409 while another run executes)
//	GET    /api/runs          list runs, optional ?status= and ?limit=
//	GET    /api/runs/{id}     fetch one run
//	DELETE /api/runs/{id}     cancel a running run
//	GET    /api/health        component health
//	GET    /api/health/ready  503 unless every component is ready
//	GET    /api/version       application name and version
//	GET    /ws                run event stream
//
// # Errors
//
// Every failure is rendered as an errors.APIError:
//
//	{
//	    "status_code": 400,
//	    "error_code": "VALIDATION_FAILED",
//	    "message": "Request validation failed",
//	    "details": {"errors": [{"field": "input_dir", "message": "input_dir is required"}]}
//	}
//
// Service errors are mapped with errors.FromError. Unknown run ids always
// answer RUN_NOT_FOUND.
//
// # Testing
//
// Handlers depend on the RunManager and HealthChecker interfaces so tests can
// substitute testify mocks and drive them with httptest.
package http
