// Package api implements the JSON HTTP API for the portfolio knowledge base.
//
// Surface (all under /api/v1):
//
//	GET    /qa            list entries (q, page, pageSize)
//	POST   /qa            create an unanswered entry
//	GET    /qa/{id}       read one entry
//	PUT    /qa/{id}       full update, re-indexes when the answer changed
//	DELETE /qa/{id}       delete entry and its vector
//	GET    /qa/next       next unanswered question + curation progress
//	POST   /qa/{id}/answer submit an answer through the curation workflow
//	GET    /search        retrieval query (also accepts POST)
//	POST   /chat          grounded first-person answer composition
//	POST   /contact       contact-form delivery (registered when a mailer is configured)
//
// /health and /ready sit outside the middleware stack for probe traffic.
//
// Middleware, outermost first: recovery, request ID, logging, CORS,
// per-IP rate limiting. Error responses use a fixed envelope:
//
//	{"error": {"code": "not_found", "message": "entry not found"}}
//
// Domain errors map onto status codes in one place (writeDomainError): validation
// errors become 400, unknown IDs 404, duplicate questions 409, everything
// else a generic 500 so internals never leak to visitors.
package api
