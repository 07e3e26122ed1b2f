// Package api holds the HTTP contract of the chat backend.
package api

import _ "embed"

// OpenAPISchema is the OpenAPI 3 document served at /api/docs/openapi.yaml
// and used to validate incoming requests.
//
//go:embed openapi.yaml
var OpenAPISchema []byte
