package validator

import (
	"context"
	"fmt"
	"os"
	"sync"

	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// OpenAPIValidator validates requests against an OpenAPI document
type OpenAPIValidator struct {
	doc        *openapi3.T
	router     routers.Router
	schemaPath string
	mutex      sync.RWMutex
}

// NewOpenAPIValidator creates a validator from an in-memory document
func NewOpenAPIValidator(schema []byte) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI schema: %w", err)
	}
	return newValidator(loader, doc, "")
}

// NewOpenAPIValidatorFromFile creates a validator from a document on disk.
// ReloadSchema re-reads the same file.
func NewOpenAPIValidatorFromFile(schemaPath string) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI schema from %s: %w", schemaPath, err)
	}
	return newValidator(loader, doc, schemaPath)
}

func newValidator(loader *openapi3.Loader, doc *openapi3.T, schemaPath string) (*OpenAPIValidator, error) {
	router, err := buildRouter(loader, doc)
	if err != nil {
		return nil, err
	}
	return &OpenAPIValidator{doc: doc, router: router, schemaPath: schemaPath}, nil
}

func buildRouter(loader *openapi3.Loader, doc *openapi3.T) (routers.Router, error) {
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI schema: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("error creating OpenAPI router: %w", err)
	}
	return router, nil
}

// Document returns the loaded OpenAPI document
func (v *OpenAPIValidator) Document() *openapi3.T {
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	return v.doc
}

// ReloadSchema reloads a file-backed schema from disk
func (v *OpenAPIValidator) ReloadSchema() error {
	if v.schemaPath == "" {
		return fmt.Errorf("schema was not loaded from a file")
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(v.schemaPath)
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI schema from %s: %w", v.schemaPath, err)
	}
	router, err := buildRouter(loader, doc)
	if err != nil {
		return err
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.doc = doc
	v.router = router
	return nil
}

// ReloadOn reloads the schema every time trigger fires until ctx is done.
// A failed reload keeps the previous schema. Embedded schemas are left as is.
func (v *OpenAPIValidator) ReloadOn(ctx context.Context, trigger <-chan os.Signal, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-trigger:
			if v.schemaPath == "" {
				log.Info("Ignoring schema reload, schema is embedded", "signal", sig.String())
				continue
			}
			if err := v.ReloadSchema(); err != nil {
				log.LogError(err, "OpenAPI schema reload failed, keeping the previous schema", "path", v.schemaPath)
				continue
			}
			log.Info("OpenAPI schema reloaded", "path", v.schemaPath)
		}
	}
}

// RejectFunc renders a request the document rejects. The request is aborted
// after it returns.
type RejectFunc func(c *gin.Context, err *errors.AppError)

// Middleware rejects requests that do not match the document with a
// 400 INVALID_REQUEST. Routes the document does not describe pass through.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return v.MiddlewareWith(nil)
}

// MiddlewareWith is Middleware with a custom rejection body. A nil reject
// hands the error to the error handler.
func (v *OpenAPIValidator) MiddlewareWith(reject RejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		v.mutex.RLock()
		router := v.router
		v.mutex.RUnlock()

		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         true,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			appErr := errors.NewBadRequestError(errors.CodeInvalidRequest, "Request does not match the API contract").
				WithDetails(err.Error()).
				WithCause(err)
			if reject != nil {
				reject(c, appErr)
			} else {
				c.Error(appErr)
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
