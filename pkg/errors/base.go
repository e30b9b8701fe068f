package errors

import "net/http"

// OK represents a successful operation.
var OK = Register(New(0, http.StatusOK, "Success"))

// Common errors shared by every service.
var (
	ErrBadRequest   = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, "Bad request"))
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, "Invalid parameter"))
	ErrUnauthorized = Register(New(MakeCode(ServiceCommon, CategoryAuth, 0), http.StatusUnauthorized, "Unauthorized"))
	ErrNotFound     = Register(New(MakeCode(ServiceCommon, CategoryResource, 0), http.StatusNotFound, "Resource not found"))
	ErrInternal     = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, "Internal server error"))
	ErrDatabase     = Register(New(MakeCode(ServiceCommon, CategoryDatabase, 0), http.StatusInternalServerError, "Database error"))
	ErrCache        = Register(New(MakeCode(ServiceCommon, CategoryCache, 0), http.StatusInternalServerError, "Cache error"))
	ErrTimeout      = Register(New(MakeCode(ServiceCommon, CategoryTimeout, 0), http.StatusGatewayTimeout, "Request timeout"))
)

// Storybook service errors.
var (
	// ErrInvalidRequest indicates malformed chat or upload input.
	ErrInvalidRequest = Register(New(MakeCode(ServiceStorybook, CategoryRequest, 1), http.StatusBadRequest, "Invalid request parameters"))
	// ErrEmptyDocument indicates chunking produced nothing to index.
	ErrEmptyDocument = Register(New(MakeCode(ServiceStorybook, CategoryRequest, 2), http.StatusBadRequest, "Document produced no chunks"))
	// ErrNoDocument indicates a chat turn without any uploaded document.
	ErrNoDocument = Register(New(MakeCode(ServiceStorybook, CategoryRequest, 3), http.StatusBadRequest, "No PDF has been uploaded. Please upload a PDF first."))

	// ErrSessionNotFound indicates an unknown or hidden session.
	ErrSessionNotFound = Register(New(MakeCode(ServiceStorybook, CategoryResource, 1), http.StatusNotFound, "Session not found"))

	// ErrIngestionFailed indicates an all-or-nothing ingestion abort.
	ErrIngestionFailed = Register(New(MakeCode(ServiceStorybook, CategoryInternal, 1), http.StatusInternalServerError, "Document ingestion failed"))
	// ErrGenerationFailed indicates the generation function failed or timed out.
	ErrGenerationFailed = Register(New(MakeCode(ServiceStorybook, CategoryInternal, 2), http.StatusBadGateway, "Answer generation failed"))
	// ErrCheckpointFailed indicates conversation state could not be read or written.
	ErrCheckpointFailed = Register(New(MakeCode(ServiceStorybook, CategoryDatabase, 1), http.StatusInternalServerError, "Conversation checkpoint failed"))

	// ErrRetrievalFailed indicates the core vector search is unavailable.
	ErrRetrievalFailed = Register(New(MakeCode(ServiceStorybook, CategoryNetwork, 1), http.StatusServiceUnavailable, "Retrieval failed"))

	// ErrConfiguration indicates a required credential or endpoint is missing.
	ErrConfiguration = Register(New(MakeCode(ServiceStorybook, CategoryConfig, 1), http.StatusInternalServerError, "Invalid configuration"))
)
