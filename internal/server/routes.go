package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Documents.
	mux.HandleFunc("POST /v1/documents", s.handleCreateDocument)
	mux.HandleFunc("GET /v1/documents", s.handleListDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("PATCH /v1/documents/{id}", s.handleUpdateDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", s.handleDeleteDocument)

	// Document contents.
	mux.HandleFunc("POST /v1/documents/{id}/content", s.handleUploadContent)
	mux.HandleFunc("GET /v1/documents/{id}/contents", s.handleListDocumentContents)

	// Renditions and jobs.
	mux.HandleFunc("POST /v1/documents/{id}/rendition", s.handleRequestRendition)
	mux.HandleFunc("GET /v1/documents/{id}/rendition", s.handleGetRendition)
	mux.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)

	// Contents.
	mux.HandleFunc("GET /v1/contents/{id}", s.handleGetContent)
	mux.HandleFunc("GET /v1/contents/{id}/raw", s.handleGetContentRaw)

	// Formats.
	mux.HandleFunc("GET /v1/formats", s.handleListFormats)

	// Admin.
	mux.HandleFunc("POST /v1/admin/verify", s.handleAdminVerify)

	return mux
}
