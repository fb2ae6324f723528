package server

import (
	"net/http"

	"docstore/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, err := s.store.SchemaVersion(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	documents, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	contents, err := s.store.CountContents(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		DBPath:        s.opts.DBPath,
		BlobRoot:      s.opts.BlobRoot,
		SchemaVersion: version,
		Documents:     documents,
		Contents:      contents,
		Formats:       s.content.Formats().Len(),
		Converter:     s.opts.ConverterName,
	}
	if checker, ok := s.opts.Converter.(interface{ Available() bool }); ok {
		resp.ConverterAvailable = checker.Available()
	} else {
		resp.ConverterAvailable = s.opts.Converter != nil
	}
	if s.engine != nil {
		stats := s.engine.Stats()
		resp.Rendition = api.RenditionStats{
			Submitted:  stats.Submitted,
			Rejected:   stats.Rejected,
			Committed:  stats.Committed,
			RolledBack: stats.RolledBack,
			Skipped:    stats.Skipped,
			Queued:     stats.Queued,
			Workers:    stats.Workers,
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.content.Formats().List())
}
