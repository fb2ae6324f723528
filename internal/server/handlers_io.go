package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"docstore/internal/api"
)

func (s *Server) handleUploadContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
		if err := r.ParseMultipartForm(s.opts.MultipartMaxMemory); err != nil {
			s.writeServiceError(w, r, classifyMultipartError(err))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("content")
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired))
			return
		}
		defer file.Close()

		filename := firstNonEmpty(r.FormValue("filename"), header.Filename)
		if _, err := uploadExtension(filename, s.opts.AllowedExtensions); err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		created, loaded, err := s.content.LoadInitialContent(r.Context(), id, file, filename)
		if err != nil {
			s.writeServiceError(w, r, classifiedError(err, ErrCodeDocumentNotFound))
			return
		}
		if !loaded {
			existing, err := s.content.FindOriginal(r.Context(), id)
			if err != nil {
				s.writeServiceError(w, r, classifiedError(err, ErrCodeContentNotFound))
				return
			}
			s.writeJSON(w, http.StatusOK, api.UploadResponse{Loaded: false, Content: existing})
			return
		}

		s.writeJSON(w, http.StatusCreated, api.UploadResponse{Loaded: true, Content: &created})
	})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	c, err := s.content.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, classifiedError(err, ErrCodeContentNotFound))
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGetContentRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	c, rc, err := s.content.Open(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, classifiedError(err, ErrCodeContentNotFound))
		return
	}
	defer rc.Close()

	mediaType := c.Format.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(c.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": c.Name}))
	if c.Checksum != "" {
		w.Header().Set("ETag", strconv.Quote(c.Checksum))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, r.Context().Err()) {
		s.log().Error("stream content", "method", r.Method, "path", r.URL.Path, "content_id", c.ID, "error", err)
	}
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return makeAPIError(http.StatusRequestEntityTooLarge, "invalid_argument", ErrCodeRequestTooLarge, fmt.Errorf("request body too large"))
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
