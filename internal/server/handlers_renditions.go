package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"docstore/internal/api"
	"docstore/internal/apperr"
	"docstore/internal/rendition"
)

func (s *Server) handleRequestRendition(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	wait, err := queryDuration(r, "wait", s.opts.WaitTimeout)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if s.engine == nil {
		s.writeServiceError(w, r, unavailable(fmt.Errorf("rendition engine is not configured")))
		return
	}

	ctx := r.Context()
	if _, err := s.documents.Require(ctx, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	original, err := s.content.FindOriginal(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, classifiedError(err, ErrCodeContentNotFound))
		return
	}
	if original == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("document %s has no content to render", id), ErrCodeContentNotFound))
		return
	}

	handle, err := s.engine.Submit(ctx, *original)
	switch {
	case errors.Is(err, rendition.ErrQueueFull):
		s.writeServiceError(w, r, resourceExhausted(err))
		return
	case errors.Is(err, rendition.ErrClosed):
		s.writeServiceError(w, r, unavailable(err))
		return
	case err != nil:
		s.writeServiceError(w, r, internalError(err))
		return
	}

	if !waitForHandle(ctx, handle, wait) {
		s.writeJSON(w, http.StatusAccepted, jobResponse(handle.Status()))
		return
	}

	status := handle.Status()
	if status.Err != nil {
		s.writeServiceError(w, r, classifiedError(status.Err, ErrCodeContentNotFound))
		return
	}
	if status.Result.Skipped {
		s.writeJSON(w, http.StatusOK, jobResponse(status))
		return
	}
	s.writeJSON(w, http.StatusCreated, jobResponse(status))
}

func (s *Server) handleGetRendition(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := s.documents.Require(ctx, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pdf, err := s.content.FindPDFRendition(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, classifiedError(err, ErrCodeRenditionNotFound))
		return
	}
	if pdf == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("document %s has no pdf rendition", id), ErrCodeRenditionNotFound))
		return
	}

	s.writeJSON(w, http.StatusOK, pdf)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if s.engine == nil {
		s.writeServiceError(w, r, unavailable(fmt.Errorf("rendition engine is not configured")))
		return
	}

	handle, found := s.engine.Job(id)
	if !found {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("job %s not found", id), ErrCodeJobNotFound))
		return
	}

	s.writeJSON(w, http.StatusOK, jobResponse(handle.Status()))
}

// waitForHandle blocks until the attempt finishes, d elapses or the
// request goes away. It reports whether the attempt finished.
func waitForHandle(ctx context.Context, h *rendition.Handle, d time.Duration) bool {
	if d <= 0 {
		return h.Finished()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-h.Done():
		return true
	case <-timer.C:
		return h.Finished()
	case <-ctx.Done():
		return h.Finished()
	}
}

func jobResponse(status rendition.Status) api.JobResponse {
	resp := api.JobResponse{
		ID:          status.ID,
		SourceID:    status.Source.ID,
		DocumentID:  status.Source.OwnerID,
		State:       string(status.State),
		Skipped:     status.Result.Skipped,
		Content:     status.Result.Content,
		SubmittedAt: status.SubmittedAt,
	}
	if !status.FinishedAt.IsZero() {
		finished := status.FinishedAt
		resp.FinishedAt = &finished
	}
	if status.Err != nil {
		resp.FailedIn = string(status.FailedIn)
		resp.Error = status.Err.Error()
		kind := apperr.KindOf(status.Err)
		if rendErr, ok := rendition.AsError(status.Err); ok {
			kind = rendErr.Kind()
		}
		resp.ErrorKind = string(kind)
	}
	return resp
}
