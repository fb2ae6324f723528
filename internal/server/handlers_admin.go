package server

import (
	"net/http"
	"strings"
	"time"

	"docstore/internal/api"
	"docstore/internal/content"
)

func (s *Server) handleAdminVerify(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyRequest
	if !s.decodeOptionalJSONReq(w, r, &req) {
		return
	}

	grace := time.Duration(0)
	if raw := strings.TrimSpace(req.OrphanGrace); raw != "" {
		parsed, err := parseDuration("orphan_grace", raw)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, err)
			return
		}
		grace = parsed
	}

	s.withLimiter(w, r, s.verifyLimiter, "verify", func() {
		report, err := s.content.Verify(r.Context(), content.VerifyOptions{Sweep: req.Sweep, OrphanGrace: grace})
		if err != nil {
			s.writeServiceError(w, r, classifiedError(err, ErrCodeContentNotFound))
			return
		}
		s.writeJSON(w, http.StatusOK, verifyResponse(report))
	})
}

func verifyResponse(report content.VerifyReport) api.VerifyResponse {
	problems := make([]api.VerifyProblem, 0, len(report.Problems))
	for _, p := range report.Problems {
		problems = append(problems, api.VerifyProblem{
			ContentID: p.ContentID,
			OwnerID:   p.OwnerID,
			Location:  p.Location,
			Issue:     p.Issue,
		})
	}
	orphans := report.Orphans
	if orphans == nil {
		orphans = []string{}
	}
	return api.VerifyResponse{
		Checked:       report.Checked,
		Healthy:       report.Healthy(),
		Problems:      problems,
		Orphans:       orphans,
		SweptCount:    report.SweptCount,
		SweepFailures: report.SweepFailures,
		DryRun:        report.DryRun,
	}
}
