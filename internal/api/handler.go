package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := Decode(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Resolve(r.Context(), territory.Request(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := Decode(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	reqs := make([]territory.Request, len(req.Requests))
	for i, rr := range req.Requests {
		reqs[i] = territory.Request(rr)
	}
	results, err := s.svc.ResolveBatch(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.ListAssignments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"assignments": rows})
}

func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Overrides(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"overrides": rows})
}

func (s *Server) handleUpsertAssignment(w http.ResponseWriter, r *http.Request) {
	t, err := RegionType(chi.URLParam(r, "type"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req assignmentRequest
	if err := Decode(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Upsert(r.Context(), territory.AssignmentInput{
		Type:        t,
		Code:        chi.URLParam(r, "code"),
		Name:        req.Name,
		InstallerID: req.InstallerID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	t, err := RegionType(chi.URLParam(r, "type"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := s.svc.Delete(r.Context(), t, chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ev)
}

func (s *Server) handleListInstallers(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListInstallers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"installers": list})
}

func (s *Server) handleUpsertInstaller(w http.ResponseWriter, r *http.Request) {
	var req installerRequest
	if err := Decode(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := s.svc.UpsertInstaller(r.Context(), store.Installer{
		ID:    chi.URLParam(r, "id"),
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, inst)
}
