package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/server/models"
)

const maxBodyBytes = 8 << 20

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, UserID: res.UserID})
}

func (s *Server) push(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return
	}

	var req pushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		writeDetail(w, http.StatusBadRequest, "device_id is required")
		return
	}
	for _, d := range req.Deltas {
		if d != nil {
			// sequence numbers are assigned by the server only
			d.ServerSeq = 0
		}
	}

	res, err := s.sync.Push(r.Context(), userID, req.DeviceID, req.Deltas)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := pushResponse{Acked: res.Acked, LastServerSeq: res.LastServerSeq}
	if resp.Acked == nil {
		resp.Acked = []string{}
	}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, failedDelta{ID: f.ID, Reason: f.Reason})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) pull(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return
	}

	q := r.URL.Query()

	var cursor int64
	if raw := q.Get("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeDetail(w, http.StatusBadRequest, "cursor must be a non-negative integer")
			return
		}
		cursor = v
	}

	deviceID := q.Get("device_id")
	if deviceID == "" {
		writeDetail(w, http.StatusBadRequest, "device_id is required")
		return
	}

	res, err := s.sync.Pull(r.Context(), userID, deviceID, cursor)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := pullResponse{Cursor: res.Cursor, Deltas: res.Deltas}
	if resp.Deltas == nil {
		resp.Deltas = []*models.Delta{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, common.ErrStoreUnavailable) {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeDetail(w, status, detail)
}
