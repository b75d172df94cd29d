package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/http/response"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

type leaveRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"max=1024"`
}

type leaveStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

type LeaveHandler struct {
	leaves service.LeaveServiceInterface
}

func NewLeaveHandler(leaves service.LeaveServiceInterface) *LeaveHandler {
	return &LeaveHandler{leaves: leaves}
}

func (h *LeaveHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errMalformedBody) {
			badRequest(w, r, "INVALID_BODY", err.Error())
			return
		}
		writeError(w, r, err)
		return
	}
	// Both dates already passed the datetime validator.
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)
	leave, err := h.leaves.Request(r.Context(), actor, service.LeaveInput{StartDate: start, EndDate: end, Reason: req.Reason})
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, leave)
}

func (h *LeaveHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	leaves, err := h.leaves.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, r, http.StatusOK, leaves)
}

func (h *LeaveHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	leaves, err := h.leaves.ListAll(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, r, http.StatusOK, leaves)
}

func (h *LeaveHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(w, r, "INVALID_PARAMETER", "id must be a positive integer")
		return
	}
	var req leaveStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errMalformedBody) {
			badRequest(w, r, "INVALID_BODY", err.Error())
			return
		}
		writeError(w, r, err)
		return
	}
	leave, err := h.leaves.SetStatus(r.Context(), actor, uint(id), domain.LeaveStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.Audit(r, actor.UserID, "leave.status", "leave_id", leave.ID, "status", req.Status)
	response.JSON(w, r, http.StatusOK, leave)
}
