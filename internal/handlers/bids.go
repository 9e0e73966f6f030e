package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"procurement/db"
	"procurement/internal/workflow"
)

func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var spec workflow.BidSpec
	if err := json.Unmarshal(body, &spec); err != nil {
		writeBadRequest(w, "invalid JSON format")
		return
	}

	bid, err := h.Bids.Create(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeBadRequest(w, "missing username parameter")
		return
	}

	bids, err := h.Bids.ListMine(r.Context(), username, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) GetBidsForTenderHandler(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)

	tenderID, ok := parseIDParam(r, "tenderId")
	if !ok {
		writeBadRequest(w, "invalid tenderId")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username parameter")
		return
	}

	bids, err := h.Bids.ListForTender(r.Context(), tenderID, username, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) GetBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := parseIDParam(r, "bidId")
	if !ok {
		writeBadRequest(w, "invalid bidId")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username")
		return
	}

	status, err := h.Bids.GetStatus(r.Context(), bidID, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) UpdateBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := parseIDParam(r, "bidId")
	if !ok {
		writeBadRequest(w, "invalid bidId")
		return
	}

	status := r.URL.Query().Get("status")
	username := r.URL.Query().Get("username")
	if status == "" || username == "" {
		writeBadRequest(w, "missing status or username")
		return
	}

	bid, err := h.Bids.ChangeStatus(r.Context(), bidID, db.BidStatus(status), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) EditBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := parseIDParam(r, "bidId")
	if !ok {
		writeBadRequest(w, "invalid bidId")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username parameter")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "cannot read body")
		return
	}
	defer r.Body.Close()

	var patch workflow.BidPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}

	bid, err := h.Bids.Edit(r.Context(), bidID, patch, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) RollbackBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := parseIDParam(r, "bidId")
	if !ok {
		writeBadRequest(w, "invalid bidId")
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeBadRequest(w, "invalid version number")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username")
		return
	}

	bid, err := h.Bids.Rollback(r.Context(), bidID, version, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) SubmitBidDecisionHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := parseIDParam(r, "bidId")
	if !ok {
		writeBadRequest(w, "invalid bidId")
		return
	}

	decision := r.URL.Query().Get("decision")
	username := r.URL.Query().Get("username")
	if decision == "" || username == "" {
		writeBadRequest(w, "missing decision or username")
		return
	}

	result, err := h.Bids.SubmitDecision(r.Context(), bidID, db.DecisionType(decision), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CreateBidFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := parseIDParam(r, "bidId")
	if !ok {
		writeBadRequest(w, "invalid bidId")
		return
	}

	username := r.URL.Query().Get("username")
	feedback := r.URL.Query().Get("bidFeedback")
	if username == "" || feedback == "" {
		writeBadRequest(w, "missing username or feedback")
		return
	}

	review, err := h.Bids.SendFeedback(r.Context(), bidID, feedback, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) GetBidReviewsHandler(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)

	tenderID, ok := parseIDParam(r, "tenderId")
	if !ok {
		writeBadRequest(w, "invalid tenderId")
		return
	}

	authorUsername := r.URL.Query().Get("authorUsername")
	requesterUsername := r.URL.Query().Get("requesterUsername")
	if authorUsername == "" || requesterUsername == "" {
		writeBadRequest(w, "missing authorUsername or requesterUsername")
		return
	}

	reviews, err := h.Bids.ListReviews(r.Context(), tenderID, authorUsername, requesterUsername, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
