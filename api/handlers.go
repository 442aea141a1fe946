/*
handlers.go - HTTP API handlers for the admission control engine

PURPOSE:
  Exposes the admission engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Decisions:
    POST   /api/properties/{id}/decisions   Evaluate a candidate booking

  Bookings:
    POST   /api/properties/{id}/bookings    Admit and create a booking
    GET    /api/bookings/{id}               Get a booking
    POST   /api/bookings/{id}/cancel        Cancel (releases guard capacity)

  Capacity:
    GET    /api/properties/{id}/snapshot    Capacity snapshot for a range
    GET    /api/properties/{id}/monitor     On-demand compliance sweep
    GET    /api/properties/{id}/sweeps      Recorded scheduled sweeps

  Rules:
    GET    /api/properties/{id}/rules       Get the rule document
    PUT    /api/properties/{id}/rules       Replace the rule document

  Compensation:
    POST   /api/compensations               Record a compensation
    GET    /api/bookings/{id}/compensations Compensation history

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (decider, admitter, monitor, ledger)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 429: Rate limited (see server.go)
  - 500: Internal errors

  Note that a DENIED booking is not an error: the decision endpoint returns
  200 with allowed=false, the booking endpoint returns 409 with the full
  decision body so clients can surface the alternatives.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - sweep.go: Scheduled compliance sweeps
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/compensation"
	"github.com/stayware/admission-engine/guard"
	"github.com/stayware/admission-engine/rules"
	"github.com/stayware/admission-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// SweepRunRecorder persists sweep run audit records. Implemented by the
// sqlite store; nil disables the history endpoints.
type SweepRunRecorder interface {
	SaveSweepRun(ctx context.Context, run sqlite.SweepRun) error
	ListSweepRuns(ctx context.Context, propertyID admission.PropertyID, limit int) ([]sqlite.SweepRun, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Decider      *admission.Decider
	Admitter     *guard.Admitter
	Snapshots    *admission.Snapshotter
	Monitor      *admission.Monitor
	Reservations admission.ReservationStore

	RuleStore rules.Store
	Factory   *rules.Factory
	Cache     *rules.Cached // nil when rule caching is off

	Ledger *compensation.Ledger
	Sweeps SweepRunRecorder // nil when no sweep history backend
}

// =============================================================================
// DECISIONS
// =============================================================================

// Decide evaluates a candidate booking without creating anything.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	intent, ok := h.parseIntent(w, r)
	if !ok {
		return
	}

	decision, err := h.Decider.Decide(r.Context(), intent)
	if err != nil {
		writeDomainError(w, "Failed to evaluate booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toDecisionDTO(decision))
}

// CreateBooking runs the full admission path: decide, claim capacity
// atomically, persist the reservation.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	intent, ok := h.parseIntent(w, r)
	if !ok {
		return
	}

	decision, reservation, err := h.Admitter.Admit(r.Context(), intent)
	if err != nil {
		writeDomainError(w, "Failed to create booking", err)
		return
	}

	resp := BookingResponseDTO{Decision: toDecisionDTO(decision)}
	if reservation != nil {
		dto := toReservationDTO(*reservation)
		resp.Reservation = &dto
	}

	if !decision.Allowed {
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetBooking returns one reservation.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := admission.ReservationID(chi.URLParam(r, "id"))

	reservation, err := h.Reservations.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(reservation))
}

// CancelBooking cancels a reservation and releases its guard capacity.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := admission.ReservationID(chi.URLParam(r, "id"))

	if err := h.Admitter.Cancel(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to cancel booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// =============================================================================
// CAPACITY
// =============================================================================

// GetSnapshot returns the capacity picture for ?from=..&to=..&room_type=..
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	propertyID := admission.PropertyID(chi.URLParam(r, "id"))
	roomTypeID := admission.RoomTypeID(r.URL.Query().Get("room_type"))

	rng, ok := parseRangeParams(w, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if !ok {
		return
	}

	snap, err := h.Snapshots.Snapshot(r.Context(), propertyID, roomTypeID, rng)
	if err != nil {
		writeDomainError(w, "Failed to build snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// RunSweep performs an on-demand compliance sweep over ?horizon_days=N.
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	propertyID := admission.PropertyID(chi.URLParam(r, "id"))

	horizon := admission.DefaultHorizonDays
	if v := r.URL.Query().Get("horizon_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid horizon_days (want positive integer)", err)
			return
		}
		horizon = n
	}

	report, err := h.Monitor.Sweep(r.Context(), propertyID, horizon)
	if err != nil {
		writeDomainError(w, "Failed to run sweep", err)
		return
	}
	writeJSON(w, http.StatusOK, toSweepReportDTO(report))
}

// ListSweepRuns returns recorded scheduled sweeps, newest first.
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	if h.Sweeps == nil {
		writeError(w, http.StatusNotFound, "Sweep history is not enabled", nil)
		return
	}
	propertyID := admission.PropertyID(chi.URLParam(r, "id"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	runs, err := h.Sweeps.ListSweepRuns(r.Context(), propertyID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toSweepRunDTO(run))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RULES
// =============================================================================

// GetRule returns the stored rule document for the property (or for
// ?room_type=.. when given).
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	propertyID := admission.PropertyID(chi.URLParam(r, "id"))
	roomTypeID := admission.RoomTypeID(r.URL.Query().Get("room_type"))

	doc, err := h.RuleStore.RuleDocument(r.Context(), propertyID, roomTypeID)
	if errors.Is(err, rules.ErrNoDocument) {
		writeError(w, http.StatusNotFound, "No rule configured", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rule", err)
		return
	}

	rule, warnings, err := h.Factory.Parse(doc)
	if err != nil {
		// Stored document no longer parses; surface it rather than 500 so
		// operators can repair it via PUT.
		writeError(w, http.StatusUnprocessableEntity, "Stored rule document is invalid", err)
		return
	}

	writeJSON(w, http.StatusOK, RuleDocumentDTO{
		PropertyID: string(propertyID),
		RoomTypeID: string(roomTypeID),
		Rule:       h.Factory.ToJSON(rule),
		Warnings:   warnings,
	})
}

// SaveRule validates and replaces the rule document, then drops any cached
// resolution for the property.
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	propertyID := admission.PropertyID(chi.URLParam(r, "id"))

	var req SaveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, warnings, err := h.Factory.FromJSON(req.Rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	doc, err := json.Marshal(req.Rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode rule", err)
		return
	}

	roomTypeID := admission.RoomTypeID(req.RoomTypeID)
	if err := h.RuleStore.SaveRuleDocument(r.Context(), propertyID, roomTypeID, string(doc)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}

	if h.Cache != nil {
		h.Cache.Invalidate(propertyID)
	}

	writeJSON(w, http.StatusOK, RuleDocumentDTO{
		PropertyID: string(propertyID),
		RoomTypeID: req.RoomTypeID,
		Rule:       h.Factory.ToJSON(rule),
		Warnings:   warnings,
	})
}

// =============================================================================
// COMPENSATION
// =============================================================================

// RecordCompensation appends a compensation record for a walked guest.
func (h *Handler) RecordCompensation(w http.ResponseWriter, r *http.Request) {
	var req CompensationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := compensation.Input{
		BookingID: admission.ReservationID(req.BookingID),
		Type:      req.Type,
		Currency:  req.Currency,
		Reason:    req.Reason,
	}
	if req.Amount != nil {
		amt, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount (want decimal string)", err)
			return
		}
		in.Amount = &amt
	}

	rec, err := h.Ledger.Record(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to record compensation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompensationDTO(rec))
}

// ListCompensations returns the compensation history for one booking.
func (h *Handler) ListCompensations(w http.ResponseWriter, r *http.Request) {
	bookingID := admission.ReservationID(chi.URLParam(r, "id"))

	recs, err := h.Ledger.List(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, "Failed to list compensations", err)
		return
	}

	dtos := make([]CompensationDTO, 0, len(recs))
	for _, rec := range recs {
		dtos = append(dtos, toCompensationDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) parseIntent(w http.ResponseWriter, r *http.Request) (admission.Intent, bool) {
	propertyID := admission.PropertyID(chi.URLParam(r, "id"))

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return admission.Intent{}, false
	}

	rng, ok := parseRangeParams(w, req.CheckIn, req.CheckOut)
	if !ok {
		return admission.Intent{}, false
	}

	return admission.Intent{
		PropertyID: propertyID,
		RoomTypeID: admission.RoomTypeID(req.RoomTypeID),
		Range:      rng,
		Source:     req.Source,
	}, true
}

func parseRangeParams(w http.ResponseWriter, from, to string) (admission.DateRange, bool) {
	fromDate, err := admission.ParseDate(from)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_in/from date (use YYYY-MM-DD)", err)
		return admission.DateRange{}, false
	}
	toDate, err := admission.ParseDate(to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_out/to date (use YYYY-MM-DD)", err)
		return admission.DateRange{}, false
	}

	rng := admission.DateRange{From: fromDate, To: toDate}
	if err := rng.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return admission.DateRange{}, false
	}
	return rng, true
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, admission.ErrBookingNotFound),
		errors.Is(err, admission.ErrRoomTypeNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case admission.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
