/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Decisions:
    DecideRequest, DecisionDTO, AlternativeDTO

  Bookings:
    BookingRequest, BookingResponseDTO, ReservationDTO

  Capacity:
    SnapshotDTO

  Monitoring:
    SweepReportDTO, RiskAreaDTO, SweepRunDTO

  Rules:
    RuleDocumentDTO, SaveRuleRequest (rule bodies wrap rules.RuleJSON)

  Compensation:
    CompensationRequest, CompensationDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - rules/factory.go: RuleJSON type
*/
package api

import (
	"time"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/compensation"
	"github.com/stayware/admission-engine/rules"
	"github.com/stayware/admission-engine/store/sqlite"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DECISIONS
// =============================================================================

// DecideRequest asks whether a candidate booking would be admitted.
type DecideRequest struct {
	RoomTypeID string `json:"room_type_id,omitempty"`
	CheckIn    string `json:"check_in"`  // ISO date, inclusive
	CheckOut   string `json:"check_out"` // ISO date, exclusive
	Source     string `json:"source,omitempty"`
}

// DecisionDTO is the admission outcome returned to clients.
type DecisionDTO struct {
	Allowed            bool             `json:"allowed"`
	Reason             string           `json:"reason"`
	Risk               string           `json:"risk"`
	CurrentOverbooking int              `json:"current_overbooking"`
	MaxAllowed         int              `json:"max_allowed"`
	MaxAllowedPct      float64          `json:"max_allowed_pct"`
	Alternatives       []AlternativeDTO `json:"alternatives,omitempty"`
	Warnings           []string         `json:"warnings,omitempty"`
	DecidedAt          string           `json:"decided_at"`
}

// AlternativeDTO is one re-offer option on a denied booking.
type AlternativeDTO struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RoomTypeID  string `json:"room_type_id,omitempty"`
	CheckIn     string `json:"check_in,omitempty"`
	CheckOut    string `json:"check_out,omitempty"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingRequest creates a booking, going through admission control.
type BookingRequest struct {
	RoomTypeID string `json:"room_type_id,omitempty"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Source     string `json:"source,omitempty"`
}

// BookingResponseDTO pairs the decision with the created reservation
// (nil when denied).
type BookingResponseDTO struct {
	Decision    DecisionDTO     `json:"decision"`
	Reservation *ReservationDTO `json:"reservation,omitempty"`
}

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	RoomTypeID string `json:"room_type_id,omitempty"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
	Source     string `json:"source,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// =============================================================================
// CAPACITY
// =============================================================================

// SnapshotDTO is the capacity picture for a property/range.
type SnapshotDTO struct {
	PropertyID        string   `json:"property_id"`
	RoomTypeID        string   `json:"room_type_id,omitempty"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	TotalRooms        int      `json:"total_rooms"`
	ConfirmedBookings int      `json:"confirmed_bookings"`
	PendingBookings   int      `json:"pending_bookings"`
	AvailableRooms    int      `json:"available_rooms"`
	OverbookingCount  int      `json:"overbooking_count"`
	OverbookingPct    float64  `json:"overbooking_pct"`
	RiskLevel         string   `json:"risk_level"`
	Recommendations   []string `json:"recommendations,omitempty"`
}

// =============================================================================
// MONITORING
// =============================================================================

// SweepReportDTO is the compliance sweep result for one property.
type SweepReportDTO struct {
	PropertyID      string        `json:"property_id"`
	HorizonDays     int           `json:"horizon_days"`
	GeneratedAt     string        `json:"generated_at"`
	Status          string        `json:"status"`
	RiskAreas       []RiskAreaDTO `json:"risk_areas"`
	Recommendations []string      `json:"recommendations,omitempty"`
	NextActions     []string      `json:"next_actions,omitempty"`
}

// RiskAreaDTO is one room-type/date combination worth attention.
type RiskAreaDTO struct {
	Date     string      `json:"date"`
	RoomType string      `json:"room_type,omitempty"`
	Snapshot SnapshotDTO `json:"snapshot"`
}

// SweepRunDTO is one recorded scheduled sweep.
type SweepRunDTO struct {
	ID          string `json:"id"`
	PropertyID  string `json:"property_id"`
	HorizonDays int    `json:"horizon_days"`
	Status      string `json:"status"`
	RiskAreas   int    `json:"risk_areas"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// =============================================================================
// RULES
// =============================================================================

// RuleDocumentDTO wraps a stored rule with parse warnings.
type RuleDocumentDTO struct {
	PropertyID string         `json:"property_id"`
	RoomTypeID string         `json:"room_type_id,omitempty"`
	Rule       rules.RuleJSON `json:"rule"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// SaveRuleRequest replaces a property's (or room type's) rule document.
type SaveRuleRequest struct {
	RoomTypeID string         `json:"room_type_id,omitempty"`
	Rule       rules.RuleJSON `json:"rule"`
}

// =============================================================================
// COMPENSATION
// =============================================================================

// CompensationRequest records a compensation for a walked guest. Type and
// amount may be omitted; the property's compensation policy then fills them.
type CompensationRequest struct {
	BookingID string  `json:"booking_id"`
	Type      string  `json:"type,omitempty"`
	Amount    *string `json:"amount,omitempty"` // decimal string, e.g. "150.00"
	Currency  string  `json:"currency,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// CompensationDTO represents a compensation ledger record.
type CompensationDTO struct {
	ID          string `json:"id"`
	BookingID   string `json:"booking_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ProcessedAt string `json:"processed_at"`
	Status      string `json:"status"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toDecisionDTO(d admission.Decision) DecisionDTO {
	out := DecisionDTO{
		Allowed:            d.Allowed,
		Reason:             d.Reason,
		Risk:               d.Risk.String(),
		CurrentOverbooking: d.CurrentOverbooking,
		MaxAllowed:         d.MaxAllowed,
		MaxAllowedPct:      d.MaxAllowedPct,
		Warnings:           d.Warnings,
		DecidedAt:          d.DecidedAt.UTC().Format(time.RFC3339),
	}
	for _, alt := range d.Alternatives {
		dto := AlternativeDTO{
			Type:        string(alt.Type),
			Description: alt.Description,
			Available:   alt.Available,
			RoomTypeID:  string(alt.RoomTypeID),
		}
		if !alt.Range.From.IsZero() {
			dto.CheckIn = alt.Range.From.String()
			dto.CheckOut = alt.Range.To.String()
		}
		out.Alternatives = append(out.Alternatives, dto)
	}
	return out
}

func toReservationDTO(r admission.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:         string(r.ID),
		PropertyID: string(r.PropertyID),
		RoomTypeID: string(r.RoomTypeID),
		CheckIn:    r.Range.From.String(),
		CheckOut:   r.Range.To.String(),
		Status:     string(r.Status),
		Source:     r.Source,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toSnapshotDTO(s admission.RiskAnalysis) SnapshotDTO {
	return SnapshotDTO{
		PropertyID:        string(s.PropertyID),
		RoomTypeID:        string(s.RoomTypeID),
		From:              s.Range.From.String(),
		To:                s.Range.To.String(),
		TotalRooms:        s.TotalRooms,
		ConfirmedBookings: s.ConfirmedBookings,
		PendingBookings:   s.PendingBookings,
		AvailableRooms:    s.AvailableRooms,
		OverbookingCount:  s.OverbookingCount,
		OverbookingPct:    s.OverbookingPct,
		RiskLevel:         s.RiskLevel.String(),
		Recommendations:   s.Recommendations,
	}
}

func toSweepReportDTO(rep admission.SweepReport) SweepReportDTO {
	out := SweepReportDTO{
		PropertyID:      string(rep.PropertyID),
		HorizonDays:     rep.Horizon,
		GeneratedAt:     rep.GeneratedAt.UTC().Format(time.RFC3339),
		Status:          string(rep.Status),
		RiskAreas:       []RiskAreaDTO{},
		Recommendations: rep.Recommendations,
		NextActions:     rep.NextActions,
	}
	for _, area := range rep.RiskAreas {
		out.RiskAreas = append(out.RiskAreas, RiskAreaDTO{
			Date:     area.Date.String(),
			RoomType: string(area.RoomType),
			Snapshot: toSnapshotDTO(area.Analysis),
		})
	}
	return out
}

func toCompensationDTO(rec compensation.Record) CompensationDTO {
	return CompensationDTO{
		ID:          rec.ID,
		BookingID:   string(rec.BookingID),
		Type:        string(rec.Type),
		Amount:      rec.Amount.String(),
		Currency:    rec.Currency,
		Reason:      rec.Reason,
		ProcessedAt: rec.ProcessedAt.UTC().Format(time.RFC3339),
		Status:      string(rec.Status),
	}
}

func toSweepRunDTO(run sqlite.SweepRun) SweepRunDTO {
	out := SweepRunDTO{
		ID:          run.ID,
		PropertyID:  string(run.PropertyID),
		HorizonDays: run.HorizonDays,
		Status:      run.Status,
		RiskAreas:   run.RiskAreas,
		Error:       run.Error,
		StartedAt:   run.StartedAt.UTC().Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		out.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return out
}
