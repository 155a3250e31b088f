package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vetsync/vetsync/libs/clock"
	"github.com/vetsync/vetsync/services/booking-service/internal/followup"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
	"github.com/vetsync/vetsync/services/booking-service/internal/notes"
	"github.com/vetsync/vetsync/services/booking-service/internal/outbox"
	"github.com/vetsync/vetsync/services/booking-service/internal/pricing"
	"github.com/vetsync/vetsync/services/booking-service/internal/schedule"
	"github.com/vetsync/vetsync/services/booking-service/internal/slots"
	"github.com/vetsync/vetsync/services/booking-service/internal/storage"
)

// reminderOffsets are how far ahead of the appointment each reminder
// fires. Offsets already in the past at booking time are skipped.
var reminderOffsets = []struct {
	Window string
	Before time.Duration
}{
	{"1w", 7 * 24 * time.Hour},
	{"1d", 24 * time.Hour},
	{"1h", time.Hour},
}

// rescheduleMinLeadHours is the cutoff after which an appointment can no
// longer be moved by the client.
const rescheduleMinLeadHours = 24

type ClinicHandler struct {
	store  storage.Store
	events outbox.Emitter
	notes  notes.Generator
	booker *followup.AutoBooker
	logger *slog.Logger
	now    func() time.Time
}

func NewClinicHandler(store storage.Store, events outbox.Emitter, gen notes.Generator, booker *followup.AutoBooker, logger *slog.Logger) *ClinicHandler {
	return &ClinicHandler{
		store:  store,
		events: events,
		notes:  gen,
		booker: booker,
		logger: logger,
		now:    time.Now,
	}
}

func (h *ClinicHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/vets", h.Vets)
	mux.HandleFunc("/api/v1/slots", h.Slots)
	mux.HandleFunc("/api/v1/schedule", h.Schedule)
	mux.HandleFunc("/api/v1/book", h.Book)
	mux.HandleFunc("/api/v1/appointments", h.List)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", h.Reschedule)
	mux.HandleFunc("/api/v1/appointments/confirm", h.Confirm)
	mux.HandleFunc("/api/v1/appointments/notes", h.AttachNotes)
	mux.HandleFunc("/api/v1/vets/availability", h.UpdateAvailability)
	mux.HandleFunc("/api/v1/vets/blocked", h.BlockedEvents)
}

func (h *ClinicHandler) Vets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vets, err := h.store.ListVets(r.Context())
	if err != nil {
		http.Error(w, "failed to load vets", http.StatusInternalServerError)
		return
	}
	sort.Slice(vets, func(i, j int) bool { return vets[i].Name < vets[j].Name })
	writeJSON(w, http.StatusOK, vets)
}

type slotItem struct {
	Time  string `json:"time"`
	Taken bool   `json:"taken"`
}

// Slots is the booking picker's view of a vet's day: the fixed slot
// catalog with per-slot occupancy.
func (h *ClinicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vetID := strings.TrimSpace(r.URL.Query().Get("vet_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if vetID == "" || date == "" {
		http.Error(w, "vet_id and date required", http.StatusBadRequest)
		return
	}
	if _, err := clock.ParseDate(date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	appts, err := h.store.ListAppointments(r.Context())
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}
	items := make([]slotItem, 0, len(slots.Catalog))
	for _, t := range slots.Catalog {
		items = append(items, slotItem{
			Time:  t,
			Taken: slots.IsTaken(appts, vetID, date, t),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vet_id": vetID,
		"date":   date,
		"slots":  items,
	})
}

// Schedule is the calendar view of a vet's day: recurring weekly windows
// plus that date's appointments and blocked periods. Separate from Slots
// on purpose; the two views answer different questions.
func (h *ClinicHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vetID := strings.TrimSpace(r.URL.Query().Get("vet_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if vetID == "" || date == "" {
		http.Error(w, "vet_id and date required", http.StatusBadRequest)
		return
	}

	vet, err := h.store.GetVet(r.Context(), vetID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "vet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load vet", http.StatusInternalServerError)
		return
	}
	view, err := schedule.Day(vet, date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type bookRequest struct {
	PetID     string `json:"pet_id"`
	VetID     string `json:"vet_id"`
	Service   string `json:"service"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	UserNotes string `json:"user_notes"`
}

func (h *ClinicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PetID = strings.TrimSpace(req.PetID)
	req.VetID = strings.TrimSpace(req.VetID)
	req.Service = strings.TrimSpace(req.Service)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if req.PetID == "" || req.VetID == "" || req.Service == "" || req.Date == "" || req.Time == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}
	if _, err := clock.ParseDate(req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	if !inCatalog(req.Time) {
		http.Error(w, "time is not an offered slot", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	pet, err := h.store.GetPet(ctx, req.PetID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load pet", http.StatusInternalServerError)
		return
	}
	vet, err := h.store.GetVet(ctx, req.VetID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "vet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load vet", http.StatusInternalServerError)
		return
	}

	svc, ok := findService(vet, req.Service)
	if !ok {
		http.Error(w, "service not offered by this vet", http.StatusUnprocessableEntity)
		return
	}

	draft := model.Appointment{
		Pet:       pet,
		Vet:       vet,
		Type:      svc.Type,
		Date:      req.Date,
		Time:      req.Time,
		Status:    model.StatusPending,
		Service:   svc.Name,
		Price:     pricing.Quote(svc.BasePrice, req.Date, req.Time, h.now()),
		UserNotes: strings.TrimSpace(req.UserNotes),
	}
	booked, err := h.store.ReserveSlot(ctx, draft)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	h.emitAppointment(ctx, outbox.EventAppointmentBooked, booked)
	h.enqueueReminders(ctx, booked)

	writeJSON(w, http.StatusCreated, booked)
}

func (h *ClinicHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appts, err := h.store.ListAppointments(r.Context())
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	if petID := strings.TrimSpace(r.URL.Query().Get("pet_id")); petID != "" {
		appts = filterAppointments(appts, func(a model.Appointment) bool { return a.Pet.ID == petID })
	}
	if vetID := strings.TrimSpace(r.URL.Query().Get("vet_id")); vetID != "" {
		appts = filterAppointments(appts, func(a model.Appointment) bool { return a.Vet.ID == vetID })
	}

	sortForListing(appts)
	if appts == nil {
		appts = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

type appointmentIDRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *ClinicHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appt, ok := h.loadByID(w, r)
	if !ok {
		return
	}
	if appt.Status == model.StatusCancelled {
		writeJSON(w, http.StatusOK, appt)
		return
	}
	if appt.Status == model.StatusCompleted {
		http.Error(w, "completed appointment cannot be cancelled", http.StatusConflict)
		return
	}

	appt.Status = model.StatusCancelled
	updated, err := h.store.UpdateAppointment(r.Context(), appt)
	if err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}
	h.emitAppointment(r.Context(), outbox.EventAppointmentCancelled, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ClinicHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appt, ok := h.loadByID(w, r)
	if !ok {
		return
	}
	if appt.Status == model.StatusUpcoming {
		writeJSON(w, http.StatusOK, appt)
		return
	}
	if appt.Status != model.StatusPending {
		http.Error(w, "only pending appointments can be confirmed", http.StatusConflict)
		return
	}

	appt.Status = model.StatusUpcoming
	updated, err := h.store.UpdateAppointment(r.Context(), appt)
	if err != nil {
		http.Error(w, "failed to confirm appointment", http.StatusInternalServerError)
		return
	}
	h.emitAppointment(r.Context(), outbox.EventAppointmentConfirmed, updated)
	writeJSON(w, http.StatusOK, updated)
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

func (h *ClinicHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if req.AppointmentID == "" || req.Date == "" || req.Time == "" {
		http.Error(w, "appointment_id, date and time required", http.StatusBadRequest)
		return
	}
	if _, err := clock.ParseDate(req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	if !inCatalog(req.Time) {
		http.Error(w, "time is not an offered slot", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	appt, err := h.store.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status != model.StatusPending && appt.Status != model.StatusUpcoming {
		http.Error(w, "appointment cannot be rescheduled", http.StatusConflict)
		return
	}

	hoursLeft, err := clock.HoursUntil(appt.Date, appt.Time, h.now())
	if err != nil || hoursLeft < rescheduleMinLeadHours {
		http.Error(w, "appointments can only be rescheduled at least 24 hours in advance", http.StatusUnprocessableEntity)
		return
	}

	appt.Date = req.Date
	appt.Time = req.Time
	if svc, ok := findService(appt.Vet, appt.Service); ok {
		appt.Price = pricing.Quote(svc.BasePrice, req.Date, req.Time, h.now())
	} else {
		// The vet snapshot no longer lists the service; keep the
		// original price rather than guessing a base.
		h.logger.Warn("service missing from vet snapshot, keeping original price",
			"appointment_id", appt.ID, "vet_id", appt.Vet.ID, "service", appt.Service)
	}
	updated, err := h.store.UpdateAppointment(ctx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	h.emitAppointment(ctx, outbox.EventAppointmentRescheduled, updated)
	h.enqueueReminders(ctx, updated)
	writeJSON(w, http.StatusOK, updated)
}

type attachNotesRequest struct {
	AppointmentID string               `json:"appointment_id"`
	Transcript    string               `json:"transcript"`
	Attachments   []model.Attachment   `json:"attachments"`
	Prescriptions []model.Prescription `json:"prescriptions"`
}

type attachNotesResponse struct {
	Appointment model.Appointment  `json:"appointment"`
	FollowUp    *model.Appointment `json:"follow_up,omitempty"`
}

// AttachNotes generates the structured note from the visit transcript,
// completes the appointment, and hands any follow-up suggestion to the
// auto-booker. A fully booked follow-up day is reported but never fails
// the note itself.
func (h *ClinicHandler) AttachNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req attachNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Transcript = strings.TrimSpace(req.Transcript)
	if req.AppointmentID == "" || req.Transcript == "" {
		http.Error(w, "appointment_id and transcript required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	appt, err := h.store.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status == model.StatusCancelled {
		http.Error(w, "cancelled appointment cannot be completed", http.StatusConflict)
		return
	}

	note, suggestion, err := h.notes.Generate(ctx, req.Transcript)
	if err != nil {
		h.logger.Error("note generation failed", "appointment_id", appt.ID, "provider", h.notes.ProviderID(), "err", err)
		http.Error(w, "note generation failed", http.StatusBadGateway)
		return
	}

	appt.Notes = &note
	appt.Attachments = append(appt.Attachments, req.Attachments...)
	appt.Prescriptions = append(appt.Prescriptions, req.Prescriptions...)
	appt.Status = model.StatusCompleted
	updated, err := h.store.UpdateAppointment(ctx, appt)
	if err != nil {
		http.Error(w, "failed to save notes", http.StatusInternalServerError)
		return
	}
	h.emitAppointment(ctx, outbox.EventAppointmentCompleted, updated)

	resp := attachNotesResponse{Appointment: updated}
	if suggestion != nil {
		booked, err := h.booker.Book(ctx, updated, *suggestion)
		switch {
		case errors.Is(err, followup.ErrNoSlotAvailable):
			h.logger.Warn("follow-up skipped, day fully booked",
				"appointment_id", updated.ID, "date", suggestion.Date)
		case err != nil:
			h.logger.Error("follow-up booking failed", "appointment_id", updated.ID, "err", err)
		default:
			resp.FollowUp = &booked
			h.emitAppointment(ctx, outbox.EventFollowUpBooked, booked)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type availabilityRequest struct {
	VetID        string                   `json:"vet_id"`
	Availability model.WeeklyAvailability `json:"availability"`
}

func (h *ClinicHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.VetID = strings.TrimSpace(req.VetID)
	if req.VetID == "" {
		http.Error(w, "vet_id required", http.StatusBadRequest)
		return
	}
	if err := validateAvailability(req.Availability); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	normalized := model.WeeklyAvailability{}
	for day, daySlots := range req.Availability {
		for _, s := range daySlots {
			normalized = schedule.AddSlot(normalized, day, s)
		}
	}

	vet, err := h.store.UpdateVetAvailability(r.Context(), req.VetID, normalized)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "vet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, vet)
}

type blockedEventRequest struct {
	VetID string `json:"vet_id"`
	Date  string `json:"date"`
	Title string `json:"title"`
}

// BlockedEvents adds (POST) or removes (DELETE) one-off blocked periods
// on a vet's calendar.
func (h *ClinicHandler) BlockedEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addBlockedEvent(w, r)
	case http.MethodDelete:
		h.removeBlockedEvent(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ClinicHandler) addBlockedEvent(w http.ResponseWriter, r *http.Request) {
	var req blockedEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.VetID = strings.TrimSpace(req.VetID)
	req.Date = strings.TrimSpace(req.Date)
	req.Title = strings.TrimSpace(req.Title)
	if req.VetID == "" || req.Date == "" || req.Title == "" {
		http.Error(w, "vet_id, date and title required", http.StatusBadRequest)
		return
	}
	if _, err := clock.ParseDate(req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	vet, err := h.store.AddCalendarEvent(r.Context(), req.VetID, model.CalendarEvent{
		ID:    uuid.NewString(),
		Date:  req.Date,
		Title: req.Title,
		Type:  model.EventBlocked,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "vet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to add blocked period", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, vet)
}

func (h *ClinicHandler) removeBlockedEvent(w http.ResponseWriter, r *http.Request) {
	vetID := strings.TrimSpace(r.URL.Query().Get("vet_id"))
	eventID := strings.TrimSpace(r.URL.Query().Get("event_id"))
	if vetID == "" || eventID == "" {
		http.Error(w, "vet_id and event_id required", http.StatusBadRequest)
		return
	}
	vet, err := h.store.RemoveCalendarEvent(r.Context(), vetID, eventID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "vet not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to remove blocked period", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, vet)
}

func (h *ClinicHandler) loadByID(w http.ResponseWriter, r *http.Request) (model.Appointment, bool) {
	var req appointmentIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return model.Appointment{}, false
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return model.Appointment{}, false
	}
	appt, err := h.store.GetAppointment(r.Context(), req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return model.Appointment{}, false
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return model.Appointment{}, false
	}
	return appt, true
}

func (h *ClinicHandler) emitAppointment(ctx context.Context, eventType string, appt model.Appointment) {
	evt, err := outbox.AppointmentEvent(eventType, appt)
	if err != nil {
		h.logger.Error("build event payload", "event_type", eventType, "err", err)
		return
	}
	if err := h.events.Emit(ctx, evt); err != nil {
		h.logger.Error("emit event", "event_type", eventType, "appointment_id", appt.ID, "err", err)
	}
}

func (h *ClinicHandler) enqueueReminders(ctx context.Context, appt model.Appointment) {
	start, err := clock.Instant(appt.Date, appt.Time)
	if err != nil {
		h.logger.Warn("reminders skipped, unparseable start", "appointment_id", appt.ID, "err", err)
		return
	}
	now := h.now().UTC()
	for _, off := range reminderOffsets {
		sendAt := start.Add(-off.Before)
		if sendAt.Before(now) {
			continue
		}
		evt, err := outbox.ReminderEvent(appt, off.Window, sendAt)
		if err != nil {
			h.logger.Error("build reminder payload", "appointment_id", appt.ID, "err", err)
			continue
		}
		if err := h.events.Emit(ctx, evt); err != nil {
			h.logger.Error("emit reminder", "appointment_id", appt.ID, "window", off.Window, "err", err)
		}
	}
}

func inCatalog(timeOfDay string) bool {
	for _, t := range slots.Catalog {
		if t == timeOfDay {
			return true
		}
	}
	return false
}

func findService(vet model.Vet, name string) (model.ConsultationService, bool) {
	for _, svc := range vet.Services {
		if strings.EqualFold(svc.Name, name) {
			return svc, true
		}
	}
	return model.ConsultationService{}, false
}

func filterAppointments(in []model.Appointment, keep func(model.Appointment) bool) []model.Appointment {
	out := in[:0:0]
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// statusRank orders the listing's sections: active work first, history
// after.
func statusRank(s model.Status) int {
	switch s {
	case model.StatusUpcoming:
		return 0
	case model.StatusPending:
		return 1
	case model.StatusCompleted:
		return 2
	default:
		return 3
	}
}

// sortForListing groups appointments by status and orders each group the
// way the clinic reads them: Upcoming and Pending soonest-first by
// date+time, Completed and Cancelled most-recent-first by date. Records
// with an unparseable date or time sink to the end of their group rather
// than failing the listing.
func sortForListing(appts []model.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		ri, rj := statusRank(appts[i].Status), statusRank(appts[j].Status)
		if ri != rj {
			return ri < rj
		}
		if ri <= 1 {
			ti, erri := clock.Instant(appts[i].Date, appts[i].Time)
			tj, errj := clock.Instant(appts[j].Date, appts[j].Time)
			if erri != nil {
				return false
			}
			if errj != nil {
				return true
			}
			return ti.Before(tj)
		}
		di, erri := clock.ParseDate(appts[i].Date)
		dj, errj := clock.ParseDate(appts[j].Date)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return di.After(dj)
	})
}

var weekdayNames = map[string]bool{
	"Sunday": true, "Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true,
}

func validateAvailability(av model.WeeklyAvailability) error {
	for day, daySlots := range av {
		if !weekdayNames[day] {
			return errors.New("unknown weekday: " + day)
		}
		for _, s := range daySlots {
			start, err := time.Parse("15:04", s.Start)
			if err != nil {
				return errors.New("invalid start_time: " + s.Start)
			}
			end, err := time.Parse("15:04", s.End)
			if err != nil {
				return errors.New("invalid end_time: " + s.End)
			}
			if !end.After(start) {
				return errors.New("end_time must be after start_time")
			}
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
