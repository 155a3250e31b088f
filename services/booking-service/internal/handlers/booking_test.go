package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vetsync/vetsync/services/booking-service/internal/followup"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
	"github.com/vetsync/vetsync/services/booking-service/internal/outbox"
	"github.com/vetsync/vetsync/services/booking-service/internal/storage"
)

// fixedNow is a Monday, far enough from the test dates that lead-time
// pricing stays predictable.
var fixedNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

type stubGenerator struct {
	note     model.SoapNote
	followUp *model.FollowUp
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (model.SoapNote, *model.FollowUp, error) {
	return g.note, g.followUp, nil
}

func (g *stubGenerator) ProviderID() string { return "notes-stub" }

func newTestHandler(t *testing.T, gen *stubGenerator) (*ClinicHandler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	store.Seed([]model.Vet{
		{
			ID:        "vet-1",
			Name:      "Dr. Sarah Chen",
			Specialty: "General Practice",
			Services: []model.ConsultationService{
				{Name: "General Checkup", BasePrice: 50, Type: model.ConsultInPerson},
				{Name: "Telehealth Consult", BasePrice: 35, Type: model.ConsultVirtual},
			},
		},
		{ID: "vet-2", Name: "Dr. Miguel Torres", Specialty: "Cardiology"},
	}, []model.Pet{
		{ID: "pet-1", Name: "Biscuit", Breed: "Beagle", Age: 4, OwnerID: "owner-1"},
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if gen == nil {
		gen = &stubGenerator{note: model.SoapNote{Subjective: "stable"}}
	}
	h := NewClinicHandler(store, outbox.NewLogEmitter(log), gen, followup.NewAutoBooker(store, log), log)
	h.now = func() time.Time { return fixedNow }
	return h, store
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeAppointment(t *testing.T, rec *httptest.ResponseRecorder) model.Appointment {
	t.Helper()
	var a model.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&a); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	return a
}

func bookOne(t *testing.T, h *ClinicHandler, date, timeOfDay string) model.Appointment {
	t.Helper()
	rec := doJSON(t, h.Book, http.MethodPost, "/api/v1/book", map[string]string{
		"pet_id":  "pet-1",
		"vet_id":  "vet-1",
		"service": "General Checkup",
		"date":    date,
		"time":    timeOfDay,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book returned %d: %s", rec.Code, rec.Body.String())
	}
	return decodeAppointment(t, rec)
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	// Wednesday morning, nine days out: no surcharge applies.
	got := bookOne(t, h, "2026-09-09", "10:00 AM")
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", got.Status)
	}
	if got.Price != 50.00 {
		t.Errorf("price = %.2f, want base 50.00", got.Price)
	}
	if got.ID == "" {
		t.Error("appointment id not assigned")
	}
	if got.Type != model.ConsultInPerson {
		t.Errorf("type = %q, want from service", got.Type)
	}
}

func TestBookAppliesSurcharges(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	// Saturday afternoon booked same day: 50 * 1.15 * 1.20 * 1.30 = 89.70.
	h.now = func() time.Time { return time.Date(2026, 9, 5, 8, 0, 0, 0, time.UTC) }
	got := bookOne(t, h, "2026-09-05", "03:00 PM")
	if got.Price != 89.70 {
		t.Errorf("price = %.2f, want 89.70", got.Price)
	}
}

func TestBookConflictOnTakenSlot(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.Book, http.MethodPost, "/api/v1/book", map[string]string{
		"pet_id":  "pet-1",
		"vet_id":  "vet-1",
		"service": "General Checkup",
		"date":    "2026-09-09",
		"time":    "10:00 AM",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", rec.Code)
	}
}

func TestBookRejectsOffCatalogTime(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h.Book, http.MethodPost, "/api/v1/book", map[string]string{
		"pet_id":  "pet-1",
		"vet_id":  "vet-1",
		"service": "General Checkup",
		"date":    "2026-09-09",
		"time":    "01:00 PM",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", rec.Code)
	}
}

func TestBookRejectsUnknownService(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h.Book, http.MethodPost, "/api/v1/book", map[string]string{
		"pet_id":  "pet-1",
		"vet_id":  "vet-1",
		"service": "Dentistry",
		"date":    "2026-09-09",
		"time":    "10:00 AM",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", rec.Code)
	}
}

func TestSlotsMarksTakenTimes(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.Slots, http.MethodGet, "/api/v1/slots?vet_id=vet-1&date=2026-09-09", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Slots []slotItem `json:"slots"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 6 {
		t.Fatalf("slots = %d, want 6", len(resp.Slots))
	}
	for _, s := range resp.Slots {
		want := s.Time == "10:00 AM"
		if s.Taken != want {
			t.Errorf("slot %s taken = %v, want %v", s.Time, s.Taken, want)
		}
	}
}

func TestCancelFreesSlot(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.Cancel, http.MethodPost, "/api/v1/appointments/cancel",
		map[string]string{"appointment_id": appt.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel code = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeAppointment(t, rec); got.Status != model.StatusCancelled {
		t.Errorf("status = %q, want Cancelled", got.Status)
	}

	// The slot opens back up.
	bookOne(t, h, "2026-09-09", "10:00 AM")
}

func TestCancelIsIdempotent(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h.Cancel, http.MethodPost, "/api/v1/appointments/cancel",
			map[string]string{"appointment_id": appt.ID})
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel #%d code = %d", i+1, rec.Code)
		}
	}
}

func TestConfirmMovesPendingToUpcoming(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.Confirm, http.MethodPost, "/api/v1/appointments/confirm",
		map[string]string{"appointment_id": appt.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeAppointment(t, rec); got.Status != model.StatusUpcoming {
		t.Errorf("status = %q, want Upcoming", got.Status)
	}
}

func TestRescheduleTooCloseRejected(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	// 10:00 AM next day is 22 hours from fixedNow.
	appt := bookOne(t, h, "2026-09-01", "10:00 AM")

	rec := doJSON(t, h.Reschedule, http.MethodPost, "/api/v1/appointments/reschedule",
		map[string]string{"appointment_id": appt.ID, "date": "2026-09-09", "time": "11:00 AM"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", rec.Code)
	}
}

func TestRescheduleMovesAppointment(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.Reschedule, http.MethodPost, "/api/v1/appointments/reschedule",
		map[string]string{"appointment_id": appt.ID, "date": "2026-09-10", "time": "11:00 AM"})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeAppointment(t, rec)
	if got.Date != "2026-09-10" || got.Time != "11:00 AM" {
		t.Errorf("moved to %s %s", got.Date, got.Time)
	}

	// Old slot frees up, new slot is held.
	bookOne(t, h, "2026-09-09", "10:00 AM")
	rec = doJSON(t, h.Book, http.MethodPost, "/api/v1/book", map[string]string{
		"pet_id":  "pet-1",
		"vet_id":  "vet-1",
		"service": "General Checkup",
		"date":    "2026-09-10",
		"time":    "11:00 AM",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("new slot not held, code = %d", rec.Code)
	}
}

func TestRescheduleKeepsPriceForRetiredService(t *testing.T) {
	h, store := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	// The vet no longer offers the booked service; the move keeps the
	// agreed price instead of repricing.
	appt.Service = "Retired Package"
	if _, err := store.UpdateAppointment(context.Background(), appt); err != nil {
		t.Fatalf("update service: %v", err)
	}

	rec := doJSON(t, h.Reschedule, http.MethodPost, "/api/v1/appointments/reschedule",
		map[string]string{"appointment_id": appt.ID, "date": "2026-09-05", "time": "03:00 PM"})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeAppointment(t, rec)
	if got.Price != appt.Price {
		t.Errorf("price = %.2f, want original %.2f", got.Price, appt.Price)
	}
}

func TestRescheduleOntoTakenSlotConflicts(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")
	bookOne(t, h, "2026-09-09", "11:00 AM")

	rec := doJSON(t, h.Reschedule, http.MethodPost, "/api/v1/appointments/reschedule",
		map[string]string{"appointment_id": appt.ID, "date": "2026-09-09", "time": "11:00 AM"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", rec.Code)
	}
}

func TestAttachNotesCompletesAppointment(t *testing.T) {
	gen := &stubGenerator{note: model.SoapNote{
		Subjective: "Owner reports limping",
		Assessment: "Mild sprain",
		Plan:       "Rest for two weeks",
	}}
	h, _ := newTestHandler(t, gen)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.AttachNotes, http.MethodPost, "/api/v1/appointments/notes", map[string]any{
		"appointment_id": appt.ID,
		"transcript":     "visit transcript",
		"prescriptions":  []model.Prescription{{Medication: "Carprofen", Dosage: "25mg", Frequency: "daily"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp attachNotesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Appointment.Status != model.StatusCompleted {
		t.Errorf("status = %q, want Completed", resp.Appointment.Status)
	}
	if resp.Appointment.Notes == nil || resp.Appointment.Notes.Assessment != "Mild sprain" {
		t.Errorf("notes = %+v", resp.Appointment.Notes)
	}
	if len(resp.Appointment.Prescriptions) != 1 {
		t.Errorf("prescriptions = %d, want 1", len(resp.Appointment.Prescriptions))
	}
	if resp.FollowUp != nil {
		t.Errorf("unexpected follow-up %+v", resp.FollowUp)
	}
}

func TestAttachNotesBooksFollowUp(t *testing.T) {
	gen := &stubGenerator{
		note:     model.SoapNote{Plan: "Recheck in two weeks"},
		followUp: &model.FollowUp{Date: "2026-09-23", Time: "09:00 AM", Reason: "Recheck"},
	}
	h, _ := newTestHandler(t, gen)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")

	rec := doJSON(t, h.AttachNotes, http.MethodPost, "/api/v1/appointments/notes", map[string]string{
		"appointment_id": appt.ID,
		"transcript":     "visit transcript",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp attachNotesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.FollowUp == nil {
		t.Fatal("follow-up not booked")
	}
	if resp.FollowUp.Status != model.StatusPending {
		t.Errorf("follow-up status = %q, want Pending", resp.FollowUp.Status)
	}
	if resp.FollowUp.Date != "2026-09-23" || resp.FollowUp.Time != "09:00 AM" {
		t.Errorf("follow-up at %s %s", resp.FollowUp.Date, resp.FollowUp.Time)
	}
}

func TestAttachNotesOnCancelledRejected(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	appt := bookOne(t, h, "2026-09-09", "10:00 AM")
	doJSON(t, h.Cancel, http.MethodPost, "/api/v1/appointments/cancel",
		map[string]string{"appointment_id": appt.ID})

	rec := doJSON(t, h.AttachNotes, http.MethodPost, "/api/v1/appointments/notes", map[string]string{
		"appointment_id": appt.ID,
		"transcript":     "visit transcript",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", rec.Code)
	}
}

func TestListActiveAppointmentsSortChronologically(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	bookOne(t, h, "2026-09-10", "09:00 AM")
	bookOne(t, h, "2026-09-09", "03:00 PM")
	bookOne(t, h, "2026-09-09", "09:00 AM")

	rec := doJSON(t, h.List, http.MethodGet, "/api/v1/appointments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var appts []model.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&appts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(appts) != 3 {
		t.Fatalf("len = %d, want 3", len(appts))
	}
	wantOrder := []string{"2026-09-09 09:00 AM", "2026-09-09 03:00 PM", "2026-09-10 09:00 AM"}
	for i, a := range appts {
		if got := a.Date + " " + a.Time; got != wantOrder[i] {
			t.Errorf("appts[%d] = %s, want %s", i, got, wantOrder[i])
		}
	}
}

func TestListGroupsByStatus(t *testing.T) {
	h, store := newTestHandler(t, nil)

	setStatus := func(a model.Appointment, s model.Status) {
		t.Helper()
		a.Status = s
		if _, err := store.UpdateAppointment(context.Background(), a); err != nil {
			t.Fatalf("set status %s: %v", s, err)
		}
	}

	// History sorts most-recent-first, active work soonest-first.
	setStatus(bookOne(t, h, "2026-09-01", "09:00 AM"), model.StatusCompleted)
	setStatus(bookOne(t, h, "2026-09-05", "09:00 AM"), model.StatusCompleted)
	setStatus(bookOne(t, h, "2026-09-03", "09:00 AM"), model.StatusCompleted)
	setStatus(bookOne(t, h, "2026-09-02", "10:00 AM"), model.StatusCancelled)
	setStatus(bookOne(t, h, "2026-09-04", "10:00 AM"), model.StatusCancelled)
	setStatus(bookOne(t, h, "2026-09-12", "09:00 AM"), model.StatusUpcoming)
	setStatus(bookOne(t, h, "2026-09-11", "09:00 AM"), model.StatusUpcoming)
	bookOne(t, h, "2026-09-10", "11:00 AM") // stays Pending

	rec := doJSON(t, h.List, http.MethodGet, "/api/v1/appointments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var appts []model.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&appts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []struct {
		status model.Status
		date   string
	}{
		{model.StatusUpcoming, "2026-09-11"},
		{model.StatusUpcoming, "2026-09-12"},
		{model.StatusPending, "2026-09-10"},
		{model.StatusCompleted, "2026-09-05"},
		{model.StatusCompleted, "2026-09-03"},
		{model.StatusCompleted, "2026-09-01"},
		{model.StatusCancelled, "2026-09-04"},
		{model.StatusCancelled, "2026-09-02"},
	}
	if len(appts) != len(want) {
		t.Fatalf("len = %d, want %d", len(appts), len(want))
	}
	for i, a := range appts {
		if a.Status != want[i].status || a.Date != want[i].date {
			t.Errorf("appts[%d] = %s %s, want %s %s", i, a.Status, a.Date, want[i].status, want[i].date)
		}
	}
}

func TestUpdateAvailabilityNormalizesSlots(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h.UpdateAvailability, http.MethodPut, "/api/v1/vets/availability", map[string]any{
		"vet_id": "vet-1",
		"availability": model.WeeklyAvailability{
			"Monday": {
				{Start: "14:00", End: "17:00"},
				{Start: "09:00", End: "12:00"},
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var vet model.Vet
	if err := json.NewDecoder(rec.Body).Decode(&vet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	mon := vet.Availability["Monday"]
	if len(mon) != 2 || mon[0].Start != "09:00" || mon[1].Start != "14:00" {
		t.Errorf("monday slots = %+v, want sorted by start", mon)
	}
}

func TestUpdateAvailabilityRejectsBadWindow(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h.UpdateAvailability, http.MethodPut, "/api/v1/vets/availability", map[string]any{
		"vet_id": "vet-1",
		"availability": model.WeeklyAvailability{
			"Monday": {{Start: "12:00", End: "09:00"}},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422", rec.Code)
	}
}

func TestBlockedEventLifecycle(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h.BlockedEvents, http.MethodPost, "/api/v1/vets/blocked", map[string]string{
		"vet_id": "vet-1",
		"date":   "2026-09-09",
		"title":  "Conference",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add code = %d: %s", rec.Code, rec.Body.String())
	}
	var vet model.Vet
	if err := json.NewDecoder(rec.Body).Decode(&vet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vet.Schedule) != 1 || vet.Schedule[0].Type != model.EventBlocked {
		t.Fatalf("schedule = %+v", vet.Schedule)
	}

	rec = doJSON(t, h.BlockedEvents, http.MethodDelete,
		"/api/v1/vets/blocked?vet_id=vet-1&event_id="+vet.Schedule[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove code = %d: %s", rec.Code, rec.Body.String())
	}
	vet = model.Vet{}
	if err := json.NewDecoder(rec.Body).Decode(&vet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vet.Schedule) != 0 {
		t.Errorf("schedule not cleared: %+v", vet.Schedule)
	}
}

func TestMethodGuards(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	cases := []struct {
		name    string
		handler http.HandlerFunc
		method  string
	}{
		{"book", h.Book, http.MethodGet},
		{"slots", h.Slots, http.MethodPost},
		{"list", h.List, http.MethodPost},
		{"cancel", h.Cancel, http.MethodGet},
		{"availability", h.UpdateAvailability, http.MethodPost},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/", nil)
		rec := httptest.NewRecorder()
		tc.handler(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: code = %d, want 405", tc.name, rec.Code)
		}
	}
}
