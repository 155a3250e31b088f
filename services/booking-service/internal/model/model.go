package model

// Status is the appointment lifecycle state. Pending and Upcoming block
// their slot; Cancelled is terminal and frees it.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusUpcoming  Status = "Upcoming"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// ConsultationType is the consultation modality.
type ConsultationType string

const (
	ConsultVirtual  ConsultationType = "Virtual"
	ConsultInPerson ConsultationType = "In-Person"
	ConsultCall     ConsultationType = "Call"
	ConsultMobile   ConsultationType = "Mobile Visit"
)

// TimeSlot is one contiguous open interval within a day, both bounds
// zero-padded 24-hour "HH:MM" strings.
type TimeSlot struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// WeeklyAvailability maps a weekday name (Sunday..Saturday) to that day's
// open intervals, kept sorted ascending by start time. A missing or empty
// day means unavailable.
type WeeklyAvailability map[string][]TimeSlot

// CalendarEventType distinguishes materialized appointments from one-off
// blocked periods on a vet's schedule.
type CalendarEventType string

const (
	EventAppointment CalendarEventType = "appointment"
	EventBlocked     CalendarEventType = "blocked"
)

type CalendarEvent struct {
	ID    string            `json:"id"`
	Date  string            `json:"date"` // YYYY-MM-DD
	Title string            `json:"title"`
	Type  CalendarEventType `json:"type"`
}

// ConsultationService is a priced offering attached to a vet; the unit the
// pricing engine operates on.
type ConsultationService struct {
	Name      string           `json:"name"`
	BasePrice float64          `json:"base_price"`
	Type      ConsultationType `json:"type"`
}

type Vet struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Specialty    string                `json:"specialty"`
	ClinicID     string                `json:"clinic_id,omitempty"`
	ClinicName   string                `json:"clinic_name,omitempty"`
	Location     string                `json:"location,omitempty"`
	Services     []ConsultationService `json:"services,omitempty"`
	Schedule     []CalendarEvent       `json:"schedule,omitempty"`
	Availability WeeklyAvailability    `json:"weekly_availability,omitempty"`
}

type Pet struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Breed   string `json:"breed"`
	Age     int    `json:"age"`
	OwnerID string `json:"owner_id,omitempty"`
}

// SoapNote is the structured consultation note produced by the external
// notes generator.
type SoapNote struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

type Prescription struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FollowUp is a suggested future appointment emitted by the notes
// generator. It is ephemeral: either discarded or converted into a
// Pending appointment by the auto-booker.
type FollowUp struct {
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM AM/PM
	Reason          string `json:"reason"`
	ReferredVetName string `json:"referred_vet_name,omitempty"`
}

// Appointment carries denormalized pet/vet copies the way the record
// store hands them out; identity comparisons go through Pet.ID / Vet.ID.
type Appointment struct {
	ID            string           `json:"id"`
	Pet           Pet              `json:"pet"`
	Vet           Vet              `json:"vet"`
	Type          ConsultationType `json:"type"`
	Date          string           `json:"date"` // YYYY-MM-DD
	Time          string           `json:"time"` // HH:MM AM/PM
	Status        Status           `json:"status"`
	Service       string           `json:"service,omitempty"`
	Price         float64          `json:"price,omitempty"`
	Notes         *SoapNote        `json:"notes,omitempty"`
	UserNotes     string           `json:"user_notes,omitempty"`
	Attachments   []Attachment     `json:"attachments,omitempty"`
	Prescriptions []Prescription   `json:"prescriptions,omitempty"`
}

// Blocks reports whether this appointment occupies its slot for new
// bookings. Cancelled appointments never block.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}

// Referral records a hand-off of a patient to another vet, created when a
// follow-up suggestion names a different practitioner.
type Referral struct {
	ID        string `json:"id"`
	PetID     string `json:"pet_id"`
	FromVetID string `json:"from_vet_id"`
	ToVetID   string `json:"to_vet_id"`
	Reason    string `json:"reason"`
	Date      string `json:"date"` // YYYY-MM-DD
}
