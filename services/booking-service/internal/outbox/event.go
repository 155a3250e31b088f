// Package outbox stages clinic domain events in Postgres alongside the
// records that produced them, then relays them to Kafka. The topic name
// equals the event type.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

const (
	EventAppointmentBooked      = "booking.appointment.booked.v1"
	EventAppointmentConfirmed   = "booking.appointment.confirmed.v1"
	EventAppointmentCancelled   = "booking.appointment.cancelled.v1"
	EventAppointmentRescheduled = "booking.appointment.rescheduled.v1"
	EventAppointmentCompleted   = "booking.appointment.completed.v1"
	EventFollowUpBooked         = "booking.followup.booked.v1"
	EventReminderRequested      = "booking.reminder.requested.v1"
)

// Event is the envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the shared body of the appointment lifecycle
// events. The reminder service reads OwnerID off it to address the
// notification.
type AppointmentPayload struct {
	AppointmentID string  `json:"appointment_id"`
	PetID         string  `json:"pet_id"`
	PetName       string  `json:"pet_name"`
	OwnerID       string  `json:"owner_id,omitempty"`
	VetID         string  `json:"vet_id"`
	VetName       string  `json:"vet_name"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Status        string  `json:"status"`
	Service       string  `json:"service,omitempty"`
	Price         float64 `json:"price,omitempty"`
}

// ReminderPayload schedules one reminder send. SendAt is UTC.
type ReminderPayload struct {
	AppointmentID string    `json:"appointment_id"`
	OwnerID       string    `json:"owner_id,omitempty"`
	PetName       string    `json:"pet_name"`
	VetName       string    `json:"vet_name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Window        string    `json:"window"` // "1w", "1d", "1h"
	SendAt        time.Time `json:"send_at"`
}

func AppointmentEvent(eventType string, a model.Appointment) (Event, error) {
	raw, err := json.Marshal(AppointmentPayload{
		AppointmentID: a.ID,
		PetID:         a.Pet.ID,
		PetName:       a.Pet.Name,
		OwnerID:       a.Pet.OwnerID,
		VetID:         a.Vet.ID,
		VetName:       a.Vet.Name,
		Date:          a.Date,
		Time:          a.Time,
		Status:        string(a.Status),
		Service:       a.Service,
		Price:         a.Price,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}

func ReminderEvent(a model.Appointment, window string, sendAt time.Time) (Event, error) {
	raw, err := json.Marshal(ReminderPayload{
		AppointmentID: a.ID,
		OwnerID:       a.Pet.OwnerID,
		PetName:       a.Pet.Name,
		VetName:       a.Vet.Name,
		Date:          a.Date,
		Time:          a.Time,
		Window:        window,
		SendAt:        sendAt.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     EventReminderRequested,
		Payload:       raw,
	}, nil
}
