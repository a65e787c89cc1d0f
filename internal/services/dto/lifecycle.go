package dto

import (
	"time"

	"blooddonation_backend/internal/models"
)

type CreateRequestRequest struct {
	PatientName string           `json:"patient_name" validate:"omitempty,max=120"`
	BloodType   models.BloodType `json:"blood_type" validate:"required,is-blood-type"`
	UnitsNeeded int              `json:"units_needed" validate:"required,min=1,max=50"`
	Urgency     models.Urgency   `json:"urgency" validate:"omitempty,is-urgency"`
	City        string           `json:"city" validate:"required,max=100"`
	HospitalID  *uint            `json:"hospital_id,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

type DonationStatusRequest struct {
	Status models.DonationStatus `json:"status" validate:"required,is-donation-status"`
}

type SubmitVoluntaryRequest struct {
	BloodType     models.BloodType `json:"blood_type" validate:"omitempty,is-blood-type"`
	City          string           `json:"city" validate:"omitempty,max=100"`
	PreferredDate *time.Time       `json:"preferred_date,omitempty"`
}

type AssignHospitalRequest struct {
	HospitalUserID uint `json:"hospital_user_id" validate:"required"`
}

type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}
