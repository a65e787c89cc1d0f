package models

import "time"

type BloodRequest struct {
	BaseModel
	RequesterID   uint          `gorm:"not null;index" json:"requester_id"`
	RequesterRole UserRole      `gorm:"type:varchar(20);not null" json:"requester_role"`
	HospitalID    *uint         `gorm:"index" json:"hospital_id,omitempty"`
	PatientName   string        `gorm:"size:120" json:"patient_name"`
	BloodType     BloodType     `gorm:"type:varchar(3);not null" json:"blood_type"`
	UnitsNeeded   int           `gorm:"not null;default:1" json:"units_needed"`
	Urgency       Urgency       `gorm:"type:varchar(20);default:'normal'" json:"urgency"`
	City          string        `gorm:"size:100" json:"city"`
	Status        RequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	AdminNotes    string        `gorm:"type:text" json:"admin_notes,omitempty"`

	Hospital  *Hospital  `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	Donations []Donation `gorm:"foreignKey:RequestID" json:"-"`
}

func (BloodRequest) TableName() string {
	return "blood_requests"
}

type Donation struct {
	BaseModel
	DonorID     uint           `gorm:"not null;index" json:"donor_id"` // donor_profiles.id
	RequestID   uint           `gorm:"not null;index" json:"request_id"`
	Status      DonationStatus `gorm:"type:varchar(20);default:'accepted';index" json:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`

	Donor   *DonorProfile `gorm:"foreignKey:DonorID" json:"-"`
	Request *BloodRequest `gorm:"foreignKey:RequestID" json:"-"`
}

type VoluntaryDonation struct {
	BaseModel
	DonorUserID    uint            `gorm:"not null;index" json:"donor_user_id"`
	HospitalUserID *uint           `gorm:"index" json:"hospital_user_id,omitempty"`
	BloodType      BloodType       `gorm:"type:varchar(3)" json:"blood_type"`
	City           string          `gorm:"size:100" json:"city"`
	PreferredDate  *time.Time      `json:"preferred_date,omitempty"`
	ScheduledAt    *time.Time      `json:"scheduled_at,omitempty"`
	Status         VoluntaryStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	AdminNotes     string          `gorm:"type:text" json:"admin_notes,omitempty"`
}
