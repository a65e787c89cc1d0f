package models

import "time"

type User struct {
	BaseModel
	Name         string     `gorm:"size:120;not null" json:"name"`
	Email        string     `gorm:"size:190;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Phone        string     `gorm:"size:32" json:"phone,omitempty"`
	Role         UserRole   `gorm:"type:varchar(20);not null;index" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// Relations
	DonorProfile *DonorProfile `gorm:"foreignKey:UserID" json:"donor_profile,omitempty"`
	Hospital     *Hospital     `gorm:"foreignKey:UserID" json:"hospital,omitempty"`
}

func (u *User) IsApproved() bool {
	return u.Status == UserStatusApproved
}

type DonorProfile struct {
	BaseModel
	UserID           uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	BloodType        BloodType  `gorm:"type:varchar(3);index" json:"blood_type"`
	City             string     `gorm:"size:100;index" json:"city"`
	IsAvailable      bool       `gorm:"default:true" json:"is_available"`
	LastDonationDate *time.Time `json:"last_donation_date,omitempty"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
	TotalDonations   int        `gorm:"default:0" json:"total_donations"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

type Hospital struct {
	BaseModel
	UserID  uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Name    string `gorm:"size:190;not null" json:"name"`
	City    string `gorm:"size:100;index" json:"city"`
	Address string `gorm:"size:255" json:"address"`
}
