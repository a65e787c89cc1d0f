package models

type UserStatus string
type UserRole string
type RequestStatus string
type DonationStatus string
type VoluntaryStatus string
type Urgency string
type BloodType string
type Audience string
type Priority string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusApproved  UserStatus = "approved"
	UserStatusRejected  UserStatus = "rejected"
	UserStatusSuspended UserStatus = "suspended"

	UserRoleAdmin    UserRole = "admin"
	UserRoleDonor    UserRole = "donor"
	UserRoleHospital UserRole = "hospital"
	UserRoleSeeker   UserRole = "seeker"

	RequestStatusPending    RequestStatus = "pending"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusCancelled  RequestStatus = "cancelled"
	RequestStatusCompleted  RequestStatus = "completed"

	DonationStatusAccepted  DonationStatus = "accepted"
	DonationStatusOnTheWay  DonationStatus = "on_the_way"
	DonationStatusReached   DonationStatus = "reached"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusCancelled DonationStatus = "cancelled"

	VoluntaryStatusPending   VoluntaryStatus = "pending"
	VoluntaryStatusApproved  VoluntaryStatus = "approved"
	VoluntaryStatusRejected  VoluntaryStatus = "rejected"
	VoluntaryStatusScheduled VoluntaryStatus = "scheduled"
	VoluntaryStatusCompleted VoluntaryStatus = "completed"
	VoluntaryStatusCancelled VoluntaryStatus = "cancelled"

	UrgencyNormal    Urgency = "normal"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"

	AudienceAll       Audience = "all"
	AudienceDonors    Audience = "donors"
	AudienceHospitals Audience = "hospitals"
	AudienceSeekers   Audience = "seekers"

	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var BloodTypes = []BloodType{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IsTerminal - заявка закрыта и больше не меняется
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusRejected || s == RequestStatusCancelled || s == RequestStatusCompleted
}

func (s DonationStatus) IsTerminal() bool {
	return s == DonationStatusCompleted || s == DonationStatusCancelled
}

func (s VoluntaryStatus) IsTerminal() bool {
	return s == VoluntaryStatusRejected || s == VoluntaryStatusCancelled || s == VoluntaryStatusCompleted
}

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleDonor, UserRoleHospital, UserRoleSeeker:
		return true
	}
	return false
}
