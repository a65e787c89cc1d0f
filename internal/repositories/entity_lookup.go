package repositories

import (
	"errors"

	"blooddonation_backend/internal/permissions"

	"gorm.io/gorm"
)

// entityLookup - реализация permissions.Lookup поверх репозиториев,
// привязанная к конкретному соединению или транзакции
type entityLookup struct {
	db       *gorm.DB
	requests RequestRepository
}

// NewEntityLookup привязывает lookup к db (пул или tx)
func NewEntityLookup(db *gorm.DB, requests RequestRepository) permissions.Lookup {
	return &entityLookup{db: db, requests: requests}
}

func (l *entityLookup) Request(id uint) (*permissions.RequestFacts, error) {
	request, err := l.requests.FindRequestByID(l.db, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, permissions.ErrNotFound
		}
		return nil, err
	}

	ids, err := l.requests.RequestParticipantIDs(l.db, request)
	if err != nil {
		return nil, err
	}

	return &permissions.RequestFacts{
		ID:           request.ID,
		Status:       request.Status,
		Participants: permissions.NewParticipantSet(ids...),
	}, nil
}

// Donation: донор + все участники заявки
func (l *entityLookup) Donation(id uint) (*permissions.DonationFacts, error) {
	donation, err := l.requests.FindDonationByID(l.db, id)
	if err != nil {
		if errors.Is(err, ErrDonationNotFound) {
			return nil, permissions.ErrNotFound
		}
		return nil, err
	}

	participants := permissions.NewParticipantSet()
	if donation.Donor != nil {
		participants.Add(donation.Donor.UserID)
	}

	request, err := l.requests.FindRequestByID(l.db, donation.RequestID)
	switch {
	case err == nil:
		ids, err := l.requests.RequestParticipantIDs(l.db, request)
		if err != nil {
			return nil, err
		}
		participants.Merge(permissions.NewParticipantSet(ids...))
	case !errors.Is(err, ErrRequestNotFound):
		return nil, err
	}

	return &permissions.DonationFacts{
		ID:           donation.ID,
		RequestID:    donation.RequestID,
		Status:       donation.Status,
		Participants: participants,
	}, nil
}

func (l *entityLookup) Voluntary(id uint) (*permissions.VoluntaryFacts, error) {
	v, err := l.requests.FindVoluntaryByID(l.db, id)
	if err != nil {
		if errors.Is(err, ErrVoluntaryNotFound) {
			return nil, permissions.ErrNotFound
		}
		return nil, err
	}

	participants := permissions.NewParticipantSet(v.DonorUserID)
	if v.HospitalUserID != nil {
		participants.Add(*v.HospitalUserID)
	}

	return &permissions.VoluntaryFacts{
		ID:           v.ID,
		Status:       v.Status,
		Participants: participants,
	}, nil
}
