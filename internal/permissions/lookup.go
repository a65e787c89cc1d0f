package permissions

import (
	"errors"

	"blooddonation_backend/internal/models"
)

// ErrNotFound возвращается Lookup, если сущности нет
var ErrNotFound = errors.New("entity not found")

// ParticipantSet - множество user id, вовлеченных в сущность
type ParticipantSet map[uint]struct{}

func NewParticipantSet(ids ...uint) ParticipantSet {
	s := make(ParticipantSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s ParticipantSet) Add(id uint) {
	if id != 0 {
		s[id] = struct{}{}
	}
}

func (s ParticipantSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s ParticipantSet) Merge(other ParticipantSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// IDs возвращает участников в произвольном порядке
func (s ParticipantSet) IDs() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

type RequestFacts struct {
	ID           uint
	Status       models.RequestStatus
	Participants ParticipantSet
}

type DonationFacts struct {
	ID           uint
	RequestID    uint
	Status       models.DonationStatus
	Participants ParticipantSet
}

type VoluntaryFacts struct {
	ID           uint
	Status       models.VoluntaryStatus
	Participants ParticipantSet
}

// Lookup - чтение сущностей контекста. Только чтение, без побочных эффектов.
type Lookup interface {
	Request(id uint) (*RequestFacts, error)
	Donation(id uint) (*DonationFacts, error)
	Voluntary(id uint) (*VoluntaryFacts, error)
}
