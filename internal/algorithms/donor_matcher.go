package algorithms

import (
	"strings"
	"time"

	"blooddonation_backend/internal/models"
)

// MatchCriteria - требования заявки к донору
type MatchCriteria struct {
	BloodType models.BloodType
	City      string
}

// CriteriaFromRequest строит критерии по заявке
func CriteriaFromRequest(r *models.BloodRequest) MatchCriteria {
	return MatchCriteria{BloodType: r.BloodType, City: r.City}
}

// IsEligible: группа крови совпадает точно, город без учета регистра,
// донор доступен и дата следующей сдачи наступила (или не задана)
func IsEligible(profile *models.DonorProfile, c MatchCriteria, now time.Time) bool {
	if profile.BloodType != c.BloodType {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(profile.City), strings.TrimSpace(c.City)) {
		return false
	}
	if !profile.IsAvailable {
		return false
	}
	if profile.NextEligibleDate != nil && profile.NextEligibleDate.After(now) {
		return false
	}
	return true
}

// MatchDonors возвращает user id подходящих доноров в исходном порядке
func MatchDonors(profiles []models.DonorProfile, c MatchCriteria, now time.Time) []uint {
	ids := make([]uint, 0, len(profiles))
	seen := make(map[uint]struct{}, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if !IsEligible(p, c, now) {
			continue
		}
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	return ids
}

// DonationInterval - минимальный интервал между сдачами цельной крови
const DonationInterval = 56 * 24 * time.Hour

// NextEligibleDate после сдачи в момент at
func NextEligibleDate(at time.Time) time.Time {
	return at.Add(DonationInterval)
}
