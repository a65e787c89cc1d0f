package validator

import (
	"fmt"
	"log"
	"strings"

	"blooddonation_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// enumRule - тег, пропускающий только перечисленные значения.
// Пустое значение проходит: для него есть 'required'.
type enumRule struct {
	tag    string
	values []string
}

func (r enumRule) allows(value string) bool {
	if value == "" {
		return true
	}
	for _, v := range r.values {
		if v == value {
			return true
		}
	}
	return false
}

func (r enumRule) message() string {
	return fmt.Sprintf("Must be one of: %s", strings.Join(r.values, ", "))
}

func values[T ~string](items ...T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = string(item)
	}
	return out
}

var enumRules = []enumRule{
	// админ через регистрацию не создается
	{"is-user-role", values(models.UserRoleDonor, models.UserRoleHospital, models.UserRoleSeeker)},
	{"is-blood-type", values(models.BloodTypes...)},
	{"is-urgency", values(models.UrgencyNormal, models.UrgencyUrgent, models.UrgencyEmergency)},
	{"is-request-status", values(models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusInProgress,
		models.RequestStatusRejected, models.RequestStatusCancelled, models.RequestStatusCompleted)},
	// accepted выставляется только при отклике на заявку
	{"is-donation-status", values(models.DonationStatusOnTheWay, models.DonationStatusReached,
		models.DonationStatusCompleted, models.DonationStatusCancelled)},
	{"is-voluntary-status", values(models.VoluntaryStatusPending, models.VoluntaryStatusApproved, models.VoluntaryStatusRejected,
		models.VoluntaryStatusScheduled, models.VoluntaryStatusCompleted, models.VoluntaryStatusCancelled)},
	{"is-audience", values(models.AudienceAll, models.AudienceDonors, models.AudienceHospitals, models.AudienceSeekers)},
	{"is-priority", values(models.PriorityLow, models.PriorityNormal, models.PriorityHigh, models.PriorityUrgent)},
}

// registerCustomRules регистрирует enum-теги и возвращает сообщения для них
func registerCustomRules(v *validator.Validate) map[string]string {
	messages := make(map[string]string, len(enumRules))
	for _, rule := range enumRules {
		rule := rule
		err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			return rule.allows(fl.Field().String())
		})
		if err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", rule.tag, err)
		}
		messages[rule.tag] = rule.message()
	}
	return messages
}
