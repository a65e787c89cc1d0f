package permissions

import (
	"errors"

	"blooddonation_backend/internal/models"
)

// Subject - участник проверки (отправитель или получатель)
type Subject struct {
	ID   uint
	Role models.UserRole
}

// Context - необязательная ссылка на доменную сущность
type Context struct {
	RequestID   *uint
	DonationID  *uint
	VoluntaryID *uint
}

func (c Context) IsEmpty() bool {
	return c.RequestID == nil && c.DonationID == nil && c.VoluntaryID == nil
}

// ResolvedContext - контекст, подтвержденный проверкой
type ResolvedContext struct {
	RequestID   *uint `json:"request_id,omitempty"`
	DonationID  *uint `json:"donation_id,omitempty"`
	VoluntaryID *uint `json:"voluntary_donation_id,omitempty"`
}

// Decision = Allow(reason, context) | Deny(reason)
type Decision struct {
	Allowed bool
	Reason  Reason
	Context *ResolvedContext
}

func Allow(reason Reason, ctx *ResolvedContext) Decision {
	return Decision{Allowed: true, Reason: reason, Context: ctx}
}

func Deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

type check struct {
	sender   Subject
	receiver Subject
	lookup   Lookup
	ctx      Context
}

// rule возвращает matched=false, если правило неприменимо
type rule struct {
	name  string
	apply func(c *check) (d Decision, matched bool, err error)
}

// Engine - упорядоченный список правил, первое совпавшее выигрывает
type Engine struct {
	rules []rule
}

func NewEngine() *Engine {
	return &Engine{rules: []rule{
		{"self", selfChat},
		{"admin_to_admin", adminToAdmin},
		{"same_role", sameRole},
		{"admin_sender", adminSender},
		{"admin_receiver", adminReceiver},
		{"cross_role", crossRole},
	}}
}

// CanChat - чистая функция решения. Ошибка возвращается только при сбое Lookup,
// отсутствие сущности превращается в код *_NOT_FOUND.
func (e *Engine) CanChat(lookup Lookup, sender, receiver Subject, ctx Context) (Decision, error) {
	c := &check{sender: sender, receiver: receiver, lookup: lookup, ctx: ctx}
	for _, r := range e.rules {
		d, matched, err := r.apply(c)
		if err != nil {
			return Decision{}, err
		}
		if matched {
			return d, nil
		}
	}
	return Deny(ReasonDenied), nil
}

func selfChat(c *check) (Decision, bool, error) {
	if c.sender.ID == c.receiver.ID {
		return Deny(ReasonSelfChat), true, nil
	}
	return Decision{}, false, nil
}

func adminToAdmin(c *check) (Decision, bool, error) {
	if c.sender.Role == models.UserRoleAdmin && c.receiver.Role == models.UserRoleAdmin {
		return Deny(ReasonAdminToAdmin), true, nil
	}
	return Decision{}, false, nil
}

func sameRole(c *check) (Decision, bool, error) {
	if c.sender.Role != models.UserRoleAdmin && c.receiver.Role != models.UserRoleAdmin &&
		c.sender.Role == c.receiver.Role {
		return Deny(ReasonSameRole), true, nil
	}
	return Decision{}, false, nil
}

func adminSender(c *check) (Decision, bool, error) {
	if c.sender.Role == models.UserRoleAdmin {
		return Allow(ReasonAdminOverride, nil), true, nil
	}
	return Decision{}, false, nil
}

func adminReceiver(c *check) (Decision, bool, error) {
	if c.receiver.Role == models.UserRoleAdmin {
		return Allow(ReasonChatWithAdmin, nil), true, nil
	}
	return Decision{}, false, nil
}

// crossRole: роли разные, админов нет. Контекст ужесточает проверку, его отсутствие - нет.
func crossRole(c *check) (Decision, bool, error) {
	if c.sender.Role == c.receiver.Role || c.sender.Role == models.UserRoleAdmin || c.receiver.Role == models.UserRoleAdmin {
		return Decision{}, false, nil
	}

	var (
		d   Decision
		err error
	)
	switch {
	case c.ctx.DonationID != nil:
		d, err = c.donation(*c.ctx.DonationID)
	case c.ctx.RequestID != nil:
		d, err = c.request(*c.ctx.RequestID)
	case c.ctx.VoluntaryID != nil:
		d, err = c.voluntary(*c.ctx.VoluntaryID)
	default:
		d = Allow(ReasonCrossRole, nil)
	}
	if err != nil {
		return Decision{}, false, err
	}
	return d, true, nil
}

func (c *check) callerIsAdmin() bool {
	return c.sender.Role == models.UserRoleAdmin
}

func (c *check) bothIn(p ParticipantSet) bool {
	return p.Has(c.sender.ID) && p.Has(c.receiver.ID)
}

func (c *check) donation(id uint) (Decision, error) {
	f, err := c.lookup.Donation(id)
	if errors.Is(err, ErrNotFound) {
		return Deny(ReasonDonationNotFound), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !DonationActiveForSend(f.Status, c.callerIsAdmin()) {
		return Deny(ReasonDonationInactive), nil
	}
	if !c.bothIn(f.Participants) {
		return Deny(ReasonNotInDonation), nil
	}
	donationID, requestID := f.ID, f.RequestID
	return Allow(ReasonAllowedDonation, &ResolvedContext{DonationID: &donationID, RequestID: &requestID}), nil
}

func (c *check) request(id uint) (Decision, error) {
	f, err := c.lookup.Request(id)
	if errors.Is(err, ErrNotFound) {
		return Deny(ReasonRequestNotFound), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !RequestActiveForSend(f.Status, c.callerIsAdmin()) {
		return Deny(ReasonRequestInactive), nil
	}
	if !c.bothIn(f.Participants) {
		return Deny(ReasonNotInRequest), nil
	}
	requestID := f.ID
	return Allow(ReasonAllowedRequest, &ResolvedContext{RequestID: &requestID}), nil
}

func (c *check) voluntary(id uint) (Decision, error) {
	f, err := c.lookup.Voluntary(id)
	if errors.Is(err, ErrNotFound) {
		return Deny(ReasonVolNotFound), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !VoluntaryActiveForSend(f.Status, c.callerIsAdmin()) {
		return Deny(ReasonVolInactive), nil
	}
	if !c.bothIn(f.Participants) {
		return Deny(ReasonNotInVoluntary), nil
	}
	voluntaryID := f.ID
	return Allow(ReasonAllowedVoluntary, &ResolvedContext{VoluntaryID: &voluntaryID}), nil
}

// ============================================
// Активность сущностей для отправки
// ============================================

// RequestActiveForSend: pending открыт только админу, закрытые статусы - никому
func RequestActiveForSend(status models.RequestStatus, callerIsAdmin bool) bool {
	if callerIsAdmin {
		return true
	}
	if status == models.RequestStatusPending {
		return false
	}
	return !status.IsTerminal()
}

func DonationActiveForSend(status models.DonationStatus, callerIsAdmin bool) bool {
	if callerIsAdmin {
		return true
	}
	return !status.IsTerminal()
}

func VoluntaryActiveForSend(status models.VoluntaryStatus, callerIsAdmin bool) bool {
	if callerIsAdmin {
		return true
	}
	return !status.IsTerminal()
}
