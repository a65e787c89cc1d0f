package permissions_test

import (
	"errors"
	"testing"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup - in-memory Lookup для тестов движка
type fakeLookup struct {
	requests      map[uint]*permissions.RequestFacts
	donations     map[uint]*permissions.DonationFacts
	voluntary     map[uint]*permissions.VoluntaryFacts
	failWith      error
	donationCalls int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		requests:  map[uint]*permissions.RequestFacts{},
		donations: map[uint]*permissions.DonationFacts{},
		voluntary: map[uint]*permissions.VoluntaryFacts{},
	}
}

func (f *fakeLookup) Request(id uint) (*permissions.RequestFacts, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if r, ok := f.requests[id]; ok {
		return r, nil
	}
	return nil, permissions.ErrNotFound
}

func (f *fakeLookup) Donation(id uint) (*permissions.DonationFacts, error) {
	f.donationCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if d, ok := f.donations[id]; ok {
		return d, nil
	}
	return nil, permissions.ErrNotFound
}

func (f *fakeLookup) Voluntary(id uint) (*permissions.VoluntaryFacts, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if v, ok := f.voluntary[id]; ok {
		return v, nil
	}
	return nil, permissions.ErrNotFound
}

func ptr(v uint) *uint { return &v }

var (
	admin1   = permissions.Subject{ID: 1, Role: models.UserRoleAdmin}
	admin2   = permissions.Subject{ID: 2, Role: models.UserRoleAdmin}
	donor    = permissions.Subject{ID: 10, Role: models.UserRoleDonor}
	donor2   = permissions.Subject{ID: 11, Role: models.UserRoleDonor}
	hospital = permissions.Subject{ID: 20, Role: models.UserRoleHospital}
	seeker   = permissions.Subject{ID: 30, Role: models.UserRoleSeeker}
)

func TestCanChat_RoleRules(t *testing.T) {
	engine := permissions.NewEngine()
	lookup := newFakeLookup()

	cases := []struct {
		name     string
		sender   permissions.Subject
		receiver permissions.Subject
		allowed  bool
		reason   permissions.Reason
	}{
		{"self chat fires before admin rule", admin1, admin1, false, permissions.ReasonSelfChat},
		{"self chat for donor", donor, donor, false, permissions.ReasonSelfChat},
		{"admin to admin", admin1, admin2, false, permissions.ReasonAdminToAdmin},
		{"donor to donor", donor, donor2, false, permissions.ReasonSameRole},
		{"admin to donor", admin1, donor, true, permissions.ReasonAdminOverride},
		{"admin to seeker", admin1, seeker, true, permissions.ReasonAdminOverride},
		{"hospital to admin", hospital, admin1, true, permissions.ReasonChatWithAdmin},
		{"donor to hospital without context", donor, hospital, true, permissions.ReasonCrossRole},
		{"seeker to donor without context", seeker, donor, true, permissions.ReasonCrossRole},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := engine.CanChat(lookup, tc.sender, tc.receiver, permissions.Context{})
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestCanChat_AdminBypassesContext(t *testing.T) {
	engine := permissions.NewEngine()
	lookup := newFakeLookup()

	// Несуществующая донация не мешает админу
	d, err := engine.CanChat(lookup, admin1, donor, permissions.Context{DonationID: ptr(999)})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, permissions.ReasonAdminOverride, d.Reason)
	assert.Zero(t, lookup.donationCalls, "админ не должен загружать контекст")
}

func TestCanChat_ContextTightensAbsenceLoosens(t *testing.T) {
	engine := permissions.NewEngine()
	lookup := newFakeLookup()
	lookup.requests[5] = &permissions.RequestFacts{
		ID:           5,
		Status:       models.RequestStatusApproved,
		Participants: permissions.NewParticipantSet(seeker.ID, 99),
	}

	d, err := engine.CanChat(lookup, donor, hospital, permissions.Context{})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, permissions.ReasonCrossRole, d.Reason)

	d, err = engine.CanChat(lookup, donor, hospital, permissions.Context{RequestID: ptr(5)})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, permissions.ReasonNotInRequest, d.Reason)
}

func TestCanChat_RequestContext(t *testing.T) {
	engine := permissions.NewEngine()
	participants := permissions.NewParticipantSet(seeker.ID, donor.ID, hospital.ID)

	statuses := []struct {
		status  models.RequestStatus
		allowed bool
		reason  permissions.Reason
	}{
		{models.RequestStatusPending, false, permissions.ReasonRequestInactive},
		{models.RequestStatusApproved, true, permissions.ReasonAllowedRequest},
		{models.RequestStatusInProgress, true, permissions.ReasonAllowedRequest},
		{models.RequestStatusRejected, false, permissions.ReasonRequestInactive},
		{models.RequestStatusCancelled, false, permissions.ReasonRequestInactive},
		{models.RequestStatusCompleted, false, permissions.ReasonRequestInactive},
	}

	for _, s := range statuses {
		t.Run(string(s.status), func(t *testing.T) {
			lookup := newFakeLookup()
			lookup.requests[7] = &permissions.RequestFacts{ID: 7, Status: s.status, Participants: participants}

			d, err := engine.CanChat(lookup, donor, seeker, permissions.Context{RequestID: ptr(7)})
			require.NoError(t, err)
			assert.Equal(t, s.allowed, d.Allowed)
			assert.Equal(t, s.reason, d.Reason)
			if s.allowed {
				require.NotNil(t, d.Context)
				assert.Equal(t, uint(7), *d.Context.RequestID)
			}
		})
	}

	d, err := engine.CanChat(newFakeLookup(), donor, seeker, permissions.Context{RequestID: ptr(404)})
	require.NoError(t, err)
	assert.Equal(t, permissions.ReasonRequestNotFound, d.Reason)
}

func TestCanChat_DonationContext(t *testing.T) {
	engine := permissions.NewEngine()
	lookup := newFakeLookup()
	lookup.donations[3] = &permissions.DonationFacts{
		ID:           3,
		RequestID:    7,
		Status:       models.DonationStatusOnTheWay,
		Participants: permissions.NewParticipantSet(donor.ID, hospital.ID, seeker.ID),
	}

	d, err := engine.CanChat(lookup, donor, hospital, permissions.Context{DonationID: ptr(3)})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, permissions.ReasonAllowedDonation, d.Reason)
	require.NotNil(t, d.Context)
	assert.Equal(t, uint(3), *d.Context.DonationID)
	assert.Equal(t, uint(7), *d.Context.RequestID, "контекст донации несет id заявки")

	// Донация приоритетнее заявки
	d, err = engine.CanChat(lookup, donor, hospital, permissions.Context{DonationID: ptr(3), RequestID: ptr(404)})
	require.NoError(t, err)
	assert.Equal(t, permissions.ReasonAllowedDonation, d.Reason)

	lookup.donations[3].Status = models.DonationStatusCompleted
	d, err = engine.CanChat(lookup, donor, hospital, permissions.Context{DonationID: ptr(3)})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, permissions.ReasonDonationInactive, d.Reason)

	lookup.donations[3].Status = models.DonationStatusAccepted
	outsider := permissions.Subject{ID: 77, Role: models.UserRoleSeeker}
	d, err = engine.CanChat(lookup, donor, outsider, permissions.Context{DonationID: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, permissions.ReasonNotInDonation, d.Reason)

	d, err = engine.CanChat(lookup, donor, hospital, permissions.Context{DonationID: ptr(404)})
	require.NoError(t, err)
	assert.Equal(t, permissions.ReasonDonationNotFound, d.Reason)
}

func TestCanChat_VoluntaryContext(t *testing.T) {
	engine := permissions.NewEngine()
	lookup := newFakeLookup()
	lookup.voluntary[4] = &permissions.VoluntaryFacts{
		ID:           4,
		Status:       models.VoluntaryStatusPending,
		Participants: permissions.NewParticipantSet(donor.ID, hospital.ID),
	}

	d, err := engine.CanChat(lookup, hospital, donor, permissions.Context{VoluntaryID: ptr(4)})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, permissions.ReasonAllowedVoluntary, d.Reason)

	d, err = engine.CanChat(lookup, seeker, donor, permissions.Context{VoluntaryID: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, permissions.ReasonNotInVoluntary, d.Reason)

	for _, st := range []models.VoluntaryStatus{models.VoluntaryStatusRejected, models.VoluntaryStatusCancelled, models.VoluntaryStatusCompleted} {
		lookup.voluntary[4].Status = st
		d, err = engine.CanChat(lookup, hospital, donor, permissions.Context{VoluntaryID: ptr(4)})
		require.NoError(t, err)
		assert.Equal(t, permissions.ReasonVolInactive, d.Reason, st)
	}

	d, err = engine.CanChat(lookup, hospital, donor, permissions.Context{VoluntaryID: ptr(404)})
	require.NoError(t, err)
	assert.Equal(t, permissions.ReasonVolNotFound, d.Reason)
}

func TestCanChat_LookupFailurePropagates(t *testing.T) {
	lookup := newFakeLookup()
	lookup.failWith = errors.New("connection reset")

	_, err := permissions.NewEngine().CanChat(lookup, donor, seeker, permissions.Context{RequestID: ptr(1)})
	assert.Error(t, err)
}

func TestActiveForSend_AdminBypass(t *testing.T) {
	assert.True(t, permissions.RequestActiveForSend(models.RequestStatusPending, true))
	assert.False(t, permissions.RequestActiveForSend(models.RequestStatusPending, false))
	assert.True(t, permissions.DonationActiveForSend(models.DonationStatusCancelled, true))
	assert.False(t, permissions.DonationActiveForSend(models.DonationStatusCancelled, false))
	assert.True(t, permissions.VoluntaryActiveForSend(models.VoluntaryStatusScheduled, false))
}

func TestReasonMessage(t *testing.T) {
	assert.Equal(t, "You cannot send messages to yourself", permissions.ReasonSelfChat.Message())
	assert.Equal(t, permissions.ReasonDenied.Message(), permissions.Reason("UNKNOWN").Message())
}

func TestChattableRoles(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.UserRole{models.UserRoleDonor, models.UserRoleHospital, models.UserRoleSeeker},
		permissions.ChattableRoles(models.UserRoleAdmin))
	assert.ElementsMatch(t,
		[]models.UserRole{models.UserRoleHospital, models.UserRoleSeeker, models.UserRoleAdmin},
		permissions.ChattableRoles(models.UserRoleDonor))

	assert.True(t, permissions.CanSearchRole(models.UserRoleSeeker, models.UserRoleDonor))
	assert.False(t, permissions.CanSearchRole(models.UserRoleSeeker, models.UserRoleSeeker))
	assert.False(t, permissions.CanSearchRole(models.UserRoleAdmin, models.UserRoleAdmin))
	assert.Empty(t, permissions.ChattableRoles("guest"))
}
