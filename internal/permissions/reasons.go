package permissions

// Reason - машиночитаемый код решения. Уходит клиенту как есть.
type Reason string

const (
	ReasonSelfChat         Reason = "SELF_CHAT_NOT_ALLOWED"
	ReasonAdminToAdmin     Reason = "ADMIN_TO_ADMIN_BLOCKED"
	ReasonSameRole         Reason = "SAME_ROLE_PROHIBITED"
	ReasonAdminOverride    Reason = "ADMIN_OVERRIDE"
	ReasonChatWithAdmin    Reason = "CHAT_WITH_ADMIN"
	ReasonDonationNotFound Reason = "DONATION_NOT_FOUND"
	ReasonDonationInactive Reason = "DONATION_INACTIVE"
	ReasonNotInDonation    Reason = "NOT_INVOLVED_IN_DONATION"
	ReasonAllowedDonation  Reason = "ALLOWED_DONATION"
	ReasonRequestNotFound  Reason = "REQUEST_NOT_FOUND"
	ReasonRequestInactive  Reason = "REQUEST_INACTIVE"
	ReasonNotInRequest     Reason = "NOT_INVOLVED_IN_REQUEST"
	ReasonAllowedRequest   Reason = "ALLOWED_REQUEST"
	ReasonVolNotFound      Reason = "VOLUNTARY_NOT_FOUND"
	ReasonVolInactive      Reason = "VOLUNTARY_INACTIVE"
	ReasonNotInVoluntary   Reason = "NOT_INVOLVED_IN_VOLUNTARY"
	ReasonAllowedVoluntary Reason = "ALLOWED_VOLUNTARY"
	ReasonCrossRole        Reason = "ALLOWED_CROSS_ROLE"
	ReasonDenied           Reason = "PERMISSION_DENIED"
)

var messages = map[Reason]string{
	ReasonSelfChat:         "You cannot send messages to yourself",
	ReasonAdminToAdmin:     "Administrators cannot chat with other administrators",
	ReasonSameRole:         "Users with the same role cannot chat with each other",
	ReasonAdminOverride:    "Administrators can message any user",
	ReasonChatWithAdmin:    "You can always contact an administrator",
	ReasonDonationNotFound: "The referenced donation does not exist",
	ReasonDonationInactive: "This donation is no longer active",
	ReasonNotInDonation:    "Both users must be involved in this donation",
	ReasonAllowedDonation:  "Chat allowed for this donation",
	ReasonRequestNotFound:  "The referenced blood request does not exist",
	ReasonRequestInactive:  "This blood request is not active",
	ReasonNotInRequest:     "Both users must be involved in this blood request",
	ReasonAllowedRequest:   "Chat allowed for this blood request",
	ReasonVolNotFound:      "The referenced voluntary donation does not exist",
	ReasonVolInactive:      "This voluntary donation is not active",
	ReasonNotInVoluntary:   "Both users must be involved in this voluntary donation",
	ReasonAllowedVoluntary: "Chat allowed for this voluntary donation",
	ReasonCrossRole:        "Chat allowed",
	ReasonDenied:           "You do not have permission to chat with this user",
}

// Message - текст для отображения в UI
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return messages[ReasonDenied]
}

func (r Reason) String() string {
	return string(r)
}
