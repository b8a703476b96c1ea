package model

import (
	"fmt"
	"strings"
	"time"
)

// Domain identifies one of the two independent notification streams.
type Domain string

const (
	DomainConnection Domain = "connection"
	DomainMessage    Domain = "message"
)

// Domains lists every domain in display priority order.
var Domains = []Domain{DomainConnection, DomainMessage}

// messageIDPrefix marks the string form of a message notification id.
const messageIDPrefix = "message:"

// NotificationID is the composite key of a notification. Connection
// notifications are keyed by the server-assigned id, message
// notifications by the conversation partner's user id.
type NotificationID struct {
	kind Domain
	key  string
}

// ConnectionID builds the id of a server-issued connection notification.
func ConnectionID(serverID string) NotificationID {
	return NotificationID{kind: DomainConnection, key: serverID}
}

// MessageID builds the id of the aggregated notification for one
// conversation partner.
func MessageID(partnerID string) NotificationID {
	return NotificationID{kind: DomainMessage, key: partnerID}
}

// ParseNotificationID reverses String. Anything without the message
// prefix is treated as a connection id.
func ParseNotificationID(s string) NotificationID {
	if partner, ok := strings.CutPrefix(s, messageIDPrefix); ok {
		return MessageID(partner)
	}
	return ConnectionID(s)
}

// Kind reports which domain the id belongs to.
func (id NotificationID) Kind() Domain { return id.kind }

// Key returns the server id or partner id without any prefix.
func (id NotificationID) Key() string { return id.key }

// IsZero reports whether the id was never set.
func (id NotificationID) IsZero() bool { return id.key == "" }

func (id NotificationID) String() string {
	if id.kind == DomainMessage {
		return messageIDPrefix + id.key
	}
	return id.key
}

// Category is the kind of event a notification describes.
type Category string

const (
	CategoryConnectionRequestReceived Category = "connection_request_received"
	CategoryConnectionRequestAccepted Category = "connection_request_accepted"
	CategoryApplicationStatusUpdated  Category = "application_status_updated"
	CategoryMessageReceived           Category = "message_received"
)

// Label returns a short human-readable tag for the category.
func (c Category) Label() string {
	switch c {
	case CategoryConnectionRequestReceived:
		return "request"
	case CategoryConnectionRequestAccepted:
		return "accepted"
	case CategoryApplicationStatusUpdated:
		return "application"
	case CategoryMessageReceived:
		return "message"
	default:
		return string(c)
	}
}

// Actor is the user who caused a notification.
type Actor struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Role           Role   `json:"role"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// DisplayName falls back to a neutral label when the name is unknown.
func (a *Actor) DisplayName() string {
	if a == nil || strings.TrimSpace(a.FullName) == "" {
		return "Someone"
	}
	return a.FullName
}

// Notification is the normalized record shared by both domains.
type Notification struct {
	// ID is unique within the notification's domain.
	ID NotificationID

	Category Category
	IsRead   bool

	// Message is the human-readable summary shown in the dropdown.
	Message string

	// Preview holds the last message content for message notifications.
	Preview string

	CreatedAt time.Time
	UpdatedAt time.Time

	// TargetPath is where acknowledging the notification navigates.
	TargetPath string

	// UnreadMessageCount is only meaningful for message notifications.
	UnreadMessageCount int

	Actor *Actor
}

// Domain reports which collection the record belongs to.
func (n Notification) Domain() Domain { return n.ID.Kind() }

// EffectiveTime is the timestamp used for ordering: UpdatedAt when set,
// otherwise CreatedAt.
func (n Notification) EffectiveTime() time.Time {
	if !n.UpdatedAt.IsZero() {
		return n.UpdatedAt
	}
	return n.CreatedAt
}

// DefaultTargetPath is used when a notification carries no target.
const DefaultTargetPath = "/home"

// NavigationPath returns TargetPath or the default landing page.
func (n Notification) NavigationPath() string {
	if n.TargetPath == "" {
		return DefaultTargetPath
	}
	return n.TargetPath
}

// MessageSummary synthesizes the dropdown text for a message notification.
func MessageSummary(senderName string, unread int) string {
	if strings.TrimSpace(senderName) == "" {
		senderName = "Someone"
	}
	if unread > 1 {
		return fmt.Sprintf("%s sent %d new messages.", senderName, unread)
	}
	return fmt.Sprintf("%s sent you a new message.", senderName)
}

// MessagesPath is the conversation page for partnerID as seen by role.
func MessagesPath(role Role, partnerID string) string {
	return fmt.Sprintf("/%s/messages?user=%s", role.pathSegment(), partnerID)
}

// FriendRequestsPath is the pending connection requests page for role.
func FriendRequestsPath(role Role) string {
	if role == RoleRecruiter {
		return "/recruiter/friend-requests"
	}
	return "/candidate/friend-requests"
}

// NewMessageNotification builds the aggregated record for one partner.
func NewMessageNotification(
	viewer Role,
	partner Actor,
	unread int,
	preview string,
	at time.Time,
) Notification {
	actor := partner
	return Notification{
		ID:                 MessageID(partner.ID),
		Category:           CategoryMessageReceived,
		IsRead:             unread == 0,
		Message:            MessageSummary(partner.FullName, unread),
		Preview:            preview,
		CreatedAt:          at,
		UpdatedAt:          at,
		TargetPath:         MessagesPath(viewer, partner.ID),
		UnreadMessageCount: unread,
		Actor:              &actor,
	}
}
