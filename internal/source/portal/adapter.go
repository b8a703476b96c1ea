package portal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nhle/portal-notify/internal/model"
)

const (
	connectionNotificationsPath = "/connections/notifications"
	markReadPath                = "/connections/notifications/read"
	deletePath                  = "/connections/notifications/delete"
	conversationsPath           = "/messages/conversations"
)

// ConnectionSnapshot is one full read of the connection domain.
type ConnectionSnapshot struct {
	Records     []model.Notification
	UnreadCount int
}

// MessageSnapshot is one full read of the message domain. UnreadTotal
// counts unread messages across all conversations, not just the ones
// that fit in Records.
type MessageSnapshot struct {
	Records     []model.Notification
	UnreadTotal int
}

// Adapter normalizes portal REST responses into notification records.
type Adapter struct {
	client *Client
}

// NewAdapter creates a new portal adapter over client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// FetchConnections retrieves the newest connection notifications and the
// server's authoritative unread count.
func (a *Adapter) FetchConnections(ctx context.Context, limit int) (*ConnectionSnapshot, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp ConnectionNotificationsResponse
	if err := a.client.Get(ctx, connectionNotificationsPath+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching connection notifications: %w", err)
	}

	records := make([]model.Notification, 0, len(resp.Notifications))
	for _, n := range resp.Notifications {
		if rec, ok := ConnectionToModel(n); ok {
			records = append(records, rec)
		}
	}

	return &ConnectionSnapshot{
		Records:     records,
		UnreadCount: resp.UnreadCount,
	}, nil
}

// FetchMessages retrieves the conversation list and turns every
// conversation with unread messages into one record per partner.
func (a *Adapter) FetchMessages(ctx context.Context, viewer model.Role) (*MessageSnapshot, error) {
	var resp ConversationsResponse
	if err := a.client.Get(ctx, conversationsPath, &resp); err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}
	return ConversationsToSnapshot(viewer, resp.Conversations), nil
}

// ConversationsToSnapshot filters to unread conversations and aggregates
// them by partner.
func ConversationsToSnapshot(viewer model.Role, conversations []Conversation) *MessageSnapshot {
	snap := &MessageSnapshot{}
	byPartner := make(map[string]int)

	for _, c := range conversations {
		if c.UnreadCount <= 0 || c.User.ID == "" {
			continue
		}
		snap.UnreadTotal += c.UnreadCount

		rec := ConversationToModel(viewer, c)
		i, seen := byPartner[c.User.ID]
		if !seen {
			byPartner[c.User.ID] = len(snap.Records)
			snap.Records = append(snap.Records, rec)
			continue
		}

		prev := snap.Records[i]
		total := prev.UnreadMessageCount + rec.UnreadMessageCount
		newest := rec
		if prev.EffectiveTime().After(rec.EffectiveTime()) {
			newest = prev
		}
		newest.UnreadMessageCount = total
		newest.Message = model.MessageSummary(newest.Actor.DisplayName(), total)
		snap.Records[i] = newest
	}

	return snap
}

// MarkConnectionRead marks a connection notification read on the server
// and returns the new unread count.
func (a *Adapter) MarkConnectionRead(ctx context.Context, id model.NotificationID) (int, error) {
	if id.Kind() != model.DomainConnection {
		return 0, fmt.Errorf("marking %s read: not a connection notification", id)
	}

	var resp UnreadCountResponse
	req := NotificationRequest{NotificationID: id.Key()}
	if err := a.client.Post(ctx, markReadPath, req, &resp); err != nil {
		return 0, fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return resp.UnreadCount, nil
}

// DeleteConnection removes a connection notification on the server and
// returns the new unread count.
func (a *Adapter) DeleteConnection(ctx context.Context, id model.NotificationID) (int, error) {
	if id.Kind() != model.DomainConnection {
		return 0, fmt.Errorf("deleting %s: not a connection notification", id)
	}

	var resp UnreadCountResponse
	req := NotificationRequest{NotificationID: id.Key()}
	if err := a.client.Post(ctx, deletePath, req, &resp); err != nil {
		return 0, fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return resp.UnreadCount, nil
}

// ConnectionToModel converts a wire notification. It reports false when
// the notification has no id.
func ConnectionToModel(n ConnectionNotification) (model.Notification, bool) {
	if n.ID == "" {
		return model.Notification{}, false
	}

	rec := model.Notification{
		ID:         model.ConnectionID(n.ID),
		Category:   model.Category(n.Type),
		IsRead:     n.IsRead,
		Message:    n.Message,
		CreatedAt:  ParseTime(n.CreatedAt),
		UpdatedAt:  ParseTime(n.UpdatedAt),
		TargetPath: n.TargetPath,
	}
	if n.Actor != nil {
		rec.Actor = &model.Actor{
			ID:             n.Actor.ID,
			FullName:       n.Actor.FullName,
			Role:           model.Role(n.Actor.Role),
			ProfilePicture: n.Actor.ProfilePicture,
		}
	}
	if rec.Message == "" {
		rec.Message = connectionSummary(rec.Category, rec.Actor)
	}
	return rec, true
}

// ConversationToModel converts one unread conversation.
func ConversationToModel(viewer model.Role, c Conversation) model.Notification {
	at := ParseTime(c.UpdatedAt)
	preview := ""
	if c.LastMessage != nil {
		preview = c.LastMessage.Content
		if t := ParseTime(c.LastMessage.CreatedAt); !t.IsZero() {
			at = t
		}
	}

	partner := model.Actor{
		ID:             c.User.ID,
		FullName:       c.User.FullName,
		Role:           model.Role(c.User.Role),
		ProfilePicture: c.User.ProfilePicture,
	}
	return model.NewMessageNotification(viewer, partner, c.UnreadCount, preview, at)
}

func connectionSummary(c model.Category, actor *model.Actor) string {
	switch c {
	case model.CategoryConnectionRequestAccepted:
		return actor.DisplayName() + " accepted your connection request."
	case model.CategoryConnectionRequestReceived:
		return actor.DisplayName() + " sent you a connection request."
	default:
		return "Your application status was updated."
	}
}

// ParseTime parses the timestamp formats the portal emits. Unparseable
// input yields the zero time.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02 15:04:05",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
