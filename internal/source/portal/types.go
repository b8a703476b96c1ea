package portal

// ErrorResponse is the error body returned by the portal API.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Actor is the user embedded in a connection notification.
type Actor struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

// ConnectionNotification is one entry of the connection notification feed.
type ConnectionNotification struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	IsRead     bool   `json:"isRead"`
	Message    string `json:"message"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	TargetPath string `json:"targetPath"`
	Actor      *Actor `json:"actor"`
}

// ConnectionNotificationsResponse is the response from
// GET /connections/notifications.
type ConnectionNotificationsResponse struct {
	Notifications []ConnectionNotification `json:"notifications"`
	UnreadCount   int                      `json:"unreadCount"`
}

// NotificationRequest is the body of the read and delete endpoints.
type NotificationRequest struct {
	NotificationID string `json:"notificationId"`
}

// UnreadCountResponse is returned by the read and delete endpoints.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// ConversationUser is the partner side of a conversation.
type ConversationUser struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

// LastMessage is the most recent message of a conversation.
type LastMessage struct {
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Conversation is one entry of GET /messages/conversations.
type Conversation struct {
	User        ConversationUser `json:"user"`
	LastMessage *LastMessage     `json:"lastMessage"`
	UpdatedAt   string           `json:"updatedAt"`
	UnreadCount int              `json:"unreadCount"`
}

// ConversationsResponse is the response from GET /messages/conversations.
type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}
