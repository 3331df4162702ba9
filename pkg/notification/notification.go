package notification

import "time"

// EventType classifies the business event a notification reports.
type EventType string

const (
	EventApplicationCreated          EventType = "application_created"
	EventApplicationSubmitted        EventType = "application_submitted"
	EventApplicationUnderReview      EventType = "application_under_review"
	EventAdditionalDocumentsRequired EventType = "additional_documents_required"
	EventDocumentUploaded            EventType = "document_uploaded"
	EventDocumentApproved            EventType = "document_approved"
	EventDocumentRejected            EventType = "document_rejected"
	EventBiometricsScheduled         EventType = "biometrics_scheduled"
	EventInterviewScheduled          EventType = "interview_scheduled"
	EventInterviewRescheduled        EventType = "interview_rescheduled"
	EventInterviewCompleted          EventType = "interview_completed"
	EventPaymentPending              EventType = "payment_pending"
	EventPaymentReceived             EventType = "payment_received"
	EventPaymentFailed               EventType = "payment_failed"
	EventVisaApproved                EventType = "visa_approved"
	EventVisaRejected                EventType = "visa_rejected"
	EventPassportReady               EventType = "passport_ready"
	EventApplicationExpiring         EventType = "application_expiring"
	EventSystemAnnouncement          EventType = "system_announcement"
)

// knownEventTypes is the closed set of business events the portal emits.
var knownEventTypes = map[EventType]struct{}{
	EventApplicationCreated:          {},
	EventApplicationSubmitted:        {},
	EventApplicationUnderReview:      {},
	EventAdditionalDocumentsRequired: {},
	EventDocumentUploaded:            {},
	EventDocumentApproved:            {},
	EventDocumentRejected:            {},
	EventBiometricsScheduled:         {},
	EventInterviewScheduled:          {},
	EventInterviewRescheduled:        {},
	EventInterviewCompleted:          {},
	EventPaymentPending:              {},
	EventPaymentReceived:             {},
	EventPaymentFailed:               {},
	EventVisaApproved:                {},
	EventVisaRejected:                {},
	EventPassportReady:               {},
	EventApplicationExpiring:         {},
	EventSystemAnnouncement:          {},
}

// Valid reports whether the event type is one of the known business events.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank returns a comparable weight for delivery ordering. Unknown values
// rank below low so malformed records never starve valid ones.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the priority is a known level.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Channel is one delivery medium.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels selects which delivery media a notification goes out on.
type Channels struct {
	InApp bool `json:"in_app" bson:"in_app"`
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

// Enabled returns the enabled channels in stable order.
func (c Channels) Enabled() []Channel {
	var out []Channel
	if c.InApp {
		out = append(out, ChannelInApp)
	}
	if c.Email {
		out = append(out, ChannelEmail)
	}
	if c.SMS {
		out = append(out, ChannelSMS)
	}
	if c.Push {
		out = append(out, ChannelPush)
	}
	return out
}

// None reports whether no channel is enabled.
func (c Channels) None() bool {
	return !c.InApp && !c.Email && !c.SMS && !c.Push
}

// ChannelState is the per-channel delivery state machine. A state record
// exists in Notification.Delivery iff the channel is enabled.
type ChannelState struct {
	Sent          bool       `json:"sent" bson:"sent"`
	SentAt        *time.Time `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	Delivered     bool       `json:"delivered" bson:"delivered"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	Failed        bool       `json:"failed" bson:"failed"`
	FailureReason string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	MessageID     string     `json:"message_id,omitempty" bson:"message_id,omitempty"`
}

// Status is the aggregate delivery status derived from per-channel state.
// Callers never set it directly; DeriveStatus is the single source of truth.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// DeriveStatus computes the aggregate status from per-channel delivery
// state. It is a pure function: recomputing from identical state always
// yields the same result.
//
// Rules: delivered iff every enabled channel is delivered; failed iff every
// enabled channel is failed; sent iff every enabled channel is at least sent
// but not all delivered; pending otherwise.
func DeriveStatus(delivery map[Channel]*ChannelState) Status {
	if len(delivery) == 0 {
		return StatusPending
	}

	allDelivered := true
	allFailed := true
	allSent := true

	for _, st := range delivery {
		if st == nil || !st.Delivered {
			allDelivered = false
		}
		if st == nil || !st.Failed {
			allFailed = false
		}
		if st == nil || (!st.Sent && !st.Delivered) {
			allSent = false
		}
	}

	switch {
	case allDelivered:
		return StatusDelivered
	case allFailed:
		return StatusFailed
	case allSent:
		return StatusSent
	default:
		return StatusPending
	}
}

// Metadata carries optional presentation and lifecycle hints.
type Metadata struct {
	ActionURL  string         `json:"action_url,omitempty" bson:"action_url,omitempty"`
	ActionText string         `json:"action_text,omitempty" bson:"action_text,omitempty"`
	Template   string         `json:"template,omitempty" bson:"template,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	Tags       []string       `json:"tags,omitempty" bson:"tags,omitempty"`
	Data       map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}

// DefaultMaxRetries is applied at creation when no explicit limit is set.
const DefaultMaxRetries = 3

// Content limits enforced at creation time.
const (
	MaxTitleLength   = 200
	MaxMessageLength = 1000
)

// Notification is one user-facing event and its delivery lifecycle.
type Notification struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	RelatedID   string    `json:"related_id,omitempty" bson:"related_id,omitempty"`
	RelatedType string    `json:"related_type,omitempty" bson:"related_type,omitempty"`

	EventType EventType `json:"event_type" bson:"event_type"`
	Priority  Priority  `json:"priority" bson:"priority"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	Metadata  Metadata  `json:"metadata,omitempty" bson:"metadata,omitempty"`

	Channels Channels                  `json:"channels" bson:"channels"`
	Delivery map[Channel]*ChannelState `json:"delivery" bson:"delivery"`
	Status   Status                    `json:"status" bson:"status"`

	IsRead bool       `json:"is_read" bson:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty" bson:"read_at,omitempty"`
	ReadBy string     `json:"read_by,omitempty" bson:"read_by,omitempty"`

	RetryCount  int        `json:"retry_count" bson:"retry_count"`
	MaxRetries  int        `json:"max_retries" bson:"max_retries"`
	LastRetryAt *time.Time `json:"last_retry_at,omitempty" bson:"last_retry_at,omitempty"`

	Archived   bool       `json:"archived" bson:"archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" bson:"archived_at,omitempty"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty" bson:"scheduled_for,omitempty"`

	// Claim lease: set while a worker holds exclusive delivery rights.
	ClaimedBy    *string    `json:"claimed_by,omitempty" bson:"claimed_by,omitempty"`
	ClaimedUntil *time.Time `json:"claimed_until,omitempty" bson:"claimed_until,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate checks the fields required at creation time.
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return ErrMissingUserID
	}
	if !n.EventType.Valid() {
		return ErrInvalidEventType
	}
	if n.Title == "" {
		return ErrMissingTitle
	}
	if len(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if n.Message == "" {
		return ErrMissingMessage
	}
	if len(n.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if n.Priority != "" && !n.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// IsExpired reports whether the notification has passed its metadata expiry.
func (n *Notification) IsExpired() bool {
	if n.Metadata.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*n.Metadata.ExpiresAt)
}

// IsDue reports whether the notification is eligible for dispatch at the
// given instant: pending, unarchived, not scheduled for the future, and
// with retry budget remaining.
func (n *Notification) IsDue(now time.Time) bool {
	if n.Status != StatusPending || n.Archived {
		return false
	}
	if n.RetryCount >= n.MaxRetries {
		return false
	}
	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		return false
	}
	return true
}

// ChannelStateFor returns the delivery state for a channel, or nil when the
// channel is not enabled on this notification.
func (n *Notification) ChannelStateFor(ch Channel) *ChannelState {
	return n.Delivery[ch]
}

// Normalize enforces cross-field invariants before any persistence:
// a set ReadAt implies IsRead, delivered channels are always sent, and the
// delivery map keys track the enabled channel set exactly.
func (n *Notification) Normalize() {
	if n.ReadAt != nil {
		n.IsRead = true
	}
	if !n.IsRead {
		n.ReadAt = nil
		n.ReadBy = ""
	}

	enabled := n.Channels.Enabled()
	if n.Delivery == nil {
		n.Delivery = make(map[Channel]*ChannelState, len(enabled))
	}
	for _, ch := range enabled {
		if n.Delivery[ch] == nil {
			n.Delivery[ch] = &ChannelState{}
		}
	}
	for ch := range n.Delivery {
		switch ch {
		case ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush:
			if st := n.Delivery[ch]; st != nil && st.Delivered && !st.Sent {
				st.Sent = true
				if st.SentAt == nil {
					st.SentAt = st.DeliveredAt
				}
			}
		}
		if n.ChannelEnabled(ch) {
			continue
		}
		delete(n.Delivery, ch)
	}
}

// ChannelEnabled reports whether the given channel is enabled.
func (n *Notification) ChannelEnabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return n.Channels.InApp
	case ChannelEmail:
		return n.Channels.Email
	case ChannelSMS:
		return n.Channels.SMS
	case ChannelPush:
		return n.Channels.Push
	default:
		return false
	}
}

// Clone returns a deep copy, detaching per-channel state so storage
// implementations can hand out records without sharing mutable maps.
func (n *Notification) Clone() *Notification {
	cp := *n
	if n.Delivery != nil {
		cp.Delivery = make(map[Channel]*ChannelState, len(n.Delivery))
		for ch, st := range n.Delivery {
			if st == nil {
				cp.Delivery[ch] = nil
				continue
			}
			stCopy := *st
			cp.Delivery[ch] = &stCopy
		}
	}
	if n.Metadata.Tags != nil {
		cp.Metadata.Tags = append([]string(nil), n.Metadata.Tags...)
	}
	if n.Metadata.Data != nil {
		cp.Metadata.Data = make(map[string]any, len(n.Metadata.Data))
		for k, v := range n.Metadata.Data {
			cp.Metadata.Data[k] = v
		}
	}
	return &cp
}
