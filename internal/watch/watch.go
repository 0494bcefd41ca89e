// Package watch implements subscription tracking: selecting the next
// recipient to process, gathering the accounts their watchlists cover,
// re-checking ban state upstream and producing a notification payload when
// anything changed.
package watch

import (
	"time"

	"github.com/vacstatus/vacstatus/internal/profile"
)

// VerifyState is the confirmation status of one notification channel.
type VerifyState string

const (
	VerifyUnverified VerifyState = "unverified"
	VerifyPending    VerifyState = "pending"
	VerifyVerified   VerifyState = "verified"
)

// Recipient is a notification target. Email and push are independent
// channels, each with its own verification state. Only verified channels
// ever receive anything.
type Recipient struct {
	RecipientID int64       `json:"recipient_id"`
	UserID      int64       `json:"user_id"`
	Email       string      `json:"email"`
	EmailVerify VerifyState `json:"email_verify"`
	Push        string      `json:"push"`
	PushVerify  VerifyState `json:"push_verify"`
	CreatedOn   time.Time   `json:"created_on"`
	UpdatedOn   time.Time   `json:"updated_on"`
}

func (r Recipient) EmailVerified() bool {
	return r.EmailVerify == VerifyVerified
}

func (r Recipient) PushVerified() bool {
	return r.PushVerify == VerifyVerified
}

// Notifiable is true when at least one channel is verified.
func (r Recipient) Notifiable() bool {
	return r.EmailVerified() || r.PushVerified()
}

// Channels returns only the delivery targets the recipient has verified.
func (r Recipient) Channels() Channels {
	var channels Channels

	if r.EmailVerified() {
		channels.Email = r.Email
	}

	if r.PushVerified() {
		channels.Push = r.Push
	}

	return channels
}

// Channels is the delivery address set handed to a dispatcher. Empty
// fields mean the channel is not verified for this recipient.
type Channels struct {
	Email string `json:"email,omitempty"`
	Push  string `json:"push,omitempty"`
}

// SubscribedList is one active subscription of a recipient joined to its
// watchlist. UpdatedOn is the subscription's last processed time and drives
// the staleness comparison against ban timestamps.
type SubscribedList struct {
	SubscriptionID int64     `json:"subscription_id"`
	ListID         int64     `json:"user_list_id"`
	Title          string    `json:"title"`
	UpdatedOn      time.Time `json:"updated_on"`
}

// WatchedProfile is one (watchlist, profile) membership row with the
// stored ban snapshot joined in. Ban is the zero value when the profile has
// no ban row yet.
type WatchedProfile struct {
	ListID  int64           `json:"user_list_id"`
	Profile profile.Profile `json:"profile"`
	Ban     profile.Ban     `json:"ban"`
}

// ChangedProfile is one entry of the notification payload.
type ChangedProfile struct {
	Profile profile.Profile `json:"profile"`
	Ban     profile.Ban     `json:"ban"`
}
