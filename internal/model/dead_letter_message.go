package model

import "time"

// DeadLetterMessage is a render job that exhausted its retries, persisted
// for inspection and manual replay. Payload holds the original job JSON.
type DeadLetterMessage struct {
	ID               string    `db:"id"`
	SubscriptionName string    `db:"subscription_name"`
	MessageID        string    `db:"message_id"`
	Payload          string    `db:"payload"`    // render job JSON as it left the queue
	Attributes       *string   `db:"attributes"` // push message attributes JSON, if any
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
