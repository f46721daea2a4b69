package models

import (
	"fmt"
	"time"
)

// Contact is an entry of the recents/contacts picker or of search results.
// Ordering is decided by the server.
type Contact struct {
	Username string `json:"username"`
}

// MediaItem is an immutable snapshot of a sent or received image.
type MediaItem struct {
	RemoteID     string
	Counterpart  string
	OriginalName string
	ExpiresAt    time.Time
	FetchPath    string
}

// Expired reports whether the item's server window has passed at now.
func (m MediaItem) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

func (m MediaItem) String() string {
	return fmt.Sprintf("%s (%s, expires %s)", m.OriginalName, m.Counterpart, m.ExpiresAt.Local().Format(time.DateTime))
}

// ReceivedGroup is the received listing for one sender.
type ReceivedGroup struct {
	Sender string
	Items  []MediaItem
}

// SendReceipt is the server's confirmation of an upload. ExpiresAt is
// authoritative; the client never computes it.
type SendReceipt struct {
	Receiver  string
	ExpiresAt time.Time
	ShareLink string
}
