package domain

import "time"

// Default values used when the user agent or network information cannot be
// derived from the request.
const (
	DefaultDevice  = "Desktop"
	DefaultBrowser = "Unknown"
	DefaultOS      = "Unknown"
	DefaultIP      = "Unknown"
)

// DeviceInfo is the device identity tuple derived from a user-agent string.
// Together with the user ID it uniquely identifies a session: logging in
// again from the same device identity refreshes the existing session instead
// of creating a second one.
type DeviceInfo struct {
	Device  string `bson:"device" json:"device"`
	Browser string `bson:"browser" json:"browser"`
	OS      string `bson:"os" json:"os"`
}

// Session represents one authenticated device for a user. The JTI mirrors the
// jti claim of the bearer token issued for this session; deleting the session
// row revokes that token immediately, regardless of its cryptographic expiry.
type Session struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	UserID     string    `bson:"user_id" json:"userId"`
	JTI        string    `bson:"jti" json:"-"`
	Device     string    `bson:"device" json:"device"`
	Browser    string    `bson:"browser" json:"browser"`
	OS         string    `bson:"os" json:"os"`
	IP         string    `bson:"ip" json:"ip"`
	LastActive time.Time `bson:"last_active" json:"lastActive"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// SessionInfo is a Session as presented in a device listing, tagged with
// whether it is the caller's own session.
type SessionInfo struct {
	Session
	IsCurrent bool `json:"isCurrent"`
}
