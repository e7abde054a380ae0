package session

import "time"

// Record is the authoritative server-side state of one login.
//
// Token is the credential currently valid for the session; it changes when
// the session's token is reissued. ExpiresAt never decreases over the life of
// a record.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Token          string    `json:"token"`
	UserAgent      string    `json:"userAgent,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivity"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Expired reports whether the record's window has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Token          *string
	LastActivityAt *time.Time
	ExpiresAt      *time.Time
}

// Apply writes the non-nil fields of p onto r.
func (p Patch) Apply(r *Record) {
	if p.Token != nil {
		r.Token = *p.Token
	}
	if p.LastActivityAt != nil {
		r.LastActivityAt = *p.LastActivityAt
	}
	if p.ExpiresAt != nil {
		r.ExpiresAt = *p.ExpiresAt
	}
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Token == nil && p.LastActivityAt == nil && p.ExpiresAt == nil
}

// TruncateUserAgent caps ua at max bytes without splitting a UTF-8 sequence.
func TruncateUserAgent(ua string, max int) string {
	if max <= 0 || len(ua) <= max {
		return ua
	}
	cut := max
	for cut > 0 && ua[cut]&0xC0 == 0x80 {
		cut--
	}
	return ua[:cut]
}
