package model

import "time"

// AccessRequest represents an organization's request for time-bound access
// to one document category of a student
type AccessRequest struct {
	ID              string     `json:"id"`
	Student         string     `json:"student"`
	Requester       string     `json:"requester"`
	RequesterName   string     `json:"requesterName"`
	Category        string     `json:"fieldName"`
	Note            string     `json:"note"`
	DurationSeconds int64      `json:"duration"`
	BoundCID        string     `json:"dataCid,omitempty"`
	State           string     `json:"state"`
	ExpiryTime      *time.Time `json:"expiryTime,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Request state constants ("expired" is derived at read time, never stored)
const (
	RequestStatePending = "pending"
	RequestStateGranted = "granted"
	RequestStateRevoked = "revoked"
)

// IsPending checks if the request is still waiting for the student
func (r *AccessRequest) IsPending() bool {
	return r.State == RequestStatePending
}

// IsGranted checks if the request is in the granted state (ignoring expiry)
func (r *AccessRequest) IsGranted() bool {
	return r.State == RequestStateGranted
}

// IsRevoked checks if the request has been revoked
func (r *AccessRequest) IsRevoked() bool {
	return r.State == RequestStateRevoked
}

// IsExpired reports whether the request has passed its expiry time.
// A request with no recorded expiry never expires.
func (r *AccessRequest) IsExpired(now time.Time) bool {
	return r.ExpiryTime != nil && now.After(*r.ExpiryTime)
}

// IsAccessValid is the single access predicate used both to gate document
// reads and to render status: granted, not revoked, not past expiry.
// Pure function of the request snapshot and now.
func (r *AccessRequest) IsAccessValid(now time.Time) bool {
	return r.IsGranted() && !r.IsExpired(now)
}

// AccessRequestView is a request decorated with the bound document's
// display fields for the listing endpoints
type AccessRequestView struct {
	AccessRequest
	OriginalName string `json:"originalName,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
}
