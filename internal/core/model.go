package core

import (
	"strings"
	"time"
)

// Role is the authorization role of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Location sentinels reported in AnalysisResult.IPLocation
const (
	LocationPrivate       = "Private / local IP"
	LocationLookupFailed  = "Lookup failed"
	LocationUnknown       = "Unknown"
	LocationNotApplicable = "N/A"
)

// ErrorSentinel fills every field of a result produced by a failed analysis
const ErrorSentinel = "Error"

// AnalysisResult is the outcome of analyzing one header block. Every field is
// always populated; unknown values use sentinel strings rather than empty ones.
type AnalysisResult struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
	SPFStatus   string `json:"spfStatus"`
	DKIMStatus  string `json:"dkimStatus"`
	DMARCStatus string `json:"dmarcStatus"`
	SafeMeter   string `json:"safeMeter"`
	SenderIP    string `json:"senderIP"`
	IPLocation  string `json:"ipLocation"`
}

// ErrorResult returns a result whose fields all carry ErrorSentinel
func ErrorResult() AnalysisResult {
	return AnalysisResult{
		From:        ErrorSentinel,
		To:          ErrorSentinel,
		Subject:     ErrorSentinel,
		Date:        ErrorSentinel,
		SPFStatus:   ErrorSentinel,
		DKIMStatus:  ErrorSentinel,
		DMARCStatus: ErrorSentinel,
		SafeMeter:   ErrorSentinel,
		SenderIP:    ErrorSentinel,
		IPLocation:  ErrorSentinel,
	}
}

// HistoryRecord is a persisted analysis. UserID is empty for analyses that
// were not submitted by an authenticated user.
type HistoryRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	AnalysisResult
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryFilter selects history records. An empty UserID selects all records.
type HistoryFilter struct {
	UserID string
	Limit  int
}

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Location is a geolocation answer. Any part may be empty.
type Location struct {
	City    string
	Region  string
	Country string
}

// String joins the non-empty parts as "City, Region, Country"
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Region, l.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
