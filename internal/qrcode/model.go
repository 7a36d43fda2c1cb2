package qrcode

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

func (s Status) Valid() bool {
	return s == StatusInactive || s == StatusActive || s == StatusDisabled
}

type QRCode struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Status      Status     `json:"status"`
	UserID      *string    `json:"userId,omitempty"`
	OrderID     *string    `json:"orderId,omitempty"`
	RedirectURL string     `json:"redirectUrl"`
	ScanCount   int64      `json:"scanCount"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PublicView is what anonymous visitors may see about a code.
type PublicView struct {
	Code        string `json:"code"`
	Status      Status `json:"status"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

func (q QRCode) Public() PublicView {
	v := PublicView{Code: q.Code, Status: q.Status}
	if q.Status == StatusActive {
		v.RedirectURL = q.RedirectURL
	}
	return v
}

var ExportHeader = []string{"id", "code", "status", "user_id", "order_id", "redirect_url", "scan_count", "activated_at", "created_at"}

func (q QRCode) ExportRow() []string {
	activated := ""
	if q.ActivatedAt != nil {
		activated = q.ActivatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		q.ID, q.Code, string(q.Status), deref(q.UserID), deref(q.OrderID), q.RedirectURL,
		strconv.FormatInt(q.ScanCount, 10), activated, q.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type Filter struct {
	Status Status
	Q      string
	UserID string
}

type ActivateRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	RedirectURL string `json:"redirectUrl"`
}

type ActivateResult struct {
	QRCode  PublicView `json:"qrCode"`
	UserID  string     `json:"userId"`
	NewUser bool       `json:"newUser"`
}

// UpdateInput is the admin patch. Unbind resets the code to a fresh,
// inactive state and ignores the other fields.
type UpdateInput struct {
	Status      *Status `json:"status"`
	RedirectURL *string `json:"redirectUrl"`
	Unbind      bool    `json:"unbindUser"`
}
