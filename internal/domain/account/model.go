package account

import "time"

// Admin is a staff login. The clinic runs with a single administrator
// provisioned from configuration, but the store allows more.
type Admin struct {
	ID            int64  `json:"user_id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	RecoveryPhone string `json:"-"`
	PasswordHash  string `json:"-"`
}

// User is the caller a session token was issued for.
type User struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	MRN      string `json:"mrn,omitempty"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// RecoveryMatch is what a phone lookup reveals about a patient: enough to
// pick the right record, nothing more.
type RecoveryMatch struct {
	PatientID int64  `json:"patient_id"`
	MRN       string `json:"mrn"`
	FullName  string `json:"full_name"`
}

// AdminSeed describes the administrator provisioned at startup.
type AdminSeed struct {
	Username      string
	Password      string
	FullName      string
	RecoveryPhone string
}
