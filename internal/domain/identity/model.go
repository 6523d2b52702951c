package identity

import "time"

type Patient struct {
	ID           int64     `json:"patient_id"`
	MRN          string    `json:"mrn"`
	FullName     string    `json:"full_name"`
	GuardianName string    `json:"guardian_name"`
	DOB          string    `json:"dob,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	MobileNo     string    `json:"mobile_no"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`

	// MobileNorm is MobileNo in E.164 (or bare digits when unparseable); it is
	// the key for phone-based account recovery.
	MobileNorm   string `json:"-"`
	PasswordHash string `json:"-"`
}

// HasPassword reports whether the patient can log in.
func (p *Patient) HasPassword() bool { return p.PasswordHash != "" }

const (
	ActiveYes = "Y"
	ActiveNo  = "N"
)

type Doctor struct {
	ID             int64  `json:"doctor_id"`
	Code           string `json:"doctor_code"`
	RegistrationNo string `json:"registration_no,omitempty"`
	FullName       string `json:"full_name"`
	Specialty      string `json:"specialty"`
	Active         string `json:"active"`
	ImageURL       string `json:"image,omitempty"`
}

func (d *Doctor) IsActive() bool { return d.Active == ActiveYes }

// DoctorPatch is a partial doctor update; nil fields are left unchanged.
type DoctorPatch struct {
	Code           *string `json:"doctor_code"`
	RegistrationNo *string `json:"registration_no"`
	FullName       *string `json:"full_name"`
	Specialty      *string `json:"specialty"`
	Active         *string `json:"active"`
	ImageURL       *string `json:"image"`
}

func (p DoctorPatch) apply(d *Doctor) {
	if p.Code != nil {
		d.Code = *p.Code
	}
	if p.RegistrationNo != nil {
		d.RegistrationNo = *p.RegistrationNo
	}
	if p.FullName != nil {
		d.FullName = *p.FullName
	}
	if p.Specialty != nil {
		d.Specialty = *p.Specialty
	}
	if p.Active != nil {
		d.Active = *p.Active
	}
	if p.ImageURL != nil {
		d.ImageURL = *p.ImageURL
	}
}
