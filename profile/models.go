package profile

import (
	"bytes"
	"encoding/json"
	"strings"
)

// KYCStatus is the identity verification state of a user.
type KYCStatus string

const (
	KYCPending   KYCStatus = "pending"
	KYCSubmitted KYCStatus = "submitted"
	KYCApproved  KYCStatus = "approved"
	KYCRejected  KYCStatus = "rejected"
)

// Flag is a boolean that also accepts 1 and "true" from older backends. It
// remembers whether the value was a JSON true literal so that strict checks
// can reject the loose forms.
type Flag uint8

const (
	FlagFalse Flag = iota
	FlagTrue
	// FlagLooseTrue was decoded from 1 or "true".
	FlagLooseTrue
)

// NewFlag returns a pointer to the strict flag for v.
func NewFlag(v bool) *Flag {
	f := FlagFalse
	if v {
		f = FlagTrue
	}
	return &f
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case bytes.Equal(data, []byte("true")):
		*f = FlagTrue
	case bytes.Equal(data, []byte("1")):
		*f = FlagLooseTrue
	case len(data) > 1 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlagFalse
		if strings.EqualFold(s, "true") || s == "1" {
			*f = FlagLooseTrue
		}
	default:
		*f = FlagFalse
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f != FlagFalse)
}

// IsTrue reports whether f is set to any true form.
func (f *Flag) IsTrue() bool {
	return f != nil && *f != FlagFalse
}

// IsStrictTrue reports whether f was a JSON true literal.
func (f *Flag) IsStrictTrue() bool {
	return f != nil && *f == FlagTrue
}

// UserProfile is the document returned by GET /user/profile. Nullable fields
// are pointers so that "missing" and "empty" can be told apart.
type UserProfile struct {
	ID           string     `json:"id"`
	Mobile       string     `json:"mobile"`
	Email        *string    `json:"email"`
	Name         *string    `json:"name"`
	ProfilePhoto *string    `json:"profile_photo"`
	City         *string    `json:"city"`
	Pincode      *string    `json:"pincode"`
	KYCStatus    *KYCStatus `json:"kyc_status"`

	SubscriptionID        *string         `json:"subscription_id"`
	SubscriptionPlan      *string         `json:"subscription_plan"`
	SubscriptionExpiresAt json.RawMessage `json:"subscription_expires_at,omitempty"`
	WorkerProfileID       *string         `json:"worker_profile_id"`
	WorkerIsVerified      *Flag           `json:"worker_is_verified"`

	JobSeekerSubscriptionID        *string         `json:"job_seeker_subscription_id"`
	JobSeekerSubscriptionPlan      *string         `json:"job_seeker_subscription_plan"`
	JobSeekerSubscriptionExpiresAt json.RawMessage `json:"job_seeker_subscription_expires_at,omitempty"`
	JobSeekerProfileID             *string         `json:"job_seeker_profile_id"`
	JobSeekerIsVerified            *Flag           `json:"job_seeker_is_verified"`
}

type WorkerProfile struct {
	WorkerID           string   `json:"worker_id"`
	Categories         []string `json:"categories"`
	Subcategories      []string `json:"subcategories"`
	ExperienceYears    int      `json:"experience_years"`
	Description        string   `json:"description"`
	HourlyRate         float64  `json:"hourly_rate"`
	LicenseNumber      string   `json:"license_number,omitempty"`
	ServiceAreas       []string `json:"service_areas"`
	IsVerified         bool     `json:"is_verified"`
	VerificationStatus string   `json:"verification_status"`
	CreatedAt          string   `json:"created_at"`
}

type JobSeekerProfile struct {
	ID                  string            `json:"_id,omitempty"`
	UserID              string            `json:"user_id"`
	FullName            string            `json:"full_name"`
	Headline            string            `json:"headline,omitempty"`
	Bio                 string            `json:"bio,omitempty"`
	Skills              []string          `json:"skills"`
	ExperienceYears     *int              `json:"experience_years,omitempty"`
	Education           []json.RawMessage `json:"education"`
	WorkExperience      []json.RawMessage `json:"work_experience"`
	PreferredCategories []string          `json:"preferred_categories"`
	PreferredJobTypes   []string          `json:"preferred_job_types"`
	PreferredLocations  []string          `json:"preferred_locations"`
	WillingToRelocate   bool              `json:"willing_to_relocate"`
	ResumeURL           string            `json:"resume_url,omitempty"`
	SubscriptionPlan    string            `json:"subscription_plan"`
	IsVerified          bool              `json:"is_verified"`
	IsAvailable         bool              `json:"is_available"`
	ProfileViews        int               `json:"profile_views"`
	ApplicationsCount   int               `json:"applications_count"`
	CreatedAt           string            `json:"created_at"`
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Normalize fills the job seeker fields from their worker counterparts when
// the backend only sends the worker variant.
func Normalize(p *UserProfile) {
	if p == nil {
		return
	}
	if !nonEmpty(p.JobSeekerSubscriptionID) && nonEmpty(p.SubscriptionID) {
		p.JobSeekerSubscriptionID = p.SubscriptionID
	}
	if !nonEmpty(p.JobSeekerProfileID) && nonEmpty(p.WorkerProfileID) {
		p.JobSeekerProfileID = p.WorkerProfileID
	}
	if p.JobSeekerIsVerified == nil && p.WorkerIsVerified != nil {
		v := *p.WorkerIsVerified
		p.JobSeekerIsVerified = &v
	}
}
