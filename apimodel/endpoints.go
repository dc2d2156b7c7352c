package apimodel

import (
	"net/url"
	"strings"
)

const (
	SendOTPPath          = "/auth/send-otp"
	ResendOTPPath        = "/auth/resend-otp"
	VerifyOTPPath        = "/auth/verify-otp"
	DefaultRefreshPath   = "/auth/refresh"
	UserProfilePath      = "/user/profile"
	WorkerProfilePath    = "/worker/profile/"
	JobSeekerProfilePath = "/job-seeker/profile"
	WorkerLocationPath   = "/worker/location"
)

// Endpoints builds backend URLs from a base URL such as
// https://api.mentoservices.com/api/v1.
type Endpoints struct {
	BaseURL     string
	RefreshPath string
}

func NewEndpoints(baseURL, refreshPath string) Endpoints {
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	return Endpoints{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		RefreshPath: refreshPath,
	}
}

// URL joins path onto the base URL. Absolute URLs are returned unchanged.
func (e Endpoints) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(e.BaseURL, "/") + path
}

func (e Endpoints) SendOTP() string          { return e.URL(SendOTPPath) }
func (e Endpoints) ResendOTP() string        { return e.URL(ResendOTPPath) }
func (e Endpoints) VerifyOTP() string        { return e.URL(VerifyOTPPath) }
func (e Endpoints) Refresh() string          { return e.URL(e.RefreshPath) }
func (e Endpoints) UserProfile() string      { return e.URL(UserProfilePath) }
func (e Endpoints) JobSeekerProfile() string { return e.URL(JobSeekerProfilePath) }
func (e Endpoints) WorkerLocation() string   { return e.URL(WorkerLocationPath) }

func (e Endpoints) WorkerProfile(workerID string) string {
	return e.URL(WorkerProfilePath + url.PathEscape(workerID))
}
