package fakebackend

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/profile"
	"github.com/rs/zerolog/log"
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

func (b *Backend) initRoutes() {
	b.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apimodel.NewEnvelope(apimodel.MessageData{Message: "ok"}))
	}).Methods(http.MethodGet)

	v1 := b.router.PathPrefix(BasePath).Subrouter()
	v1.HandleFunc(apimodel.SendOTPPath, ChainMiddleware(b.handleSendOTP, b.apiMiddleware()...)).Methods(http.MethodPost)
	v1.HandleFunc(apimodel.ResendOTPPath, ChainMiddleware(b.handleSendOTP, b.apiMiddleware()...)).Methods(http.MethodPost)
	v1.HandleFunc(apimodel.VerifyOTPPath, ChainMiddleware(b.handleVerifyOTP, b.apiMiddleware()...)).Methods(http.MethodPost)
	v1.HandleFunc(apimodel.DefaultRefreshPath, ChainMiddleware(b.handleRefresh, b.apiMiddleware()...)).Methods(http.MethodPost)

	v1.HandleFunc(apimodel.UserProfilePath, ChainMiddleware(b.handleUserProfile, b.apiMiddleware(b.RequireAuth)...)).Methods(http.MethodGet)
	v1.HandleFunc(apimodel.WorkerProfilePath+"{id}", ChainMiddleware(b.handleWorkerProfile, b.apiMiddleware(b.RequireAuth)...)).Methods(http.MethodGet)
	v1.HandleFunc(apimodel.JobSeekerProfilePath, ChainMiddleware(b.handleJobSeekerProfile, b.apiMiddleware(b.RequireAuth)...)).Methods(http.MethodGet)
	v1.HandleFunc(apimodel.WorkerLocationPath, ChainMiddleware(b.handleWorkerLocation, b.apiMiddleware(b.RequireAuth)...)).Methods(http.MethodPost)
}

func (b *Backend) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req apimodel.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !mobilePattern.MatchString(req.Mobile) {
		writeError(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	b.mu.Lock()
	b.pendingOTPs[req.Mobile] = b.otp
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(apimodel.MessageData{Message: "OTP sent successfully"}))
}

func (b *Backend) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req apimodel.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if pending, ok := b.pendingOTPs[req.Mobile]; !ok || pending != req.OTP {
		writeError(w, http.StatusUnauthorized, "Invalid OTP")
		return
	}
	delete(b.pendingOTPs, req.Mobile)

	u, isNew := b.findOrCreate(req.Mobile)
	if u.Inactive {
		writeInactive(w)
		return
	}

	access, err := b.issue(u, tokenTypeAccess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	refresh, err := b.issue(u, tokenTypeRefresh)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	user, err := json.Marshal(u.Profile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message := "Login successful"
	if isNew {
		message = "Registration successful"
	}
	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(apimodel.VerifyOTPData{
		Message:      message,
		IsNewUser:    isNew,
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}))
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	b.mu.Lock()
	delay, fail := b.refreshDelay, b.failRefresh
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		writeError(w, http.StatusInternalServerError, "Refresh unavailable")
		return
	}

	var req apimodel.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.verify(req.RefreshToken, tokenTypeRefresh)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected refresh token")
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if u.Inactive {
		writeInactive(w)
		return
	}
	access, err := b.issue(u, tokenTypeAccess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(apimodel.RefreshData{AccessToken: access}))
}

func (b *Backend) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	b.profileCalls.Add(1)
	u := userFrom(r)

	b.mu.Lock()
	p := u.Profile
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(p))
}

func (b *Backend) handleWorkerProfile(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	var worker *profile.WorkerProfile
	if u.Worker != nil && u.Profile.WorkerProfileID != nil && *u.Profile.WorkerProfileID == id {
		copied := *u.Worker
		worker = &copied
	}
	b.mu.Unlock()

	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker profile not found")
		return
	}
	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(*worker))
}

func (b *Backend) handleJobSeekerProfile(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)

	b.mu.Lock()
	var jobSeeker *profile.JobSeekerProfile
	if u.JobSeeker != nil {
		copied := *u.JobSeeker
		jobSeeker = &copied
	}
	b.mu.Unlock()

	if jobSeeker == nil {
		writeError(w, http.StatusNotFound, "Job seeker profile not found")
		return
	}
	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(*jobSeeker))
}

func (b *Backend) handleWorkerLocation(w http.ResponseWriter, r *http.Request) {
	var coords apimodel.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&coords); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}
	u := userFrom(r)

	b.mu.Lock()
	u.Locations = append(u.Locations, coords)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, apimodel.NewEnvelope(apimodel.MessageData{Message: "Location updated"}))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apimodel.NewErrorEnvelope(message))
}

func writeInactive(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]any{
		"success": false,
		"code":    apimodel.CodeAccountInactive,
		"message": "Account is inactive",
	})
}
