package fakebackend_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/internal/fakebackend"
	"github.com/stretchr/testify/require"
)

const testMobile = "9876543210"

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := srv.Client().Post(srv.URL+fakebackend.BasePath+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func getWithToken(t *testing.T, srv *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+fakebackend.BasePath+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, srv *httptest.Server) *apimodel.VerifyOTPData {
	t.Helper()
	resp := post(t, srv, apimodel.SendOTPPath, apimodel.SendOTPRequest{Mobile: testMobile, Email: testMobile + "@temp.com"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv, apimodel.VerifyOTPPath, apimodel.VerifyOTPRequest{Mobile: testMobile, OTP: fakebackend.DefaultOTP})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := apimodel.DecodeEnvelope[apimodel.VerifyOTPData](resp.Body)
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T) (*fakebackend.Backend, *httptest.Server) {
	t.Helper()
	backend := fakebackend.New(fakebackend.WithSecret("test-secret"))
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv
}

func TestLoginIssuesTokens(t *testing.T) {
	_, srv := newTestServer(t)

	first := login(t, srv)
	require.True(t, first.IsNewUser)
	require.Equal(t, "Registration successful", first.Message)
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, first.RefreshToken)

	second := login(t, srv)
	require.False(t, second.IsNewUser)
	require.Equal(t, "Login successful", second.Message)

	resp := getWithToken(t, srv, apimodel.UserProfilePath, second.AccessToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendOTPValidation(t *testing.T) {
	_, srv := newTestServer(t)

	resp := post(t, srv, apimodel.SendOTPPath, apimodel.SendOTPRequest{Mobile: "12345", Email: "a@b.c"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv, apimodel.SendOTPPath, apimodel.SendOTPRequest{Mobile: testMobile, Email: "nope"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWrongOTP(t *testing.T) {
	_, srv := newTestServer(t)
	resp := post(t, srv, apimodel.SendOTPPath, apimodel.SendOTPRequest{Mobile: testMobile, Email: "x@y.z"})
	resp.Body.Close()

	resp = post(t, srv, apimodel.VerifyOTPPath, apimodel.VerifyOTPRequest{Mobile: testMobile, OTP: "0000"})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpireAndRefresh(t *testing.T) {
	backend, srv := newTestServer(t)
	tokens := login(t, srv)

	backend.ExpireAccessTokens()
	resp := getWithToken(t, srv, apimodel.UserProfilePath, tokens.AccessToken)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, srv, apimodel.DefaultRefreshPath, apimodel.RefreshRequest{RefreshToken: tokens.RefreshToken})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := apimodel.DecodeEnvelope[apimodel.RefreshData](resp.Body)
	require.NoError(t, err)
	require.Equal(t, int64(1), backend.RefreshCalls())

	resp = getWithToken(t, srv, apimodel.UserProfilePath, data.AccessToken)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	_, srv := newTestServer(t)
	tokens := login(t, srv)

	resp := post(t, srv, apimodel.DefaultRefreshPath, apimodel.RefreshRequest{RefreshToken: tokens.AccessToken})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInactiveAccount(t *testing.T) {
	backend, srv := newTestServer(t)
	tokens := login(t, srv)
	require.NoError(t, backend.SetInactive(testMobile, true))

	resp := getWithToken(t, srv, apimodel.UserProfilePath, tokens.AccessToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body apimodel.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.IsAccountInactive())

	refresh := post(t, srv, apimodel.DefaultRefreshPath, apimodel.RefreshRequest{RefreshToken: tokens.RefreshToken})
	refresh.Body.Close()
	require.Equal(t, http.StatusForbidden, refresh.StatusCode)
}

func TestFailRefresh(t *testing.T) {
	backend, srv := newTestServer(t)
	tokens := login(t, srv)
	backend.FailRefresh(true)

	resp := post(t, srv, apimodel.DefaultRefreshPath, apimodel.RefreshRequest{RefreshToken: tokens.RefreshToken})
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestUnknownUser(t *testing.T) {
	backend := fakebackend.New()
	require.ErrorIs(t, backend.SetInactive("6000000000", true), fakebackend.ErrUnknownUser)
}
