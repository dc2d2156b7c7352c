package profile_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/mento-client/internal/utils"
	"github.com/jrsteele09/mento-client/profile"
	"github.com/stretchr/testify/require"
)

func flag(v bool) *profile.Flag {
	return profile.NewFlag(v)
}

func kyc(s profile.KYCStatus) *profile.KYCStatus {
	return &s
}

func TestDetermineFlowState(t *testing.T) {
	tests := []struct {
		name    string
		profile *profile.UserProfile
		want    profile.FlowState
	}{
		{"nil profile", nil, profile.FlowLoading},
		{"no kyc status", &profile.UserProfile{}, profile.FlowKYCRequired},
		{"kyc pending", &profile.UserProfile{KYCStatus: kyc(profile.KYCPending)}, profile.FlowKYCRequired},
		{"kyc submitted", &profile.UserProfile{KYCStatus: kyc(profile.KYCSubmitted)}, profile.FlowKYCUnderReview},
		{"kyc rejected", &profile.UserProfile{KYCStatus: kyc(profile.KYCRejected)}, profile.FlowKYCRejected},
		{"kyc approved", &profile.UserProfile{KYCStatus: kyc(profile.KYCApproved)}, profile.FlowSubscriptionRequired},
		{
			"subscribed",
			&profile.UserProfile{KYCStatus: kyc(profile.KYCApproved), SubscriptionID: utils.Ptr("sub-1")},
			profile.FlowWorkerProfileRequired,
		},
		{
			"empty subscription id ignored",
			&profile.UserProfile{KYCStatus: kyc(profile.KYCApproved), SubscriptionID: utils.Ptr("")},
			profile.FlowSubscriptionRequired,
		},
		{
			"worker pending",
			&profile.UserProfile{SubscriptionID: utils.Ptr("sub-1"), WorkerProfileID: utils.Ptr("w-1")},
			profile.FlowWorkerPending,
		},
		{
			"worker verified wins over kyc",
			&profile.UserProfile{KYCStatus: kyc(profile.KYCRejected), WorkerProfileID: utils.Ptr("w-1"), WorkerIsVerified: flag(true)},
			profile.FlowWorkerVerified,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, profile.DetermineFlowState(tt.profile))
		})
	}
}

func TestDetermineJobFlowState(t *testing.T) {
	tests := []struct {
		name    string
		profile *profile.UserProfile
		want    profile.JobFlowState
	}{
		{"nil profile", nil, profile.JobFlowLoading},
		{"no kyc status", &profile.UserProfile{}, profile.JobFlowKYCRequired},
		{"kyc submitted", &profile.UserProfile{KYCStatus: kyc(profile.KYCSubmitted)}, profile.JobFlowKYCUnderReview},
		{"kyc rejected", &profile.UserProfile{KYCStatus: kyc(profile.KYCRejected)}, profile.JobFlowKYCRejected},
		{"kyc approved", &profile.UserProfile{KYCStatus: kyc(profile.KYCApproved)}, profile.JobFlowSubscriptionRequired},
		{
			"job seeker subscription",
			&profile.UserProfile{JobSeekerSubscriptionID: utils.Ptr("js-sub")},
			profile.JobFlowProfileRequired,
		},
		{
			"falls back to worker subscription",
			&profile.UserProfile{SubscriptionID: utils.Ptr("sub-1")},
			profile.JobFlowProfileRequired,
		},
		{
			"job seeker profile pending",
			&profile.UserProfile{JobSeekerProfileID: utils.Ptr("js-1")},
			profile.JobFlowProfilePending,
		},
		{
			"job seeker verified",
			&profile.UserProfile{JobSeekerProfileID: utils.Ptr("js-1"), JobSeekerIsVerified: flag(true)},
			profile.JobFlowProfileVerified,
		},
		{
			"worker verified counts",
			&profile.UserProfile{WorkerProfileID: utils.Ptr("w-1"), WorkerIsVerified: flag(true)},
			profile.JobFlowProfileVerified,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, profile.DetermineJobFlowState(tt.profile))
		})
	}
}

func TestFlagUnmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		isNil bool
	}{
		{`{"worker_is_verified": true}`, true, false},
		{`{"worker_is_verified": false}`, false, false},
		{`{"worker_is_verified": 1}`, true, false},
		{`{"worker_is_verified": 0}`, false, false},
		{`{"worker_is_verified": "true"}`, true, false},
		{`{"worker_is_verified": "TRUE"}`, true, false},
		{`{"worker_is_verified": "no"}`, false, false},
		{`{"worker_is_verified": null}`, false, true},
		{`{}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p profile.UserProfile
			require.NoError(t, json.Unmarshal([]byte(tt.input), &p))
			if tt.isNil {
				require.Nil(t, p.WorkerIsVerified)
			} else {
				require.NotNil(t, p.WorkerIsVerified)
			}
			require.Equal(t, tt.want, p.WorkerIsVerified.IsTrue())
		})
	}
}

func TestLooseWorkerFlagOnlyCountsForJobTrack(t *testing.T) {
	for _, raw := range []string{`1`, `"true"`} {
		t.Run(raw, func(t *testing.T) {
			var p profile.UserProfile
			require.NoError(t, json.Unmarshal([]byte(`{"worker_profile_id":"w-1","worker_is_verified":`+raw+`}`), &p))
			require.True(t, p.WorkerIsVerified.IsTrue())
			require.False(t, p.WorkerIsVerified.IsStrictTrue())
			require.Equal(t, profile.FlowWorkerPending, profile.DetermineFlowState(&p))
			require.Equal(t, profile.JobFlowProfileVerified, profile.DetermineJobFlowState(&p))

			out, err := json.Marshal(p.WorkerIsVerified)
			require.NoError(t, err)
			require.JSONEq(t, `true`, string(out))
		})
	}
}

func TestNormalize(t *testing.T) {
	p := &profile.UserProfile{
		SubscriptionID:   utils.Ptr("sub-1"),
		WorkerProfileID:  utils.Ptr("w-1"),
		WorkerIsVerified: flag(true),
	}
	profile.Normalize(p)
	require.Equal(t, "sub-1", *p.JobSeekerSubscriptionID)
	require.Equal(t, "w-1", *p.JobSeekerProfileID)
	require.True(t, p.JobSeekerIsVerified.IsTrue())

	own := &profile.UserProfile{
		SubscriptionID:          utils.Ptr("sub-1"),
		JobSeekerSubscriptionID: utils.Ptr("js-sub"),
		WorkerIsVerified:        flag(true),
		JobSeekerIsVerified:     flag(false),
	}
	profile.Normalize(own)
	require.Equal(t, "js-sub", *own.JobSeekerSubscriptionID)
	require.False(t, own.JobSeekerIsVerified.IsTrue())

	profile.Normalize(nil)
}

func TestSetupStatus(t *testing.T) {
	require.Equal(t, "Loading...", profile.WorkerSetupStatus(nil).Label)
	require.Equal(t, "Loading...", profile.JobSetupStatus(nil).Label)

	require.Equal(t, profile.SetupStatus{
		Label:       "KYC Required",
		Description: "Complete verification to become a worker",
	}, profile.WorkerSetupStatus(&profile.UserProfile{}))

	verified := &profile.UserProfile{WorkerProfileID: utils.Ptr("w-1"), WorkerIsVerified: flag(true)}
	require.True(t, profile.WorkerSetupStatus(verified).Complete)
	require.True(t, profile.JobSetupStatus(verified).Complete)

	pending := &profile.UserProfile{JobSeekerProfileID: utils.Ptr("js-1")}
	require.Equal(t, "Under Review", profile.JobSetupStatus(pending).Label)
	require.False(t, profile.JobSetupStatus(pending).Complete)
}
