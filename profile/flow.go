package profile

// FlowState is how far a user is through worker onboarding.
type FlowState string

const (
	FlowLoading               FlowState = "loading"
	FlowKYCRequired           FlowState = "kyc_required"
	FlowKYCUnderReview        FlowState = "kyc_under_review"
	FlowKYCRejected           FlowState = "kyc_rejected"
	FlowSubscriptionRequired  FlowState = "subscription_required"
	FlowWorkerProfileRequired FlowState = "worker_profile_required"
	FlowWorkerPending         FlowState = "worker_pending"
	FlowWorkerVerified        FlowState = "worker_verified"
)

// JobFlowState is how far a user is through job seeker onboarding.
type JobFlowState string

const (
	JobFlowLoading              JobFlowState = "loading"
	JobFlowKYCRequired          JobFlowState = "kyc_required"
	JobFlowKYCUnderReview       JobFlowState = "kyc_under_review"
	JobFlowKYCRejected          JobFlowState = "kyc_rejected"
	JobFlowSubscriptionRequired JobFlowState = "job_subscription_required"
	JobFlowProfileRequired      JobFlowState = "job_profile_required"
	JobFlowProfilePending       JobFlowState = "job_profile_pending"
	JobFlowProfileVerified      JobFlowState = "job_profile_verified"
)

// DetermineFlowState classifies worker onboarding. Checks run in a fixed order
// and the first match wins:
//
//  1. worker profile exists: verified (a JSON true, not 1 or "true") -> worker_verified,
//     else worker_pending
//  2. subscription exists -> worker_profile_required
//  3. KYC status: approved -> subscription_required, submitted -> kyc_under_review,
//     rejected -> kyc_rejected, anything else -> kyc_required
func DetermineFlowState(p *UserProfile) FlowState {
	if p == nil {
		return FlowLoading
	}
	if nonEmpty(p.WorkerProfileID) {
		if p.WorkerIsVerified.IsStrictTrue() {
			return FlowWorkerVerified
		}
		return FlowWorkerPending
	}
	if nonEmpty(p.SubscriptionID) {
		return FlowWorkerProfileRequired
	}
	switch kycStatus(p) {
	case KYCApproved:
		return FlowSubscriptionRequired
	case KYCSubmitted:
		return FlowKYCUnderReview
	case KYCRejected:
		return FlowKYCRejected
	default:
		return FlowKYCRequired
	}
}

// DetermineJobFlowState is DetermineFlowState for the job seeker track. Worker
// fields are accepted wherever the job seeker field is missing, and any true
// form of a verified flag counts.
func DetermineJobFlowState(p *UserProfile) JobFlowState {
	if p == nil {
		return JobFlowLoading
	}
	if nonEmpty(p.JobSeekerProfileID) || nonEmpty(p.WorkerProfileID) {
		if p.JobSeekerIsVerified.IsTrue() || p.WorkerIsVerified.IsTrue() {
			return JobFlowProfileVerified
		}
		return JobFlowProfilePending
	}
	if nonEmpty(p.JobSeekerSubscriptionID) || nonEmpty(p.SubscriptionID) {
		return JobFlowProfileRequired
	}
	switch kycStatus(p) {
	case KYCApproved:
		return JobFlowSubscriptionRequired
	case KYCSubmitted:
		return JobFlowKYCUnderReview
	case KYCRejected:
		return JobFlowKYCRejected
	default:
		return JobFlowKYCRequired
	}
}

func kycStatus(p *UserProfile) KYCStatus {
	if p.KYCStatus == nil {
		return KYCPending
	}
	return *p.KYCStatus
}

// SetupStatus summarises a flow state for display.
type SetupStatus struct {
	Label       string
	Description string
	Complete    bool
}

var loadingStatus = SetupStatus{Label: "Loading...", Description: "Please wait"}

func WorkerSetupStatus(p *UserProfile) SetupStatus {
	if p == nil {
		return loadingStatus
	}
	switch DetermineFlowState(p) {
	case FlowKYCRequired:
		return SetupStatus{Label: "KYC Required", Description: "Complete verification to become a worker"}
	case FlowKYCUnderReview:
		return SetupStatus{Label: "KYC Under Review", Description: "Documents are being verified"}
	case FlowKYCRejected:
		return SetupStatus{Label: "KYC Rejected", Description: "Please resubmit documents"}
	case FlowSubscriptionRequired:
		return SetupStatus{Label: "Choose Plan", Description: "Subscribe to create worker profile"}
	case FlowWorkerProfileRequired:
		return SetupStatus{Label: "Create Profile", Description: "Set up your worker profile"}
	case FlowWorkerPending:
		return SetupStatus{Label: "Under Review", Description: "Profile is being verified"}
	case FlowWorkerVerified:
		return SetupStatus{Label: "Verified", Description: "Ready to receive jobs", Complete: true}
	default:
		return SetupStatus{Label: "Setup Required", Description: "Complete your worker setup"}
	}
}

func JobSetupStatus(p *UserProfile) SetupStatus {
	if p == nil {
		return loadingStatus
	}
	switch DetermineJobFlowState(p) {
	case JobFlowKYCRequired:
		return SetupStatus{Label: "KYC Required", Description: "Complete verification to find jobs"}
	case JobFlowKYCUnderReview:
		return SetupStatus{Label: "KYC Under Review", Description: "Documents are being verified"}
	case JobFlowKYCRejected:
		return SetupStatus{Label: "KYC Rejected", Description: "Please resubmit documents"}
	case JobFlowSubscriptionRequired:
		return SetupStatus{Label: "Choose Plan", Description: "Subscribe to create job profile"}
	case JobFlowProfileRequired:
		return SetupStatus{Label: "Create Profile", Description: "Set up your job seeker profile"}
	case JobFlowProfilePending:
		return SetupStatus{Label: "Under Review", Description: "Profile is being verified"}
	case JobFlowProfileVerified:
		return SetupStatus{Label: "Verified", Description: "Ready to apply for jobs", Complete: true}
	default:
		return SetupStatus{Label: "Setup Required", Description: "Complete your job seeker setup"}
	}
}
