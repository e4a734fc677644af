package config

// VerifyMode selects how bearer tokens are verified. It is a deployment-time
// switch: the verifier is constructed once at startup and never changes per
// request.
type VerifyMode string

const (
	// VerifyModeLocal decodes claims without a signature check. Local and
	// emulated development only.
	VerifyModeLocal VerifyMode = "local"
	// VerifyModeStrict verifies tokens against the identity provider's
	// published keys.
	VerifyModeStrict VerifyMode = "strict"
)

type SecurityConfig interface {
	GetVerifyMode() VerifyMode
	GetIdentityIssuer() string
	GetIdentityAudience() string
	GetStateSecret() string
	GetCredentialSealKey() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetVerifyMode() VerifyMode {
	mode := GetEnv("SESSION_VERIFY_MODE", string(VerifyModeStrict))
	if mode == string(VerifyModeLocal) {
		return VerifyModeLocal
	}
	return VerifyModeStrict
}

func (Security) GetIdentityIssuer() string {
	return GetEnv("IDENTITY_ISSUER", "https://securetoken.google.com/paperledger")
}

func (Security) GetIdentityAudience() string {
	return GetEnv("IDENTITY_AUDIENCE", "paperledger")
}

// GetStateSecret returns the HMAC key for the opaque link state. The state
// payload is not secret, only tamper-evident.
func (Security) GetStateSecret() string {
	return GetEnv("LINK_STATE_SECRET", "")
}

// GetCredentialSealKey returns the base64 32-byte key used to seal provider
// tokens before they leave the process.
func (Security) GetCredentialSealKey() string {
	return GetEnv("CREDENTIAL_SEAL_KEY", "")
}
