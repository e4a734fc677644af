package config

// ProvidersConfig exposes the per-provider client credentials. Empty values
// are allowed here; adapters surface them as a misconfiguration at use time
// so the operator sees one descriptive error instead of a startup crash
// when only one provider is deployed.
type ProvidersConfig interface {
	GetDriveClientID() string
	GetDriveClientSecret() string
	GetBankfeedClientID() string
	GetBankfeedSecret() string
	GetBankfeedEnvironment() string
}

type Providers struct{}

var _ ProvidersConfig = Providers{}

func (Providers) GetDriveClientID() string {
	return GetEnv("DRIVE_CLIENT_ID", "")
}

func (Providers) GetDriveClientSecret() string {
	return GetEnv("DRIVE_CLIENT_SECRET", "")
}

func (Providers) GetBankfeedClientID() string {
	return GetEnv("BANKFEED_CLIENT_ID", "")
}

func (Providers) GetBankfeedSecret() string {
	return GetEnv("BANKFEED_SECRET", "")
}

// GetBankfeedEnvironment selects the aggregator environment
// ("sandbox", "development" or "production").
func (Providers) GetBankfeedEnvironment() string {
	return GetEnv("BANKFEED_ENV", "sandbox")
}
