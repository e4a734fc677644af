// Package credentials holds the durable artifact of a completed link: the
// per-tenant external-account credential. One credential exists per
// (tenant, provider) pair; a re-link overwrites it (last write wins).
package credentials

import "time"

// ExternalCredential is what a successful exchange produces. Token fields
// hold sealed values once the credential has passed through a SealedRepo.
type ExternalCredential struct {
	TenantID     string    `json:"tenant_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        []string  `json:"scope,omitempty"`
	LinkedAt     time.Time `json:"linked_at"`

	// Human readable label for the UI: the linked account's email for the
	// document provider, the institution name for the bank aggregator.
	AccountLabel    string `json:"account_label,omitempty"`
	InstitutionName string `json:"institution_name,omitempty"`

	// Provider specific extensions.
	ItemID   string `json:"item_id,omitempty"`   // bank aggregator connection id
	FolderID string `json:"folder_id,omitempty"` // chosen document folder
}
