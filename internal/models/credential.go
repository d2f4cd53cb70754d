package models

type CredentialKind string

const (
	CredentialPassword CredentialKind = "password"
	CredentialExternal CredentialKind = "external"
)

const ProviderGoogle = "google"

// Credential is a tagged union: a password hash, or an account at an external
// identity provider. Only the fields of the active kind are set.
type Credential struct {
	Kind         CredentialKind `bson:"kind"`
	PasswordHash string         `bson:"passwordHash,omitempty"`
	Provider     string         `bson:"provider,omitempty"`
	ExternalID   string         `bson:"externalId,omitempty"`
}

func PasswordCredential(hash string) Credential {
	return Credential{Kind: CredentialPassword, PasswordHash: hash}
}

func ExternalCredential(provider, externalID string) Credential {
	return Credential{Kind: CredentialExternal, Provider: provider, ExternalID: externalID}
}
