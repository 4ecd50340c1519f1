// Package domain credential.go contains the statically provisioned bearer credential.
package domain

// Credential is a named, pre-provisioned secret granting access to the API.
// EncryptedSecret is the cipher service's encoding of the bearer token; the
// plaintext never leaves the resolver's index.
type Credential struct {
	Name            string
	EncryptedSecret string
	Owner           string
	Enabled         bool
}
