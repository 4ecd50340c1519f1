// Package auth resolves presented bearer secrets to statically provisioned
// credentials. The Resolver is built once at startup: every configured
// credential secret is decrypted through the cipher service and indexed by its
// plaintext. After construction the index is read-only and needs no locking.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haukened/uidgen/internal/domain"
)

// Decrypter is the subset of the cipher service the resolver needs.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Options tunes resolver construction.
type Options struct {
	// AllowDuplicateSecrets keeps the first credential (in input order) when two
	// credentials decrypt to the same secret, logging a warning for each
	// collision. When false a collision fails construction with
	// domain.ErrDuplicateSecret.
	AllowDuplicateSecrets bool
	Logger                *slog.Logger
}

// Resolver maps presented secrets to enabled credentials. Safe for concurrent use.
type Resolver struct {
	byName map[string]domain.Credential
	index  map[string]string // plaintext secret -> credential name
}

// NewResolver decrypts every credential and builds the lookup index. Any
// decryption failure, empty secret, repeated name or (unless allowed) repeated
// secret is fatal: a partial index is never returned.
func NewResolver(creds []domain.Credential, dec Decrypter, opts Options) (*Resolver, error) {
	if dec == nil {
		return nil, fmt.Errorf("nil decrypter")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("domain", "auth")

	r := &Resolver{
		byName: make(map[string]domain.Credential, len(creds)),
		index:  make(map[string]string, len(creds)),
	}
	for _, c := range creds {
		if c.Name == "" {
			return nil, fmt.Errorf("credential with empty name")
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("credential %q defined twice", c.Name)
		}
		secret, err := dec.Decrypt(c.EncryptedSecret)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential %q: %w", c.Name, err)
		}
		if secret == "" {
			return nil, fmt.Errorf("credential %q has an empty secret", c.Name)
		}
		r.byName[c.Name] = c
		if first, taken := r.index[secret]; taken {
			if !opts.AllowDuplicateSecrets {
				return nil, fmt.Errorf("%w: %q and %q", domain.ErrDuplicateSecret, first, c.Name)
			}
			log.Warn("duplicate credential secret ignored", "kept", first, "ignored", c.Name)
			continue
		}
		r.index[secret] = c.Name
	}
	log.Info("credentials loaded", "count", len(r.byName), "indexed", len(r.index))
	return r, nil
}

// Resolve returns the credential for secret if it exists and is enabled.
// Unknown and disabled credentials both yield domain.ErrCredentialNotFound so
// callers cannot tell the two apart.
func (r *Resolver) Resolve(secret string) (domain.Credential, error) {
	name, ok := r.index[secret]
	if !ok {
		return domain.Credential{}, domain.ErrCredentialNotFound
	}
	c, ok := r.byName[name]
	if !ok || !c.Enabled {
		return domain.Credential{}, domain.ErrCredentialNotFound
	}
	return c, nil
}

// Len returns the number of indexed secrets.
func (r *Resolver) Len() int { return len(r.index) }

type credentialCtxKey struct{}

// WithCredential attaches an authenticated credential to ctx.
func WithCredential(ctx context.Context, c domain.Credential) context.Context {
	return context.WithValue(ctx, credentialCtxKey{}, c)
}

// CredentialFrom returns the credential attached by WithCredential.
func CredentialFrom(ctx context.Context) (domain.Credential, bool) {
	c, ok := ctx.Value(credentialCtxKey{}).(domain.Credential)
	return c, ok
}
