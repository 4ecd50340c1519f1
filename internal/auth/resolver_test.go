package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/uidgen/internal/domain"
)

// rot13 is a reversible stand-in for the cipher service.
type rot13 struct{ failOn string }

func (r rot13) Decrypt(ct string) (string, error) {
	if r.failOn != "" && ct == r.failOn {
		return "", errors.New("bad ciphertext")
	}
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z':
			return 'a' + (c-'a'+13)%26
		case c >= 'A' && c <= 'Z':
			return 'A' + (c-'A'+13)%26
		}
		return c
	}, ct), nil
}

func enc(s string) string { v, _ := rot13{}.Decrypt(s); return v }

func scenarioCreds() []domain.Credential {
	return []domain.Credential{
		{Name: "alice", EncryptedSecret: enc("S1"), Owner: "Alice", Enabled: true},
		{Name: "bob", EncryptedSecret: enc("S2"), Owner: "Bob", Enabled: false},
	}
}

func TestResolveScenario(t *testing.T) {
	r, err := NewResolver(scenarioCreds(), rot13{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	c, err := r.Resolve("S1")
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Name)
	assert.Equal(t, "Alice", c.Owner)

	for _, s := range []string{"S2", "X", ""} {
		_, err := r.Resolve(s)
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound, "secret %q", s)
	}
}

func TestResolveDisabledAndUnknownIndistinguishable(t *testing.T) {
	r, err := NewResolver(scenarioCreds(), rot13{}, Options{})
	require.NoError(t, err)
	c1, err1 := r.Resolve("S2")
	c2, err2 := r.Resolve("nope")
	assert.Equal(t, err1, err2)
	assert.Equal(t, c1, c2)
}

func TestNewResolverDecryptFailureIsFatal(t *testing.T) {
	creds := scenarioCreds()
	_, err := NewResolver(creds, rot13{failOn: creds[1].EncryptedSecret}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bob"`)
	assert.NotContains(t, err.Error(), "S2")
}

func TestNewResolverDuplicateSecret(t *testing.T) {
	creds := []domain.Credential{
		{Name: "first", EncryptedSecret: enc("same"), Enabled: true},
		{Name: "second", EncryptedSecret: enc("same"), Enabled: true},
	}
	_, err := NewResolver(creds, rot13{}, Options{})
	assert.ErrorIs(t, err, domain.ErrDuplicateSecret)

	r, err := NewResolver(creds, rot13{}, Options{AllowDuplicateSecrets: true})
	require.NoError(t, err)
	c, err := r.Resolve("same")
	require.NoError(t, err)
	assert.Equal(t, "first", c.Name)
	assert.Equal(t, 1, r.Len())
}

func TestNewResolverDuplicateSecretFirstDisabled(t *testing.T) {
	creds := []domain.Credential{
		{Name: "first", EncryptedSecret: enc("same"), Enabled: false},
		{Name: "second", EncryptedSecret: enc("same"), Enabled: true},
	}
	r, err := NewResolver(creds, rot13{}, Options{AllowDuplicateSecrets: true})
	require.NoError(t, err)
	_, err = r.Resolve("same")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestNewResolverRejectsBadInput(t *testing.T) {
	_, err := NewResolver(nil, nil, Options{})
	assert.Error(t, err)

	_, err = NewResolver([]domain.Credential{{Name: "", EncryptedSecret: "x"}}, rot13{}, Options{})
	assert.Error(t, err)

	_, err = NewResolver([]domain.Credential{{Name: "a", EncryptedSecret: ""}}, rot13{}, Options{})
	assert.Error(t, err)

	_, err = NewResolver([]domain.Credential{
		{Name: "a", EncryptedSecret: "x"},
		{Name: "a", EncryptedSecret: "y"},
	}, rot13{}, Options{})
	assert.Error(t, err)
}

func TestNewResolverEmpty(t *testing.T) {
	r, err := NewResolver(nil, rot13{}, Options{})
	require.NoError(t, err)
	_, err = r.Resolve("anything")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestResolveConcurrent(t *testing.T) {
	r, err := NewResolver(scenarioCreds(), rot13{}, Options{})
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if _, err := r.Resolve("S1"); err != nil {
					t.Errorf("resolve: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCredentialContext(t *testing.T) {
	_, ok := CredentialFrom(context.Background())
	assert.False(t, ok)

	want := domain.Credential{Name: "alice", Owner: "Alice", Enabled: true}
	got, ok := CredentialFrom(WithCredential(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}
