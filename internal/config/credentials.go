package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/haukened/uidgen/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrCredentialsFormat is returned when the credentials document is not a
// mapping of credential names to entries.
var ErrCredentialsFormat = errors.New("malformed credentials file")

type credentialEntry struct {
	Token   string `yaml:"token"`
	Owner   string `yaml:"owner"`
	Enabled *bool  `yaml:"enabled"`
}

// LoadCredentials reads the credentials file at path.
func LoadCredentials(path string) ([]domain.Credential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}
	defer f.Close()
	creds, err := ParseCredentials(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return creds, nil
}

// ParseCredentials decodes a credentials document of the form
//
//	tokens:
//	  alice:
//	    token: "<ciphertext>"
//	    owner: "Alice"
//	    enabled: true
//
// Credentials are returned in document order. An omitted enabled defaults to true.
func ParseCredentials(r io.Reader) ([]domain.Credential, error) {
	var doc struct {
		Tokens yaml.Node `yaml:"tokens"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Credential{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialsFormat, err)
	}
	switch {
	case doc.Tokens.Kind == 0, doc.Tokens.Kind == yaml.ScalarNode && doc.Tokens.Tag == "!!null":
		return []domain.Credential{}, nil
	case doc.Tokens.Kind == yaml.MappingNode:
	default:
		return nil, fmt.Errorf("%w: tokens must be a mapping (line %d)", ErrCredentialsFormat, doc.Tokens.Line)
	}

	nodes := doc.Tokens.Content
	creds := make([]domain.Credential, 0, len(nodes)/2)
	for i := 0; i+1 < len(nodes); i += 2 {
		key, val := nodes[i], nodes[i+1]
		if err := checkEntryFields(val); err != nil {
			return nil, fmt.Errorf("%w: credential %q: %v", ErrCredentialsFormat, key.Value, err)
		}
		var e credentialEntry
		if err := val.Decode(&e); err != nil {
			return nil, fmt.Errorf("%w: credential %q: %v", ErrCredentialsFormat, key.Value, err)
		}
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		creds = append(creds, domain.Credential{
			Name:            key.Value,
			EncryptedSecret: e.Token,
			Owner:           e.Owner,
			Enabled:         enabled,
		})
	}
	return creds, nil
}

// checkEntryFields rejects unknown keys; Node.Decode does not honour KnownFields.
func checkEntryFields(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
			return nil
		}
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch k := n.Content[i].Value; k {
		case "token", "owner", "enabled":
		default:
			return fmt.Errorf("line %d: unknown field %q", n.Content[i].Line, k)
		}
	}
	return nil
}
