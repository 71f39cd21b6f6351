package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLocalPart(t *testing.T) {
	tests := []struct {
		name      string
		localPart string
		valid     bool
	}{
		{"Valid local part", "hello", true},
		{"Valid with numbers", "user123", true},
		{"Valid with dots", "user.name", true},
		{"Valid with underscore", "user_name", true},
		{"Valid with dash", "user-name", true},
		{"Valid single char", "a", true},
		{"Invalid - empty", "", false},
		{"Invalid - contains space", "user name", false},
		{"Invalid - leading dot", ".user", false},
		{"Invalid - trailing dot", "user.", false},
		{"Invalid - special characters", "user$", false},
		{"Invalid - contains @", "user@host", false},
		{"Invalid - too long", strings.Repeat("a", MaxLocalPartLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocalPart(tt.localPart)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name       string
		domainName string
		valid      bool
	}{
		{"Valid domain", "example.com", true},
		{"Valid subdomain", "mail.example.com", true},
		{"Valid with dash", "my-domain.com", true},
		{"Invalid - empty", "", false},
		{"Invalid - contains space", "exa mple.com", false},
		{"Invalid - leading dash", "-example.com", false},
		{"Invalid - underscore", "exam_ple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(tt.domainName)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeAddress(" User@Example.COM "))
	assert.Equal(t, "user@example.com", NormalizeAddress("<user@example.com>"))
	assert.Equal(t, "", NormalizeAddress("  "))
}

func TestSplitAddress(t *testing.T) {
	localPart, domainName, ok := SplitAddress("user@example.com")
	assert.True(t, ok)
	assert.Equal(t, "user", localPart)
	assert.Equal(t, "example.com", domainName)

	_, _, ok = SplitAddress("no-at-sign")
	assert.False(t, ok)

	_, _, ok = SplitAddress("@example.com")
	assert.False(t, ok)

	_, _, ok = SplitAddress("user@")
	assert.False(t, ok)
}
