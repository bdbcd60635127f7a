package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/platform/auth"
)

func TestToken_IssuesVerifiableToken(t *testing.T) {
	out, err := execute(t, "token", "--org", "ngo-a", "--role", "recipient-org", "--secret", "s3cret")
	require.NoError(t, err)

	claims, err := auth.ValidateToken("s3cret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ngo-a", claims.OrgID)
	assert.Equal(t, "recipient-org", claims.Role)
}

func TestToken_SecretFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	out, err := execute(t, "--format", "json", "token", "--org", "donor-1", "--role", "donor")
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "donor", body["role"])
	_, err = auth.ValidateToken("from-env", body["token"])
	require.NoError(t, err)
}

func TestToken_Rejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no secret", []string{"token", "--org", "o", "--role", "donor"}, "no signing secret"},
		{"system role", []string{"token", "--org", "o", "--role", "system", "--secret", "x"}, "system"},
		{"unknown role", []string{"token", "--org", "o", "--role", "admin", "--secret", "x"}, "--role"},
		{"missing org", []string{"token", "--role", "donor", "--secret", "x"}, "org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
