package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationQR(t *testing.T) {
	qr, err := GenerateVerificationQR("11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)

	// Prêt à injecter tel quel dans un attribut src
	assert.True(t, len(qr) > len("data:image/png;base64,"))
	assert.Contains(t, qr, "data:image/png;base64,")
}

func TestFrontendCertificateBaseURLFallback(t *testing.T) {
	t.Setenv("FRONTEND_CERTIFICATE_URL", "")
	assert.Equal(t, "http://localhost:3000/certificate", GetFrontendCertificateBaseURL())

	t.Setenv("FRONTEND_CERTIFICATE_URL", "https://academy.bioharvest.fr/certificate")
	assert.Equal(t, "https://academy.bioharvest.fr/certificate", GetFrontendCertificateBaseURL())
}
