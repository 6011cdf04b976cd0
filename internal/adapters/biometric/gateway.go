package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"spsc-mbanking/internal/core/services"
)

// GatewayVerifier asks the device-attestation gateway for a biometric
// verdict. When no gateway is configured the verdict is "unavailable",
// which the step-up gate treats as a platform condition rather than an
// authentication failure.
type GatewayVerifier struct {
	gatewayURL string
	token      string
	client     *http.Client
}

// NewGatewayVerifier creates a verifier from BIOMETRIC_GATEWAY_URL and
// BIOMETRIC_GATEWAY_TOKEN
func NewGatewayVerifier() *GatewayVerifier {
	return &GatewayVerifier{
		gatewayURL: os.Getenv("BIOMETRIC_GATEWAY_URL"),
		token:      os.Getenv("BIOMETRIC_GATEWAY_TOKEN"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify requests a verdict for the stated reason
func (v *GatewayVerifier) Verify(ctx context.Context, reason string) (services.BiometricResult, error) {
	if v.gatewayURL == "" {
		return services.BiometricResult{
			Success: false,
			Code:    services.BiometricCodeUnavailable,
			Message: "biometric gateway not configured",
		}, nil
	}

	payload, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return services.BiometricResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return services.BiometricResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.token != "" {
		req.Header.Set("Authorization", "Bearer "+v.token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return services.BiometricResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return services.BiometricResult{}, fmt.Errorf("biometric gateway returned %d", resp.StatusCode)
	}

	var result services.BiometricResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return services.BiometricResult{}, err
	}
	return result, nil
}
