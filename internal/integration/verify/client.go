package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"claimflow/internal/app"
	"claimflow/internal/domain/claim"
)

// HTTPClient talks to the identity provider's contact verification endpoint.
// It implements app.ContactVerifier.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *HTTPClient {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:    trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

type verifyRequest struct {
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

type verifyResponse struct {
	EmailVerified  bool   `json:"email_verified"`
	MobileVerified bool   `json:"mobile_verified"`
	MobileCheck    string `json:"mobile_check"`
}

func (c *HTTPClient) VerifyContact(ctx context.Context, email, mobile string) (app.ContactVerification, error) {
	if c.baseURL == "" {
		// No provider configured: nothing is verified, nothing fails.
		return app.ContactVerification{MobileCheck: claim.MobileCheckNone}, nil
	}
	payload := verifyRequest{Email: email, Mobile: mobile}
	body, err := json.Marshal(payload)
	if err != nil {
		return app.ContactVerification{}, fmt.Errorf("encode verify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contact/verify", bytes.NewReader(body))
	if err != nil {
		return app.ContactVerification{}, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return app.ContactVerification{}, fmt.Errorf("send verify request: %w", err)
	}
	defer resp.Body.Close()
	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return app.ContactVerification{}, fmt.Errorf("read verify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(payloadBytes))
		if message == "" {
			return app.ContactVerification{}, fmt.Errorf("verify api error: status %d", resp.StatusCode)
		}
		return app.ContactVerification{}, fmt.Errorf("verify api error: %s", message)
	}
	var parsed verifyResponse
	if err := json.Unmarshal(payloadBytes, &parsed); err != nil {
		return app.ContactVerification{}, fmt.Errorf("decode verify response: %w", err)
	}
	check := claim.MobileCheck(parsed.MobileCheck)
	if check != claim.MobileCheckClaimed && check != claim.MobileCheckVerified {
		check = claim.MobileCheckNone
	}
	return app.ContactVerification{
		EmailVerified:  parsed.EmailVerified,
		MobileVerified: parsed.MobileVerified,
		MobileCheck:    check,
	}, nil
}
