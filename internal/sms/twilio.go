// Package sms delivers one-time codes. Every gateway makes exactly one attempt
// per Send; retries are the caller's decision.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtroode/accounts-server/internal/model"
)

const (
	DefaultTwilioBaseURL = "https://api.twilio.com"
	DefaultCountryCode   = "+86"

	messageTemplate = "Your verification code is %s. It expires in %d minutes."
)

var _ model.SMSGateway = (*TwilioGateway)(nil)

// TwilioConfig holds credentials for the Messages API.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	From        string
	BaseURL     string
	CountryCode string
	Timeout     time.Duration
	CodeTTL     time.Duration
}

// TwilioGateway posts to the Twilio Messages API.
type TwilioGateway struct {
	cfg    TwilioConfig
	client *http.Client
}

func NewTwilioGateway(cfg TwilioConfig, client *http.Client) *TwilioGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioBaseURL
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	if client == nil {
		client = &http.Client{}
	}
	return &TwilioGateway{cfg: cfg, client: client}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DispatchError is a delivery failure reported by the provider.
type DispatchError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("sms dispatch failed: status %d, code %d: %s", e.StatusCode, e.Code, e.Message)
}

func (g *TwilioGateway) Send(ctx context.Context, phone, code string) error {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("To", g.cfg.CountryCode+phone)
	form.Set("From", g.cfg.From)
	form.Set("Body", fmt.Sprintf(messageTemplate, code, max(int(g.cfg.CodeTTL/time.Minute), 1)))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(g.cfg.BaseURL, "/"), url.PathEscape(g.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.cfg.AccountSID, g.cfg.AuthToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dispatchErr := &DispatchError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body twilioError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		dispatchErr.Code = body.Code
		if body.Message != "" {
			dispatchErr.Message = body.Message
		}
	}
	return dispatchErr
}
