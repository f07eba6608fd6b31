package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const (
	fcmScope           = "https://www.googleapis.com/auth/firebase.messaging"
	defaultFCMEndpoint = "https://fcm.googleapis.com"
	defaultFCMTimeout  = 15 * time.Second
	maxErrorBody       = 64 << 10
)

// FCMConfig configures an FCMSender.
type FCMConfig struct {
	// CredentialsJSON is a service account key. Ignored when TokenSource is set.
	CredentialsJSON []byte
	// TokenSource overrides the credential-derived token source.
	TokenSource oauth2.TokenSource
	// ProjectID defaults to the project in the credentials.
	ProjectID      string
	Endpoint       string
	RateLimit      float64
	Burst          int
	AndroidChannel string
	// Transport is the base round tripper under the oauth2 transport.
	Transport http.RoundTripper
}

// FCMSender sends through the Firebase Cloud Messaging HTTP v1 API.
type FCMSender struct {
	client         *http.Client
	url            string
	limiter        *rate.Limiter
	androidChannel string
}

var _ Sender = (*FCMSender)(nil)

// NewFCMSender builds an authenticated client. It fails when no usable
// credential or project id is available.
func NewFCMSender(ctx context.Context, cfg FCMConfig) (*FCMSender, error) {
	ts := cfg.TokenSource
	projectID := cfg.ProjectID
	if ts == nil {
		if len(cfg.CredentialsJSON) == 0 {
			return nil, errors.New("fcm credentials required")
		}
		creds, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, fcmScope)
		if err != nil {
			return nil, fmt.Errorf("parsing fcm credentials: %w", err)
		}
		ts = creds.TokenSource
		if projectID == "" {
			projectID = creds.ProjectID
		}
	}
	if projectID == "" {
		return nil, errors.New("fcm project id required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultFCMEndpoint
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Timeout:   defaultFCMTimeout,
		Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: base},
	}

	return &FCMSender{
		client:         client,
		url:            fmt.Sprintf("%s/v1/projects/%s/messages:send", endpoint, projectID),
		limiter:        rate.NewLimiter(limit, burst),
		androidChannel: cfg.AndroidChannel,
	}, nil
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                  `json:"priority"`
	Notification *fcmAndroidNotification `json:"notification,omitempty"`
}

type fcmAndroidNotification struct {
	ChannelID string `json:"channel_id,omitempty"`
}

type fcmAPNS struct {
	Headers map[string]string `json:"headers"`
	Payload fcmAPNSPayload    `json:"payload"`
}

type fcmAPNSPayload struct {
	APS fcmAPS `json:"aps"`
}

type fcmAPS struct {
	Sound string `json:"sound"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// FCMError is a non-2xx response from FCM.
type FCMError struct {
	StatusCode int
	Status     string // e.g. INVALID_ARGUMENT
	ErrorCode  string // e.g. UNREGISTERED
	Message    string
}

func (e *FCMError) Error() string {
	code := e.ErrorCode
	if code == "" {
		code = e.Status
	}
	return fmt.Sprintf("fcm %d %s: %s", e.StatusCode, code, e.Message)
}

// Permanent reports whether retrying can succeed.
func (e *FCMError) Permanent() bool {
	switch e.ErrorCode {
	case "UNREGISTERED", "INVALID_ARGUMENT", "SENDER_ID_MISMATCH", "THIRD_PARTY_AUTH_ERROR":
		return true
	case "QUOTA_EXCEEDED", "UNAVAILABLE", "INTERNAL":
		return false
	}
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return false
	case e.StatusCode >= 400:
		return true
	}
	return false
}

// Is makes errors.Is(err, ErrPermanent) follow Permanent.
func (e *FCMError) Is(target error) bool {
	return target == ErrPermanent && e.Permanent()
}

func (s *FCMSender) buildRequest(msg Message) fcmRequest {
	m := fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
		Android: &fcmAndroid{
			Priority: "high",
		},
		APNS: &fcmAPNS{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: fcmAPNSPayload{APS: fcmAPS{Sound: "default"}},
		},
	}
	if s.androidChannel != "" {
		m.Android.Notification = &fcmAndroidNotification{ChannelID: s.androidChannel}
	}
	return fcmRequest{Message: m}
}

// Send posts msg to FCM.
func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("%w: empty device token", ErrPermanent)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(s.buildRequest(msg))
	if err != nil {
		return fmt.Errorf("%w: marshal fcm request: %w", ErrPermanent, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	fcmErr := &FCMError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	var parsed fcmErrorResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Code != 0 {
		fcmErr.Status = parsed.Error.Status
		fcmErr.Message = parsed.Error.Message
		for _, d := range parsed.Error.Details {
			if d.ErrorCode != "" {
				fcmErr.ErrorCode = d.ErrorCode
				break
			}
		}
	}
	return fcmErr
}
