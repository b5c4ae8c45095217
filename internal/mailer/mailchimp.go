package mailer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
)

// Client talks to the MailChimp Marketing API v3. A nil or unconfigured
// client turns every send into a logged no-op, so callers never need to
// guard for a missing email setup.
type Client struct {
	apiKey     string
	audienceID string
	senderName string
	replyTo    string
	baseURL    string
	httpClient *http.Client
}

// New constructs a MailChimp client from config. Returns a disabled client
// when no API key is configured.
func New(cfg config.MailchimpConfig) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		audienceID: cfg.AudienceID,
		senderName: cfg.SenderName,
		replyTo:    cfg.ReplyToEmail,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	if c.senderName == "" {
		c.senderName = "AI Bug Hunter"
	}
	if cfg.ServerPrefix != "" {
		c.baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", cfg.ServerPrefix)
	}
	return c
}

// Enabled reports whether the client can reach MailChimp.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// Ping checks API connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("mailer: mailchimp not configured")
	}
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// subscriberHash is the MD5 of the lowercased email, MailChimp's member key.
func subscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// splitName splits a display name into first and last parts.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}

type memberUpsert struct {
	EmailAddress string            `json:"email_address"`
	StatusIfNew  string            `json:"status_if_new"`
	MergeFields  map[string]string `json:"merge_fields"`
	Tags         []string          `json:"tags,omitempty"`
}

// AddToAudience upserts a subscriber with plan and source segmentation.
// Existing members are updated in place rather than rejected.
func (c *Client) AddToAudience(ctx context.Context, email, name, plan, source string, extraTags ...string) error {
	if !c.Enabled() {
		log.WithField("email", email).Debug("mailchimp disabled, skipping audience add")
		return nil
	}
	if c.audienceID == "" {
		log.Warn("mailchimp audience ID not configured, skipping audience add")
		return nil
	}

	firstName, lastName := splitName(name)
	tags := append([]string{"plan_" + plan, "source_" + source, "new_user"}, extraTags...)
	body := memberUpsert{
		EmailAddress: email,
		StatusIfNew:  "subscribed",
		MergeFields: map[string]string{
			"FNAME":  firstName,
			"LNAME":  lastName,
			"PLAN":   strings.ToUpper(plan),
			"SOURCE": strings.ToUpper(source),
			"SIGNUP": time.Now().UTC().Format("2006-01-02"),
		},
		Tags: tags,
	}
	path := fmt.Sprintf("/lists/%s/members/%s", c.audienceID, subscriberHash(email))
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// SendWelcome enrolls a fresh registration into the welcome flow.
func (c *Client) SendWelcome(ctx context.Context, user *models.User) error {
	if !c.Enabled() {
		return nil
	}
	plan := string(user.Tier)
	if errAdd := c.AddToAudience(ctx, user.Email, user.DisplayName, plan, "website", "welcome_email_needed"); errAdd != nil {
		return errAdd
	}
	log.WithFields(log.Fields{"email": user.Email, "plan": plan}).Info("welcome email enqueued")
	return nil
}

// SendTrialExpired tags the member so the trial-expired automation fires.
func (c *Client) SendTrialExpired(ctx context.Context, user *models.User) error {
	if !c.Enabled() {
		return nil
	}
	return c.tagMember(ctx, user.Email, "trial_expired")
}

// SendSubscriptionConfirmation marks the member with the confirmed plan so
// the subscription automation sends the confirmation email.
func (c *Client) SendSubscriptionConfirmation(ctx context.Context, user *models.User, plan plans.Plan) error {
	if !c.Enabled() {
		return nil
	}
	if errAdd := c.AddToAudience(ctx, user.Email, user.DisplayName, string(plan.Tier), "upgrade", "subscription_created"); errAdd != nil {
		return errAdd
	}
	log.WithFields(log.Fields{"email": user.Email, "plan": plan.Name}).Info("subscription confirmation enqueued")
	return nil
}

type tagUpdate struct {
	Tags []tagState `json:"tags"`
}

type tagState struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// tagMember sets a tag active on an existing audience member.
func (c *Client) tagMember(ctx context.Context, email, tag string) error {
	if c.audienceID == "" {
		return nil
	}
	path := fmt.Sprintf("/lists/%s/members/%s/tags", c.audienceID, subscriberHash(email))
	return c.do(ctx, http.MethodPost, path, tagUpdate{Tags: []tagState{{Name: tag, Status: "active"}}}, nil)
}

// apiError is MailChimp's problem-detail error body.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// do executes one API request with basic auth and decodes the response
// into out when provided.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return fmt.Errorf("mailer: marshal request: %w", errMarshal)
		}
		reader = bytes.NewReader(raw)
	}

	req, errRequest := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if errRequest != nil {
		return fmt.Errorf("mailer: build request: %w", errRequest)
	}
	req.SetBasicAuth("anystring", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("mailer: %s %s: %w", method, path, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var problem apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &problem)
		if problem.Title != "" {
			return fmt.Errorf("mailer: %s %s: %s (%s)", method, path, problem.Title, problem.Detail)
		}
		return fmt.Errorf("mailer: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if errDecode := json.NewDecoder(resp.Body).Decode(out); errDecode != nil {
			return fmt.Errorf("mailer: decode response: %w", errDecode)
		}
	}
	return nil
}
