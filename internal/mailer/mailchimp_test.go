package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{
		apiKey:     "key-us21",
		audienceID: "list-1",
		senderName: "AI Bug Hunter",
		baseURL:    server.URL,
		httpClient: server.Client(),
	}
}

func TestSubscriberHash(t *testing.T) {
	// MD5 of the lowercased address, per the MailChimp member key rules.
	if got := subscriberHash("User@Example.COM"); got != subscriberHash("user@example.com") {
		t.Fatalf("hash differs by case: %q", got)
	}
	if got := subscriberHash("user@example.com"); len(got) != 32 {
		t.Fatalf("hash length = %d, want 32 hex chars", len(got))
	}
}

func TestAddToAudience_UpsertsMember(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody memberUpsert
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	})

	err := client.AddToAudience(context.Background(), "new@example.com", "Ada Lovelace", "free", "website", "welcome_email_needed")
	if err != nil {
		t.Fatalf("AddToAudience: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("method = %s, want PUT upsert", gotMethod)
	}
	wantPath := "/lists/list-1/members/" + subscriberHash("new@example.com")
	if gotPath != wantPath {
		t.Fatalf("path = %s, want %s", gotPath, wantPath)
	}
	if gotBody.StatusIfNew != "subscribed" {
		t.Fatalf("status_if_new = %q", gotBody.StatusIfNew)
	}
	if gotBody.MergeFields["FNAME"] != "Ada" || gotBody.MergeFields["LNAME"] != "Lovelace" {
		t.Fatalf("merge fields = %v", gotBody.MergeFields)
	}
	if gotBody.MergeFields["PLAN"] != "FREE" || gotBody.MergeFields["SOURCE"] != "WEBSITE" {
		t.Fatalf("merge fields = %v", gotBody.MergeFields)
	}
	if gotBody.MergeFields["SIGNUP"] != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("SIGNUP = %q", gotBody.MergeFields["SIGNUP"])
	}
	wantTags := map[string]bool{"plan_free": true, "source_website": true, "new_user": true, "welcome_email_needed": true}
	for _, tag := range gotBody.Tags {
		delete(wantTags, tag)
	}
	if len(wantTags) != 0 {
		t.Fatalf("missing tags: %v", wantTags)
	}
}

func TestAddToAudience_ErrorSurfacesProblemDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Invalid Resource","detail":"The resource failed validation","status":400}`))
	})

	err := client.AddToAudience(context.Background(), "bad@example.com", "", "free", "website")
	if err == nil {
		t.Fatal("API error not surfaced")
	}
}

func TestSendTrialExpired_TagsMember(t *testing.T) {
	var gotPath string
	var gotBody tagUpdate
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	user := &models.User{Email: "trial@example.com"}
	if err := client.SendTrialExpired(context.Background(), user); err != nil {
		t.Fatalf("SendTrialExpired: %v", err)
	}
	wantPath := "/lists/list-1/members/" + subscriberHash("trial@example.com") + "/tags"
	if gotPath != wantPath {
		t.Fatalf("path = %s, want %s", gotPath, wantPath)
	}
	if len(gotBody.Tags) != 1 || gotBody.Tags[0].Name != "trial_expired" || gotBody.Tags[0].Status != "active" {
		t.Fatalf("tags = %+v", gotBody.Tags)
	}
}

func TestSendSubscriptionConfirmation(t *testing.T) {
	var gotBody memberUpsert
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{}`))
	})

	user := &models.User{Email: "pro@example.com", DisplayName: "Pro User"}
	plan, err := plans.Get(models.TierPro)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if errSend := client.SendSubscriptionConfirmation(context.Background(), user, plan); errSend != nil {
		t.Fatalf("SendSubscriptionConfirmation: %v", errSend)
	}
	if gotBody.MergeFields["PLAN"] != "PRO" {
		t.Fatalf("PLAN = %q", gotBody.MergeFields["PLAN"])
	}
}

func TestDisabledClientIsNoOp(t *testing.T) {
	client := New(config.MailchimpConfig{})
	if client.Enabled() {
		t.Fatal("client without API key reports enabled")
	}

	user := &models.User{Email: "x@example.com"}
	if err := client.SendWelcome(context.Background(), user); err != nil {
		t.Fatalf("disabled SendWelcome: %v", err)
	}
	if err := client.SendTrialExpired(context.Background(), user); err != nil {
		t.Fatalf("disabled SendTrialExpired: %v", err)
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("disabled Ping should error")
	}
}

func TestNew_DerivesBaseURL(t *testing.T) {
	client := New(config.MailchimpConfig{APIKey: "abc-us21", ServerPrefix: "us21"})
	if client.baseURL != "https://us21.api.mailchimp.com/3.0" {
		t.Fatalf("base URL = %q", client.baseURL)
	}
	if !client.Enabled() {
		t.Fatal("configured client reports disabled")
	}
}
