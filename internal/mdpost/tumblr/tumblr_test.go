package tumblr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"

	"github.com/blacktop/mdpost/internal/mdpost"
)

func setAllEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConsumerKey, "ck")
	t.Setenv(EnvConsumerSecret, "cs")
	t.Setenv(EnvOAuthToken, "tok")
	t.Setenv(EnvOAuthTokenSecret, "toks")
	t.Setenv(EnvBlogName, "example")
	t.Setenv(EnvAPIURL, "")
}

func TestLoadConfigFromEnvMissing(t *testing.T) {
	required := []string{EnvConsumerKey, EnvConsumerSecret, EnvOAuthToken, EnvOAuthTokenSecret, EnvBlogName}
	for _, name := range required {
		t.Run(name, func(t *testing.T) {
			setAllEnv(t)
			t.Setenv(name, "")

			_, err := LoadConfigFromEnv()
			var missing mdpost.MissingEnvError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingEnvError, got %v", err)
			}
			if !slices.Equal(missing.Variables, []string{name}) {
				t.Fatalf("missing = %v, want [%s]", missing.Variables, name)
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	setAllEnv(t)
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.BlogName != "example" {
		t.Fatalf("BlogName = %q", cfg.BlogName)
	}
}

func TestLoadConfigFromEnvInvalidURL(t *testing.T) {
	setAllEnv(t)
	t.Setenv(EnvAPIURL, "not a url")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for invalid API URL")
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(context.Background(), Config{
		ConsumerKey:      "ck",
		ConsumerSecret:   "cs",
		OAuthToken:       "tok",
		OAuthTokenSecret: "toks",
		BlogName:         "example",
		APIURL:           srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestPublish(t *testing.T) {
	var form url.Values
	var path, auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"meta":{"status":201,"msg":"Created"},"response":{"id":1234567890123456789,"id_string":"1234567890123456789"}}`)
	})

	res, err := client.Publish(context.Background(), mdpost.Payload{
		Type:   "text",
		Format: "markdown",
		State:  mdpost.StateDraft,
		Title:  "Hello",
		Body:   "World",
		Tags:   []string{"golang", "cli tools"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if path != "/blog/example.tumblr.com/post" {
		t.Errorf("path = %q", path)
	}
	if !strings.HasPrefix(auth, "OAuth ") || !strings.Contains(auth, `oauth_consumer_key="ck"`) {
		t.Errorf("request not OAuth1 signed: %q", auth)
	}
	want := map[string]string{
		"type":   "text",
		"format": "markdown",
		"state":  "draft",
		"title":  "Hello",
		"body":   "World",
		"tags":   "golang,cli tools",
	}
	for key, value := range want {
		if got := form.Get(key); got != value {
			t.Errorf("form[%s] = %q, want %q", key, got, value)
		}
	}
	if res.ID != "1234567890123456789" {
		t.Errorf("ID = %q", res.ID)
	}
	if res.URL != "https://example.tumblr.com/post/1234567890123456789" {
		t.Errorf("URL = %q", res.URL)
	}
}

func TestPublishNumericIDOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"meta":{"status":201,"msg":"Created"},"response":{"id":42}}`)
	})
	res, err := client.Publish(context.Background(), mdpost.Payload{Type: "text", Body: "x"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.ID != "42" {
		t.Fatalf("ID = %q", res.ID)
	}
}

func TestPublishErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		apiErr    bool
		malformed bool
		contains  string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"meta":{"status":401,"msg":"Unauthorized"},"response":[],"errors":[{"title":"Unauthorized","code":1016,"detail":"Unable to authorize"}]}`,
			apiErr:   true,
			contains: "Unable to authorize",
		},
		{
			name:     "non json error",
			status:   http.StatusBadGateway,
			body:     `upstream down`,
			apiErr:   true,
			contains: "upstream down",
		},
		{
			name:      "not json",
			status:    http.StatusCreated,
			body:      `<html>`,
			malformed: true,
		},
		{
			name:      "missing id",
			status:    http.StatusCreated,
			body:      `{"meta":{"status":201,"msg":"Created"},"response":{}}`,
			malformed: true,
		},
		{
			name:      "missing response",
			status:    http.StatusOK,
			body:      `{"meta":{"status":200,"msg":"OK"}}`,
			malformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := client.Publish(context.Background(), mdpost.Payload{Type: "text", Body: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if got := errors.As(err, &apiErr); got != tt.apiErr {
				t.Fatalf("APIError = %t, want %t (%v)", got, tt.apiErr, err)
			}
			if apiErr != nil && apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if got := errors.Is(err, ErrMalformedResponse); got != tt.malformed {
				t.Fatalf("malformed = %t, want %t (%v)", got, tt.malformed, err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestPublishNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	apiURL := srv.URL
	srv.Close()

	client, err := New(context.Background(), Config{ConsumerKey: "ck", ConsumerSecret: "cs", OAuthToken: "t", OAuthTokenSecret: "s", BlogName: "example", APIURL: apiURL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Publish(context.Background(), mdpost.Payload{Type: "text", Body: "x"}); err == nil {
		t.Fatal("expected network error")
	}
}

func TestVerify(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/user/info" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"meta":{"status":200,"msg":"OK"},"response":{"user":{"name":"blacktop"}}}`)
	})
	name, err := client.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if name != "blacktop" {
		t.Fatalf("name = %q", name)
	}
	if client.Blog() != "example.tumblr.com" {
		t.Fatalf("Blog() = %q", client.Blog())
	}
}

func TestBlogIdentifier(t *testing.T) {
	tests := map[string]string{
		"example":                   "example.tumblr.com",
		"example.tumblr.com":        "example.tumblr.com",
		"https://blog.example.com/": "blog.example.com",
		"  spaced  ":                "spaced.tumblr.com",
	}
	for in, want := range tests {
		if got := blogIdentifier(in); got != want {
			t.Errorf("blogIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}
