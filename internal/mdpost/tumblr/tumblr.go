package tumblr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/blacktop/mdpost/internal/logutil"
	"github.com/blacktop/mdpost/internal/mdpost"
	"github.com/dghubble/oauth1"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	EnvConsumerKey      = "TUMBLR_CONSUMER_KEY"
	EnvConsumerSecret   = "TUMBLR_CONSUMER_SECRET"
	EnvOAuthToken       = "TUMBLR_OAUTH_TOKEN"
	EnvOAuthTokenSecret = "TUMBLR_OAUTH_TOKEN_SECRET"
	EnvBlogName         = "TUMBLR_BLOG_NAME"
	EnvAPIURL           = "TUMBLR_API_URL"

	DefaultAPIURL = "https://api.tumblr.com/v2"

	providerName   = "tumblr"
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Config captures the OAuth 1.0a credentials and the target blog.
type Config struct {
	ConsumerKey      string
	ConsumerSecret   string
	OAuthToken       string
	OAuthTokenSecret string
	BlogName         string
	APIURL           string
}

// Validate checks the optional settings that are not covered by the
// required-variable check.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, validation.Required, is.RequestURL),
	)
}

// Client implements mdpost.Publisher for Tumblr.
type Client struct {
	http    *http.Client
	baseURL string
	blog    string
}

var _ mdpost.Publisher = (*Client)(nil)

// LoadConfigFromEnv reads the Tumblr configuration. Every missing required
// variable is reported in a single mdpost.MissingEnvError.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		ConsumerKey:      strings.TrimSpace(os.Getenv(EnvConsumerKey)),
		ConsumerSecret:   strings.TrimSpace(os.Getenv(EnvConsumerSecret)),
		OAuthToken:       strings.TrimSpace(os.Getenv(EnvOAuthToken)),
		OAuthTokenSecret: strings.TrimSpace(os.Getenv(EnvOAuthTokenSecret)),
		BlogName:         strings.TrimSpace(os.Getenv(EnvBlogName)),
		APIURL:           strings.TrimSpace(os.Getenv(EnvAPIURL)),
	}

	var missing []string
	if cfg.ConsumerKey == "" {
		missing = append(missing, EnvConsumerKey)
	}
	if cfg.ConsumerSecret == "" {
		missing = append(missing, EnvConsumerSecret)
	}
	if cfg.OAuthToken == "" {
		missing = append(missing, EnvOAuthToken)
	}
	if cfg.OAuthTokenSecret == "" {
		missing = append(missing, EnvOAuthTokenSecret)
	}
	if cfg.BlogName == "" {
		missing = append(missing, EnvBlogName)
	}

	if len(missing) > 0 {
		return Config{}, mdpost.MissingEnvError{Provider: providerName, Variables: missing}
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s configuration: %w", providerName, err)
	}

	return cfg, nil
}

// New constructs a Tumblr publisher that signs requests with OAuth 1.0a.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s configuration: %w", providerName, err)
	}

	token := oauth1.NewToken(cfg.OAuthToken, cfg.OAuthTokenSecret)
	httpClient := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).Client(ctx, token)
	httpClient.Timeout = requestTimeout

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		blog:    blogIdentifier(cfg.BlogName),
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

// Blog returns the blog identifier posts are created on.
func (c *Client) Blog() string { return c.blog }

// Verify confirms the credentials and returns the authenticated user name.
func (c *Client) Verify(ctx context.Context) (string, error) {
	var info struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/info", nil, &info); err != nil {
		return "", fmt.Errorf("verify credentials: %w", err)
	}
	if info.User.Name == "" {
		return "", fmt.Errorf("verify credentials: %w", errMalformed("user info missing name"))
	}
	logutil.Debugf("authenticated as %s", info.User.Name)
	return info.User.Name, nil
}

// Publish creates a text post from the payload.
func (c *Client) Publish(ctx context.Context, payload mdpost.Payload) (mdpost.Result, error) {
	form := url.Values{}
	form.Set("type", payload.Type)
	form.Set("format", payload.Format)
	if payload.State != "" {
		form.Set("state", payload.State)
	}
	if payload.Title != "" {
		form.Set("title", payload.Title)
	}
	form.Set("body", payload.Body)
	if len(payload.Tags) > 0 {
		// The API takes one comma-separated field; the slice keeps each tag whole.
		form.Set("tags", strings.Join(payload.Tags, ","))
	}

	logutil.Debugf("creating post: blog=%s title=%q tags=%d body_len=%d", c.blog, payload.Title, len(payload.Tags), len(payload.Body))

	var created struct {
		ID       json.Number `json:"id"`
		IDString string      `json:"id_string"`
	}
	if err := c.do(ctx, http.MethodPost, "/blog/"+url.PathEscape(c.blog)+"/post", form, &created); err != nil {
		return mdpost.Result{}, fmt.Errorf("create post: %w", err)
	}

	id := created.IDString
	if id == "" {
		id = created.ID.String()
	}
	if id == "" {
		return mdpost.Result{}, fmt.Errorf("create post: %w", errMalformed("response missing post id"))
	}
	logutil.Debugf("post created: id=%s", id)

	return mdpost.Result{ID: id, URL: PostURL(c.blog, id)}, nil
}

// PostURL derives the public URL of a post.
func PostURL(blog, id string) string {
	return fmt.Sprintf("https://%s/post/%s", blogIdentifier(blog), id)
}

// blogIdentifier accepts either a short blog name or a hostname and returns
// the hostname form.
func blogIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.TrimRight(name, "/")
	if name != "" && !strings.Contains(name, ".") {
		name += ".tumblr.com"
	}
	return name
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mdpost/1")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	return decodeEnvelope(resp.StatusCode, data, out)
}

// envelope is the wrapper every Tumblr v2 response uses. On failure the
// response member is an empty array, so it is decoded lazily.
type envelope struct {
	Meta struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`
	Errors   []struct {
		Title  string `json:"title"`
		Code   int    `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func decodeEnvelope(status int, data []byte, out any) error {
	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if status < 200 || status > 299 || len(env.Errors) > 0 {
		apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}
		if decodeErr == nil {
			if env.Meta.Msg != "" {
				apiErr.Message = env.Meta.Msg
			}
			for _, e := range env.Errors {
				switch {
				case e.Detail != "":
					apiErr.Details = append(apiErr.Details, e.Detail)
				case e.Title != "":
					apiErr.Details = append(apiErr.Details, e.Title)
				}
			}
		} else if text := strings.TrimSpace(string(data)); text != "" {
			apiErr.Details = append(apiErr.Details, text)
		}
		return apiErr
	}

	if decodeErr != nil {
		return errMalformed(decodeErr.Error())
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return errMalformed("response member missing")
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return errMalformed(err.Error())
	}
	return nil
}

// APIError is returned when Tumblr rejects a request.
type APIError struct {
	StatusCode int
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("tumblr API error (%d %s)", e.StatusCode, e.Message)
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return msg
}

// ErrMalformedResponse is wrapped by errors for responses that could not be
// understood.
var ErrMalformedResponse = errors.New("malformed response")

func errMalformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, reason)
}
