package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrNotFound is returned when the named parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// ProviderSettings are the messages-provider values kept in Parameter Store.
// Empty fields were not set there.
type ProviderSettings struct {
	MessagesURL string
	Token       string
}

// tokenPayload is the JSON shape accepted for the stored bearer token.
type tokenPayload struct {
	Token string `json:"token"`
}

// LoadProviderSettings reads <prefix>/messages_url and
// <prefix>/messages_token. Either may be absent. The token is stored as
// plain text or as {"token": "..."}.
func LoadProviderSettings(ctx context.Context, g Getter, prefix string) (ProviderSettings, error) {
	if g == nil {
		return ProviderSettings{}, errors.New("paramstore: getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ProviderSettings{}, errors.New("paramstore: parameter prefix must not be empty")
	}

	var s ProviderSettings
	url, err := optional(ctx, g, prefix+"/messages_url")
	if err != nil {
		return ProviderSettings{}, err
	}
	s.MessagesURL = strings.TrimSpace(url)

	raw, err := optional(ctx, g, prefix+"/messages_token")
	if err != nil {
		return ProviderSettings{}, err
	}
	s.Token, err = parseToken(raw)
	if err != nil {
		return ProviderSettings{}, err
	}
	return s, nil
}

func optional(ctx context.Context, g Getter, name string) (string, error) {
	v, err := g.GetParameter(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func parseToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("paramstore: token is empty")
	}
	return tp.Token, nil
}
