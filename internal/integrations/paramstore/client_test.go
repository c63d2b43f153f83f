package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
}

func (f *fakeAPI) GetParameter(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(`{"k":"v"}`),
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, `{"k":"v"}`, v)
}

func TestGetParameter_HappyPath_SecureString(t *testing.T) {
	typeStr := "SecureString"
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(`{"k":"v"}`), Type: types.ParameterType(typeStr),
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, `{"k":"v"}`, v)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	api := &fakeAPI{}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: &types.ParameterNotFound{Message: strPtr("nope")}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/aurora/messages_url")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "/aurora/messages_url")
}

type mapGetter map[string]string

func (m mapGetter) GetParameter(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

type failingGetter struct{ err error }

func (f failingGetter) GetParameter(context.Context, string) (string, error) {
	return "", f.err
}

func TestLoadProviderSettings(t *testing.T) {
	g := mapGetter{
		"/aurora/messages_url":   " https://example.test/messages ",
		"/aurora/messages_token": `{"token":"tok-json"}`,
	}
	s, err := LoadProviderSettings(context.Background(), g, "/aurora/")
	require.NoError(t, err)
	require.Equal(t, ProviderSettings{MessagesURL: "https://example.test/messages", Token: "tok-json"}, s)
}

func TestLoadProviderSettings_PlainTokenAndMissingURL(t *testing.T) {
	s, err := LoadProviderSettings(context.Background(), mapGetter{"/aurora/messages_token": "plain"}, "/aurora")
	require.NoError(t, err)
	require.Empty(t, s.MessagesURL)
	require.Equal(t, "plain", s.Token)
}

func TestLoadProviderSettings_NothingStored(t *testing.T) {
	s, err := LoadProviderSettings(context.Background(), mapGetter{}, "/aurora")
	require.NoError(t, err)
	require.Equal(t, ProviderSettings{}, s)
}

func TestLoadProviderSettings_Errors(t *testing.T) {
	_, err := LoadProviderSettings(context.Background(), nil, "/aurora")
	require.Error(t, err)

	_, err = LoadProviderSettings(context.Background(), mapGetter{}, " / ")
	require.Error(t, err)

	_, err = LoadProviderSettings(context.Background(), failingGetter{err: errors.New("throttled")}, "/aurora")
	require.ErrorContains(t, err, "throttled")

	_, err = LoadProviderSettings(context.Background(), mapGetter{"/aurora/messages_token": `{"token":""}`}, "/aurora")
	require.ErrorContains(t, err, "token is empty")

	_, err = LoadProviderSettings(context.Background(), mapGetter{"/aurora/messages_token": `{bad`}, "/aurora")
	require.ErrorContains(t, err, "unmarshal")
}
