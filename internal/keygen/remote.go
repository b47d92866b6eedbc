package keygen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const keyPairPath = "/xray/generate-reality-keys"

// RemoteSource asks a panel backend for a key pair.
type RemoteSource struct {
	client *resty.Client
}

// keyPairResponse accepts both the bare pair and the panel's
// {success, msg, data} envelope.
type keyPairResponse struct {
	KeyPair
	Success *bool    `json:"success,omitempty"`
	Msg     string   `json:"msg,omitempty"`
	Data    *KeyPair `json:"data,omitempty"`
}

func NewRemoteSource(baseURL string, timeout time.Duration, retries int, token string) *RemoteSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &RemoteSource{client: client}
}

func (s *RemoteSource) GenerateKeyPair(ctx context.Context) (KeyPair, error) {
	var out keyPairResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(keyPairPath)
	if err != nil {
		return KeyPair{}, &GenerationFailure{Source: "remote", Err: err}
	}
	if resp.IsError() {
		return KeyPair{}, &GenerationFailure{
			Source: "remote",
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	if out.Success != nil && !*out.Success {
		return KeyPair{}, &GenerationFailure{Source: "remote", Err: errors.New(out.Msg)}
	}

	kp := out.KeyPair
	if out.Data != nil {
		kp = *out.Data
	}
	if kp.PrivateKey == "" || kp.PublicKey == "" {
		return KeyPair{}, &GenerationFailure{Source: "remote", Err: errors.New("incomplete key pair")}
	}
	if !kp.Paired() {
		return KeyPair{}, &GenerationFailure{Source: "remote", Err: errors.New("public key does not match private key")}
	}
	return kp, nil
}
