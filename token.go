// Copyright 2026 VidConf, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vcsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TokenSource issues short-lived signed credentials authorizing a
// named user to join a named room.
type TokenSource interface {
	Token(ctx context.Context, roomName, userName string, moderator bool) (string, error)
}

// TokenClient fetches join tokens from the product's token endpoint.
type TokenClient struct {
	endpoint string
	client   *http.Client
}

type TokenClientOption func(*TokenClient)

func WithTokenHTTPClient(c *http.Client) TokenClientOption {
	return func(t *TokenClient) {
		t.client = c
	}
}

func NewTokenClient(endpoint string, opts ...TokenClientOption) *TokenClient {
	t := &TokenClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type tokenRequest struct {
	RoomName  string `json:"roomName"`
	UserName  string `json:"userName"`
	Moderator bool   `json:"moderator,omitempty"`
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Token requests a join token. A non-2xx status, success:false, or a
// payload missing the token field all surface as a TokenFetchError
// carrying the server-provided message when present.
func (t *TokenClient) Token(ctx context.Context, roomName, userName string, moderator bool) (string, error) {
	body, err := json.Marshal(tokenRequest{
		RoomName:  roomName,
		UserName:  userName,
		Moderator: moderator,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &TokenFetchError{Message: fmt.Sprintf("token endpoint unreachable: %v", err)}
	}
	defer resp.Body.Close()

	var payload tokenResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TokenFetchError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	if decodeErr != nil {
		return "", &TokenFetchError{StatusCode: resp.StatusCode, Message: "malformed token response"}
	}
	if !payload.Success || payload.Token == "" {
		return "", &TokenFetchError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	return payload.Token, nil
}
