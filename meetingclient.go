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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MeetingInfo is the metadata the meeting service reports for a room.
// The session client does not enforce access rules itself; callers
// validate access before connecting.
type MeetingInfo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	IsPublic         bool   `json:"isPublic"`
	RequiresPassword bool   `json:"requiresPassword"`
	MaxParticipants  int    `json:"maxParticipants"`
	ParticipantCount int    `json:"participantCount"`
}

// MeetingClient reads meeting metadata from the product API.
type MeetingClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

type MeetingClientOption func(*MeetingClient)

func WithMeetingAuthToken(token string) MeetingClientOption {
	return func(c *MeetingClient) {
		c.authToken = token
	}
}

func WithMeetingHTTPClient(h *http.Client) MeetingClientOption {
	return func(c *MeetingClient) {
		c.client = h
	}
}

func NewMeetingClient(baseURL string, opts ...MeetingClientOption) *MeetingClient {
	c := &MeetingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MeetingClient) Meeting(ctx context.Context, roomID string) (*MeetingInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meetings/"+roomID, nil)
	if err != nil {
		return nil, err
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meeting lookup failed with status %d", resp.StatusCode)
	}

	info := &MeetingInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, err
	}
	return info, nil
}
