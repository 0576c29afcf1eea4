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
	"io"
	"net/http"
	"time"
)

// RecordingUploader pushes a finished recording to object storage via
// the product API's presigned-PUT flow and registers the result.
type RecordingUploader struct {
	baseURL   string
	authToken string
	client    *http.Client
}

type RecordingUploaderOption func(*RecordingUploader)

func WithUploadAuthToken(token string) RecordingUploaderOption {
	return func(u *RecordingUploader) {
		u.authToken = token
	}
}

func WithUploadHTTPClient(h *http.Client) RecordingUploaderOption {
	return func(u *RecordingUploader) {
		u.client = h
	}
}

func NewRecordingUploader(baseURL string, opts ...RecordingUploaderOption) *RecordingUploader {
	u := &RecordingUploader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
}

type registerRequest struct {
	RoomID   string `json:"roomId"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Upload requests a presigned URL, PUTs the blob directly to storage,
// then registers the recording against the room. Returns the public
// URL of the stored object.
func (u *RecordingUploader) Upload(ctx context.Context, roomID, filename, contentType string, blob io.Reader) (string, error) {
	presigned, err := u.presign(ctx, filename, contentType)
	if err != nil {
		return "", err
	}

	if err := u.put(ctx, presigned.UploadURL, contentType, blob); err != nil {
		return "", err
	}

	if err := u.register(ctx, roomID, filename, presigned.PublicURL); err != nil {
		return "", err
	}
	return presigned.PublicURL, nil
}

func (u *RecordingUploader) presign(ctx context.Context, filename, contentType string) (*presignResponse, error) {
	body, err := json.Marshal(presignRequest{Filename: filename, ContentType: contentType})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/recordings/presign", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	u.setHeaders(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("presign failed with status %d", resp.StatusCode)
	}

	presigned := &presignResponse{}
	if err := json.NewDecoder(resp.Body).Decode(presigned); err != nil {
		return nil, err
	}
	if presigned.UploadURL == "" {
		return nil, fmt.Errorf("presign response missing upload url")
	}
	return presigned, nil
}

func (u *RecordingUploader) put(ctx context.Context, uploadURL, contentType string, blob io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, blob)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage upload failed with status %d", resp.StatusCode)
	}
	return nil
}

func (u *RecordingUploader) register(ctx context.Context, roomID, filename, publicURL string) error {
	body, err := json.Marshal(registerRequest{RoomID: roomID, Filename: filename, URL: publicURL})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/recordings", bytes.NewReader(body))
	if err != nil {
		return err
	}
	u.setHeaders(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("recording registration failed with status %d", resp.StatusCode)
	}
	return nil
}

func (u *RecordingUploader) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if u.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.authToken)
	}
}
