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
	"errors"
	"fmt"
)

var (
	ErrConnectInProgress = errors.New("connect already in progress")
	ErrNotConnected      = errors.New("not connected to a room")
	ErrConnectionTimeout = errors.New("could not connect after timeout")
	ErrPermissionDenied  = errors.New("camera or microphone permission was denied")
	ErrDeviceNotFound    = errors.New("no matching capture device was found")
	ErrCannotDialSignal  = errors.New("could not dial signal connection")
	ErrSignalClosed      = errors.New("signal connection is closed")
	ErrInvalidPin        = errors.New("pinned participant is not in the room")
	ErrTrackEnded        = errors.New("track has ended")
)

// TokenFetchError indicates the token endpoint was unreachable or
// rejected the join. The join is aborted; no session is left open.
type TokenFetchError struct {
	StatusCode int
	Message    string
}

func (e *TokenFetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("token request failed: %s", e.Message)
	}
	return fmt.Sprintf("token request failed with status %d", e.StatusCode)
}

// MediaAcquisitionError indicates a capture device could not be
// acquired. It is non-fatal to joining: the session proceeds with
// whichever tracks succeeded.
type MediaAcquisitionError struct {
	Kind TrackKind
	Err  error
}

func (e *MediaAcquisitionError) Error() string {
	return fmt.Sprintf("could not acquire %s track: %v", e.Kind, e.Err)
}

func (e *MediaAcquisitionError) Unwrap() error {
	return e.Err
}

// PublishError indicates the room service rejected a local stream
// operation. Publish failures during connect degrade the session to
// media-less attendance rather than failing the join.
type PublishError struct {
	Key StreamKey
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("could not publish stream %q: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// SubscriptionError indicates the room service rejected a subscription
// request for a remote stream.
type SubscriptionError struct {
	ParticipantID string
	Key           StreamKey
	Err           error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("could not subscribe to stream %q of %s: %v", e.Key, e.ParticipantID, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
