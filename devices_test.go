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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceManagerRequestPermissions(t *testing.T) {
	media := &fakeMediaProvider{
		devices: []DeviceInfo{
			{ID: "mic-1", Kind: DeviceKindAudioInput, Label: "Built-in mic"},
			{ID: "cam-1", Kind: DeviceKindVideoInput, Label: "Built-in camera"},
			{ID: "spk-1", Kind: DeviceKindAudioOutput, Label: "Speakers"},
		},
	}
	m := NewDeviceManager(media)
	require.False(t, m.HasPermission())

	require.NoError(t, m.RequestPermissions(context.Background()))
	require.True(t, m.HasPermission())

	// the probe stream exists only to trigger the prompt
	require.Equal(t, TrackStateEnded, media.lastAudio().ReadyState())

	require.Equal(t, "mic-1", m.AudioInputID())
	require.Equal(t, "cam-1", m.VideoInputID())
	require.Equal(t, "spk-1", m.AudioOutputID())
	require.Len(t, m.Devices(DeviceKindAudioInput), 1)
}

func TestDeviceManagerRefreshKeepsSelection(t *testing.T) {
	media := &fakeMediaProvider{
		devices: []DeviceInfo{
			{ID: "mic-1", Kind: DeviceKindAudioInput},
			{ID: "mic-2", Kind: DeviceKindAudioInput},
		},
	}
	m := NewDeviceManager(media)
	require.NoError(t, m.RefreshDevices(context.Background()))
	m.SelectAudioInput("mic-2")

	// the selected device survives a refresh
	require.NoError(t, m.RefreshDevices(context.Background()))
	require.Equal(t, "mic-2", m.AudioInputID())

	// unplugging it falls back to the first of the kind
	media.mu.Lock()
	media.devices = []DeviceInfo{{ID: "mic-1", Kind: DeviceKindAudioInput}}
	media.mu.Unlock()
	require.NoError(t, m.RefreshDevices(context.Background()))
	require.Equal(t, "mic-1", m.AudioInputID())
}

func TestDeviceManagerPermissionDenied(t *testing.T) {
	t.Run("microphone failure", func(t *testing.T) {
		media := &fakeMediaProvider{}
		media.audioErr = errNoSource
		m := NewDeviceManager(media)

		err := m.RequestPermissions(context.Background())
		var mediaErr *MediaAcquisitionError
		require.ErrorAs(t, err, &mediaErr)
		require.Equal(t, TrackKindAudio, mediaErr.Kind)
		require.ErrorIs(t, err, ErrDeviceNotFound)
		require.False(t, m.HasPermission())
	})

	t.Run("camera failure is attributed to the camera", func(t *testing.T) {
		media := &fakeMediaProvider{}
		media.videoErr = errors.New("NotAllowedError: camera blocked")
		m := NewDeviceManager(media)

		err := m.RequestPermissions(context.Background())
		var mediaErr *MediaAcquisitionError
		require.ErrorAs(t, err, &mediaErr)
		require.Equal(t, TrackKindVideo, mediaErr.Kind)
		require.ErrorIs(t, err, ErrPermissionDenied)

		// the audio-only retry used for attribution must not leave a
		// capture open
		require.Equal(t, TrackStateEnded, media.lastAudio().ReadyState())
	})
}
