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
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleLocalTrack is a LocalTrack fed by encoded media samples. It is
// the publishing primitive for headless participants: bots, recording
// injectors, and tests.
type SampleLocalTrack struct {
	rtpTrack *webrtc.TrackLocalStaticSample
	kind     TrackKind

	mu      sync.Mutex
	state   TrackState
	onEnded []func()
}

func NewSampleLocalTrack(c webrtc.RTPCodecCapability) (*SampleLocalTrack, error) {
	kind := TrackKindVideo
	if strings.HasPrefix(c.MimeType, "audio/") {
		kind = TrackKindAudio
	}
	rtpTrack, err := webrtc.NewTrackLocalStaticSample(c, uuid.NewString(), uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &SampleLocalTrack{
		rtpTrack: rtpTrack,
		kind:     kind,
		state:    TrackStateLive,
	}, nil
}

func (t *SampleLocalTrack) ID() string {
	return t.rtpTrack.ID()
}

func (t *SampleLocalTrack) Kind() TrackKind {
	return t.kind
}

func (t *SampleLocalTrack) ReadyState() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *SampleLocalTrack) RTPTrack() webrtc.TrackLocal {
	return t.rtpTrack
}

// WriteSample pushes one encoded sample to subscribers.
func (t *SampleLocalTrack) WriteSample(s media.Sample) error {
	if t.ReadyState() == TrackStateEnded {
		return ErrTrackEnded
	}
	return t.rtpTrack.WriteSample(s)
}

func (t *SampleLocalTrack) Stop() {
	t.mu.Lock()
	t.state = TrackStateEnded
	t.mu.Unlock()
}

func (t *SampleLocalTrack) OnEnded(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = append(t.onEnded, f)
}

// EndFromSource marks the track ended on behalf of the capture source
// and fires the OnEnded callbacks, mirroring a display capture the
// user terminated outside the application.
func (t *SampleLocalTrack) EndFromSource() {
	t.mu.Lock()
	if t.state == TrackStateEnded {
		t.mu.Unlock()
		return
	}
	t.state = TrackStateEnded
	callbacks := make([]func(), len(t.onEnded))
	copy(callbacks, t.onEnded)
	t.mu.Unlock()

	for _, f := range callbacks {
		f()
	}
}

var errNoSource = errors.New("NotFoundError: no media source configured")

// StaticMediaProvider is a MediaProvider built from caller-supplied
// track factories. Headless clients use it to publish file or
// synthetic media where a browser would capture devices.
type StaticMediaProvider struct {
	DeviceList []DeviceInfo

	NewAudioTrack func(ctx context.Context, deviceID string) (LocalTrack, error)
	NewVideoTrack func(ctx context.Context, deviceID string) (LocalTrack, error)
	NewDisplay    func(ctx context.Context, withAudio bool) (video LocalTrack, audio LocalTrack, err error)
}

func (p *StaticMediaProvider) EnumerateDevices(_ context.Context) ([]DeviceInfo, error) {
	devices := make([]DeviceInfo, len(p.DeviceList))
	copy(devices, p.DeviceList)
	return devices, nil
}

func (p *StaticMediaProvider) GetUserMedia(ctx context.Context, constraints MediaConstraints) (*UserMedia, error) {
	um := &UserMedia{}
	if constraints.Audio {
		if p.NewAudioTrack == nil {
			return nil, classifyMediaError(TrackKindAudio, errNoSource)
		}
		track, err := p.NewAudioTrack(ctx, constraints.AudioDeviceID)
		if err != nil {
			return nil, classifyMediaError(TrackKindAudio, err)
		}
		um.AudioTrack = track
	}
	if constraints.Video {
		if p.NewVideoTrack == nil {
			um.StopAll()
			return nil, classifyMediaError(TrackKindVideo, errNoSource)
		}
		track, err := p.NewVideoTrack(ctx, constraints.VideoDeviceID)
		if err != nil {
			um.StopAll()
			return nil, classifyMediaError(TrackKindVideo, err)
		}
		um.VideoTrack = track
	}
	return um, nil
}

func (p *StaticMediaProvider) GetDisplayMedia(ctx context.Context, withAudio bool) (*DisplayMedia, error) {
	if p.NewDisplay == nil {
		return nil, classifyMediaError(TrackKindVideo, errNoSource)
	}
	video, audio, err := p.NewDisplay(ctx, withAudio)
	if err != nil {
		return nil, classifyMediaError(TrackKindVideo, err)
	}
	return &DisplayMedia{VideoTrack: video, AudioTrack: audio}, nil
}
