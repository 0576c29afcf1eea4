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
	"sync"
)

type shareState int

const (
	shareIdle shareState = iota
	shareStarting
	shareActive
)

// ScreenShareCoordinator manages the presentation stream, whose
// lifecycle is independent of the camera and microphone. At most one
// share is active per session.
type ScreenShareCoordinator struct {
	session *MediaSession

	mu    sync.Mutex
	state shareState
	// gen is bumped every time a start begins or a stop cancels one,
	// so a Start that was cancelled while blocked in capture can tell
	// its claim is stale and unwind its own tracks.
	gen   uint64
	video LocalTrack
	audio LocalTrack
}

func newScreenShareCoordinator(s *MediaSession) *ScreenShareCoordinator {
	return &ScreenShareCoordinator{session: s}
}

// Start requests a display capture and publishes it under the
// presentation key. Starting while already sharing is a no-op. Ending
// the capture from the browser/OS chrome converges on the same
// cleanup path as Stop. A Stop that arrives while the capture prompt
// is still open cancels the start: the tracks are stopped as soon as
// they materialize and nothing is left published.
func (c *ScreenShareCoordinator) Start(ctx context.Context, withAudio bool) error {
	svc := c.session.service()
	if svc == nil {
		return ErrNotConnected
	}

	c.mu.Lock()
	if c.state != shareIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = shareStarting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	dm, err := c.session.media.GetDisplayMedia(ctx, withAudio)
	if err != nil {
		c.abort(gen)
		return classifyMediaError(TrackKindVideo, err)
	}
	if c.cancelled(gen) {
		stopDisplay(dm)
		return nil
	}

	if err := svc.AddStream(ctx, StreamKeyPresentation, localTracks(dm.VideoTrack, dm.AudioTrack)); err != nil {
		stopDisplay(dm)
		c.abort(gen)
		return &PublishError{Key: StreamKeyPresentation, Err: err}
	}

	c.mu.Lock()
	if c.gen != gen {
		// a Stop raced the publish; unwind unless a newer start has
		// since taken over the presentation slot
		superseded := c.state != shareIdle
		c.mu.Unlock()
		stopDisplay(dm)
		if !superseded {
			if err := svc.RemoveStream(ctx, StreamKeyPresentation); err != nil {
				logger.Error(err, "could not unpublish cancelled screen share")
			}
		}
		return nil
	}
	c.state = shareActive
	c.video = dm.VideoTrack
	c.audio = dm.AudioTrack
	c.mu.Unlock()

	dm.VideoTrack.OnEnded(func() {
		if err := c.Stop(context.Background()); err != nil {
			logger.Error(err, "screen share cleanup after capture ended failed")
		}
	})

	c.session.store.UpdateLocalParticipant(func(p *Participant) {
		p.IsScreenSharing = true
		p.ScreenTrack = dm.VideoTrack
	})
	return nil
}

// Stop ends the share: stops all presentation tracks, unpublishes the
// stream, and clears the local screen-sharing state. Stopping while a
// start is still acquiring its capture cancels that start. Idempotent.
func (c *ScreenShareCoordinator) Stop(ctx context.Context) error {
	video, audio, wasActive := c.take()
	if !wasActive {
		return nil
	}

	if video != nil {
		video.Stop()
	}
	if audio != nil {
		audio.Stop()
	}

	c.session.store.UpdateLocalParticipant(func(p *Participant) {
		p.IsScreenSharing = false
		p.ScreenTrack = nil
	})

	if svc := c.session.service(); svc != nil {
		if err := svc.RemoveStream(ctx, StreamKeyPresentation); err != nil {
			return &PublishError{Key: StreamKeyPresentation, Err: err}
		}
	}
	return nil
}

func (c *ScreenShareCoordinator) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == shareActive
}

// take atomically claims the active share, so concurrent stop paths
// (in-app button vs. native capture end) cannot both run cleanup. A
// start still in flight is cancelled by bumping the generation; it
// unwinds its own tracks when it resumes.
func (c *ScreenShareCoordinator) take() (video, audio LocalTrack, wasActive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case shareStarting:
		c.gen++
		c.state = shareIdle
		return nil, nil, false
	case shareIdle:
		return nil, nil, false
	}
	c.state = shareIdle
	video, audio = c.video, c.audio
	c.video, c.audio = nil, nil
	return video, audio, true
}

// abort releases the starting claim after a failed capture or publish,
// unless a stop already cancelled this start.
func (c *ScreenShareCoordinator) abort(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.state = shareIdle
	}
	c.mu.Unlock()
}

func (c *ScreenShareCoordinator) cancelled(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

// release stops any live capture without unpublishing, for session
// teardown where the room service is already going away.
func (c *ScreenShareCoordinator) release() {
	video, audio, wasActive := c.take()
	if !wasActive {
		return
	}
	if video != nil {
		video.Stop()
	}
	if audio != nil {
		audio.Stop()
	}
}

func stopDisplay(dm *DisplayMedia) {
	dm.VideoTrack.Stop()
	if dm.AudioTrack != nil {
		dm.AudioTrack.Stop()
	}
}
