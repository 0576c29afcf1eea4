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
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

const (
	// speakingPulse is how long a participant's speaking flag stays
	// set after an activity event. The pulse is non-renewing.
	speakingPulse = 2 * time.Second
	// dominantIdle is how long the dominant-speaker highlight survives
	// without further activity from anyone.
	dominantIdle = 5 * time.Second

	dominantTimerKey = "dominant"
)

// MediaSession is the single authoritative bridge between the vendor
// room service and the state store. It owns the room lifecycle, local
// media publication, remote subscriptions, and speaker tracking. All
// store writes triggered by service events flow through its single
// dispatch goroutine.
type MediaSession struct {
	store    *StateStore
	provider RoomServiceProvider
	tokens   TokenSource
	media    MediaProvider
	devices  *DeviceManager
	clock    clock.Clock

	moderator  bool
	connecting atomic.Bool

	mu            sync.Mutex
	svc           RoomService
	localAudio    LocalTrack
	localVideo    LocalTrack
	selfPublished bool
	roomID        string
	userName      string

	activityMu sync.Mutex
	activity   map[string]struct{}

	speaking *timerSet
	dominant *timerSet
	screen   *ScreenShareCoordinator
}

type SessionOption func(*MediaSession)

// WithSessionClock substitutes the wall clock behind the speaker
// timers, for tests.
func WithSessionClock(c clock.Clock) SessionOption {
	return func(s *MediaSession) {
		s.clock = c
	}
}

// WithDeviceManager lets the session honor the manager's selected
// capture devices when acquiring tracks.
func WithDeviceManager(m *DeviceManager) SessionOption {
	return func(s *MediaSession) {
		s.devices = m
	}
}

// AsModerator requests a moderator token on connect.
func AsModerator() SessionOption {
	return func(s *MediaSession) {
		s.moderator = true
	}
}

func NewMediaSession(store *StateStore, provider RoomServiceProvider, tokens TokenSource, media MediaProvider, opts ...SessionOption) *MediaSession {
	s := &MediaSession{
		store:    store,
		provider: provider,
		tokens:   tokens,
		media:    media,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.speaking = newTimerSet(s.clock)
	s.dominant = newTimerSet(s.clock)
	s.screen = newScreenShareCoordinator(s)
	return s
}

func (s *MediaSession) Store() *StateStore {
	return s.store
}

func (s *MediaSession) ScreenShare() *ScreenShareCoordinator {
	return s.screen
}

// Connect joins the named room: fetches a token, initializes the room
// service, performs the handshake, acquires and publishes local media,
// and seeds the local participant row. Camera or microphone failure is
// not fatal; the session joins with whichever tracks succeeded. Any
// transport failure tears the partial session down before returning.
// Calling Connect while already connected is a logged no-op;
// reconnecting requires an explicit Disconnect first.
func (s *MediaSession) Connect(ctx context.Context, roomID, userName string) error {
	if !s.connecting.CompareAndSwap(false, true) {
		return ErrConnectInProgress
	}
	defer s.connecting.Store(false)

	s.mu.Lock()
	if s.svc != nil {
		s.mu.Unlock()
		logger.Info("connect called while already connected", "room", roomID)
		return nil
	}
	s.mu.Unlock()

	s.store.SetConnectionState(ConnectionConnecting)

	token, err := s.tokens.Token(ctx, roomID, userName, s.moderator)
	if err != nil {
		s.failConnect(err)
		return err
	}

	svc, err := s.provider.Initialize(ctx, roomID, token)
	if err != nil {
		s.failConnect(err)
		return err
	}
	if err := svc.Connect(ctx); err != nil {
		// no partially initialized session may be retained
		_ = svc.Disconnect()
		s.failConnect(err)
		return err
	}

	audio, video := s.acquireUserMedia(ctx)

	local := Participant{
		ID:         LocalID,
		Name:       userName,
		IsHost:     s.moderator,
		IsMuted:    audio == nil,
		IsVideoOff: video == nil,
		JoinedAt:   s.clock.Now(),
		AudioTrack: audio,
		VideoTrack: video,
	}

	selfPublished := false
	if audio != nil || video != nil {
		if err := svc.AddStream(ctx, StreamKeySelf, localTracks(audio, video)); err != nil {
			// transport is up; degrade to media-less attendance
			logger.Error(&PublishError{Key: StreamKeySelf, Err: err}, "continuing without local media")
			if audio != nil {
				audio.Stop()
			}
			if video != nil {
				video.Stop()
			}
			audio, video = nil, nil
			local.AudioTrack, local.VideoTrack = nil, nil
			local.IsMuted, local.IsVideoOff = true, true
		} else {
			selfPublished = true
		}
	}

	s.mu.Lock()
	s.svc = svc
	s.localAudio = audio
	s.localVideo = video
	s.selfPublished = selfPublished
	s.roomID = roomID
	s.userName = userName
	s.mu.Unlock()

	s.store.SetRoom(Room{ID: roomID, Name: roomID, CreatedAt: s.clock.Now()})
	s.store.SetLocalParticipant(local)

	go s.dispatchLoop(svc.Events())
	return nil
}

func (s *MediaSession) failConnect(err error) {
	logger.Error(err, "connect failed")
	s.store.SetConnectionState(ConnectionFailed)
}

// acquireUserMedia requests the microphone and camera concurrently.
// Each side tolerates failure on its own; denial of one device must
// not block the other.
func (s *MediaSession) acquireUserMedia(ctx context.Context) (audio, video LocalTrack) {
	var g errgroup.Group
	g.Go(func() error {
		um, err := s.media.GetUserMedia(ctx, MediaConstraints{
			Audio:         true,
			AudioDeviceID: s.selectedDevice(DeviceKindAudioInput),
		})
		if err != nil {
			logger.Error(classifyMediaError(TrackKindAudio, err), "microphone unavailable, joining muted")
			return nil
		}
		audio = um.AudioTrack
		return nil
	})
	g.Go(func() error {
		um, err := s.media.GetUserMedia(ctx, MediaConstraints{
			Video:         true,
			VideoDeviceID: s.selectedDevice(DeviceKindVideoInput),
		})
		if err != nil {
			logger.Error(classifyMediaError(TrackKindVideo, err), "camera unavailable, joining with video off")
			return nil
		}
		video = um.VideoTrack
		return nil
	})
	_ = g.Wait()
	return audio, video
}

func (s *MediaSession) selectedDevice(kind DeviceKind) string {
	if s.devices == nil {
		return ""
	}
	switch kind {
	case DeviceKindAudioInput:
		return s.devices.AudioInputID()
	case DeviceKindVideoInput:
		return s.devices.VideoInputID()
	}
	return ""
}

// Disconnect stops all locally owned tracks, tears down the room
// service session, and resets the store to its pristine state.
// Idempotent.
func (s *MediaSession) Disconnect() {
	s.mu.Lock()
	svc := s.svc
	audio, video := s.localAudio, s.localVideo
	s.svc = nil
	s.localAudio, s.localVideo = nil, nil
	s.selfPublished = false
	s.mu.Unlock()

	if svc == nil {
		return
	}

	s.screen.release()
	if audio != nil {
		audio.Stop()
	}
	if video != nil {
		video.Stop()
	}

	if err := svc.Disconnect(); err != nil {
		logger.Error(err, "error tearing down room service")
	}

	s.speaking.StopAll()
	s.dominant.StopAll()
	s.activityMu.Lock()
	s.activity = nil
	s.activityMu.Unlock()

	s.store.Reset()
}

func (s *MediaSession) service() RoomService {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc
}

// ToggleAudio disables or enables the microphone. Disabling stops the
// hardware track outright rather than muting at the transport layer;
// enabling acquires a fresh track and updates the publication in
// place. The store flag and the publication change together. Capture
// can block on a permission prompt, so s.mu is released while it is in
// flight; the event dispatch goroutine must stay responsive throughout.
func (s *MediaSession) ToggleAudio(ctx context.Context) error {
	s.mu.Lock()
	if s.svc == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}

	if s.localAudio != nil {
		track := s.localAudio
		s.localAudio = nil
		track.Stop()
		s.store.UpdateLocalParticipant(func(p *Participant) {
			p.IsMuted = true
			p.AudioTrack = nil
		})
		err := s.syncSelfStream(ctx)
		s.mu.Unlock()
		return err
	}
	deviceID := s.selectedDevice(DeviceKindAudioInput)
	s.mu.Unlock()

	um, err := s.media.GetUserMedia(ctx, MediaConstraints{
		Audio:         true,
		AudioDeviceID: deviceID,
	})
	if err != nil {
		return classifyMediaError(TrackKindAudio, err)
	}
	if um.AudioTrack == nil {
		return &MediaAcquisitionError{Kind: TrackKindAudio, Err: ErrDeviceNotFound}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc == nil {
		um.AudioTrack.Stop()
		return ErrNotConnected
	}
	if s.localAudio != nil {
		// a concurrent enable won the race while capture was in flight
		um.AudioTrack.Stop()
		return nil
	}
	s.localAudio = um.AudioTrack
	s.store.UpdateLocalParticipant(func(p *Participant) {
		p.IsMuted = false
		p.AudioTrack = um.AudioTrack
	})
	if err := s.syncSelfStream(ctx); err != nil {
		// back out: the store must not show unmuted with nothing on
		// the wire
		um.AudioTrack.Stop()
		s.localAudio = nil
		s.store.UpdateLocalParticipant(func(p *Participant) {
			p.IsMuted = true
			p.AudioTrack = nil
		})
		return err
	}
	return nil
}

// ToggleVideo is the camera counterpart of ToggleAudio; the two are
// fully independent.
func (s *MediaSession) ToggleVideo(ctx context.Context) error {
	s.mu.Lock()
	if s.svc == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}

	if s.localVideo != nil {
		track := s.localVideo
		s.localVideo = nil
		track.Stop()
		s.store.UpdateLocalParticipant(func(p *Participant) {
			p.IsVideoOff = true
			p.VideoTrack = nil
		})
		err := s.syncSelfStream(ctx)
		s.mu.Unlock()
		return err
	}
	deviceID := s.selectedDevice(DeviceKindVideoInput)
	s.mu.Unlock()

	um, err := s.media.GetUserMedia(ctx, MediaConstraints{
		Video:         true,
		VideoDeviceID: deviceID,
	})
	if err != nil {
		return classifyMediaError(TrackKindVideo, err)
	}
	if um.VideoTrack == nil {
		return &MediaAcquisitionError{Kind: TrackKindVideo, Err: ErrDeviceNotFound}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc == nil {
		um.VideoTrack.Stop()
		return ErrNotConnected
	}
	if s.localVideo != nil {
		um.VideoTrack.Stop()
		return nil
	}
	s.localVideo = um.VideoTrack
	s.store.UpdateLocalParticipant(func(p *Participant) {
		p.IsVideoOff = false
		p.VideoTrack = um.VideoTrack
	})
	if err := s.syncSelfStream(ctx); err != nil {
		um.VideoTrack.Stop()
		s.localVideo = nil
		s.store.UpdateLocalParticipant(func(p *Participant) {
			p.IsVideoOff = true
			p.VideoTrack = nil
		})
		return err
	}
	return nil
}

// syncSelfStream reconciles the published self stream with the current
// local tracks. Callers must hold s.mu.
func (s *MediaSession) syncSelfStream(ctx context.Context) error {
	tracks := localTracks(s.localAudio, s.localVideo)
	var err error
	switch {
	case !s.selfPublished && len(tracks) > 0:
		if err = s.svc.AddStream(ctx, StreamKeySelf, tracks); err == nil {
			s.selfPublished = true
		}
	case s.selfPublished && len(tracks) == 0:
		if err = s.svc.RemoveStream(ctx, StreamKeySelf); err == nil {
			s.selfPublished = false
		}
	case s.selfPublished:
		err = s.svc.UpdateStream(ctx, StreamKeySelf, tracks)
	}
	if err != nil {
		return &PublishError{Key: StreamKeySelf, Err: err}
	}
	return nil
}

// SwitchAudioInput moves the microphone to another capture device. A
// live track is stopped before the replacement is acquired, so two
// captures for the same slot never coexist. With no live track the
// selection simply takes effect on the next enable.
func (s *MediaSession) SwitchAudioInput(ctx context.Context, deviceID string) error {
	if s.devices != nil {
		s.devices.SelectAudioInput(deviceID)
	}
	s.mu.Lock()
	if s.svc == nil || s.localAudio == nil {
		s.mu.Unlock()
		return nil
	}

	old := s.localAudio
	s.localAudio = nil
	old.Stop()
	s.mu.Unlock()

	// capture may block on a prompt; the dispatch goroutine needs s.mu
	um, err := s.media.GetUserMedia(ctx, MediaConstraints{Audio: true, AudioDeviceID: deviceID})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc == nil {
		if err == nil && um.AudioTrack != nil {
			um.AudioTrack.Stop()
		}
		return ErrNotConnected
	}
	if err != nil || um.AudioTrack == nil {
		s.store.UpdateLocalParticipant(func(p *Participant) {
			p.IsMuted = true
			p.AudioTrack = nil
		})
		if syncErr := s.syncSelfStream(ctx); syncErr != nil {
			logger.Error(syncErr, "could not update publication after device switch failure")
		}
		if err == nil {
			err = ErrDeviceNotFound
		}
		return classifyMediaError(TrackKindAudio, err)
	}

	s.localAudio = um.AudioTrack
	s.store.UpdateLocalParticipant(func(p *Participant) {
		p.AudioTrack = um.AudioTrack
	})
	return s.syncSelfStream(ctx)
}

// SwitchVideoInput is the camera counterpart of SwitchAudioInput.
func (s *MediaSession) SwitchVideoInput(ctx context.Context, deviceID string) error {
	if s.devices != nil {
		s.devices.SelectVideoInput(deviceID)
	}
	s.mu.Lock()
	if s.svc == nil || s.localVideo == nil {
		s.mu.Unlock()
		return nil
	}

	old := s.localVideo
	s.localVideo = nil
	old.Stop()
	s.mu.Unlock()

	um, err := s.media.GetUserMedia(ctx, MediaConstraints{Video: true, VideoDeviceID: deviceID})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc == nil {
		if err == nil && um.VideoTrack != nil {
			um.VideoTrack.Stop()
		}
		return ErrNotConnected
	}
	if err != nil || um.VideoTrack == nil {
		s.store.UpdateLocalParticipant(func(p *Participant) {
			p.IsVideoOff = true
			p.VideoTrack = nil
		})
		if syncErr := s.syncSelfStream(ctx); syncErr != nil {
			logger.Error(syncErr, "could not update publication after device switch failure")
		}
		if err == nil {
			err = ErrDeviceNotFound
		}
		return classifyMediaError(TrackKindVideo, err)
	}

	s.localVideo = um.VideoTrack
	s.store.UpdateLocalParticipant(func(p *Participant) {
		p.VideoTrack = um.VideoTrack
	})
	return s.syncSelfStream(ctx)
}

// StartScreenShare and StopScreenShare are conveniences over the
// screen-share coordinator.
func (s *MediaSession) StartScreenShare(ctx context.Context, withAudio bool) error {
	return s.screen.Start(ctx, withAudio)
}

func (s *MediaSession) StopScreenShare(ctx context.Context) error {
	return s.screen.Stop(ctx)
}

// RaiseHand and LowerHand toggle the local hand-raise flag.
func (s *MediaSession) RaiseHand() {
	s.store.RaiseHand(LocalID)
}

func (s *MediaSession) LowerHand() {
	s.store.LowerHand(LocalID)
}

// React records an ephemeral emoji reaction for the local participant.
func (s *MediaSession) React(emoji string) {
	s.store.AddReaction(LocalID, emoji)
}

// RecentlyActive reports the ids of participants that have produced
// audio activity this session, including the local sentinel id.
func (s *MediaSession) RecentlyActive() []string {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	out := make([]string, 0, len(s.activity))
	for id := range s.activity {
		out = append(out, id)
	}
	return out
}

func (s *MediaSession) markActive(id string) {
	s.activityMu.Lock()
	if s.activity == nil {
		s.activity = make(map[string]struct{})
	}
	s.activity[id] = struct{}{}
	s.activityMu.Unlock()
}

// dispatchLoop is the session's single event consumer. Handler errors
// are logged and never break the loop: one malformed event must not
// take down processing of subsequent events.
func (s *MediaSession) dispatchLoop(events <-chan RoomEvent) {
	for ev := range events {
		if err := s.dispatch(ev); err != nil {
			logger.Error(err, "room event handling failed", "event", fmt.Sprintf("%T", ev))
		}
	}
}

func (s *MediaSession) dispatch(ev RoomEvent) error {
	switch ev := ev.(type) {
	case ConnectedEvent:
		return s.handleConnected(ev)
	case DisconnectedEvent:
		s.handleTransportFailure(ev)
	case ParticipantJoinedEvent:
		s.handleParticipantJoined(ev.Participant)
	case ParticipantLeftEvent:
		s.handleParticipantLeft(ev.ParticipantID)
	case StreamPublishedEvent:
		return s.handleStreamPublished(ev.Stream)
	case StreamUnpublishedEvent:
		s.handleStreamUnpublished(ev.Stream)
	case SubscriptionStartedEvent:
		s.handleSubscriptionStarted(ev.Stream)
	case AudioActivityEvent:
		s.handleAudioActivity(ev)
	case TrackEnabledEvent:
		s.handleTrackChange(ev.ParticipantID, ev.Kind, true)
	case TrackDisabledEvent:
		s.handleTrackChange(ev.ParticipantID, ev.Kind, false)
	}
	return nil
}

// handleConnected marks the session connected, seeds the activity set
// with the local id plus every known remote id, and subscribes to
// every stream already published before we joined. There is no replay
// mechanism; late joiners must catch up here.
func (s *MediaSession) handleConnected(ev ConnectedEvent) error {
	svc := s.service()
	if svc == nil {
		return nil
	}
	s.store.SetConnectionState(ConnectionConnected)

	s.activityMu.Lock()
	s.activity = map[string]struct{}{LocalID: {}}
	for _, pi := range ev.ExistingParticipants {
		if pi.ID != svc.LocalParticipantID() {
			s.activity[pi.ID] = struct{}{}
		}
	}
	s.activityMu.Unlock()

	for _, pi := range ev.ExistingParticipants {
		if pi.ID == svc.LocalParticipantID() {
			continue
		}
		s.store.UpsertParticipant(pi)
	}

	var firstErr error
	for _, st := range ev.ExistingStreams {
		if st.ParticipantID == svc.LocalParticipantID() {
			continue
		}
		if err := s.subscribe(svc, st); err != nil {
			logger.Error(err, "could not subscribe to existing stream")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// subscribe requests a remote stream. Subscribing on behalf of a
// participant we have not seen join yet is fine: the screen-share flag
// is queued and the row is populated by its own event later.
func (s *MediaSession) subscribe(svc RoomService, st StreamInfo) error {
	if err := svc.AddSubscription(context.Background(), st.ParticipantID, st.Key); err != nil {
		return &SubscriptionError{ParticipantID: st.ParticipantID, Key: st.Key, Err: err}
	}
	if st.Key.IsPresentation() {
		s.store.ApplyOrQueue(st.ParticipantID, nil, func(p *Participant) {
			p.IsScreenSharing = true
		})
	}
	return nil
}

func (s *MediaSession) handleParticipantJoined(info ParticipantInfo) {
	s.markActive(info.ID)
	s.store.UpsertParticipant(info)
	s.store.appendSystemMessage(displayName(info) + " joined the meeting")
}

func (s *MediaSession) handleParticipantLeft(id string) {
	p, known := s.store.Participant(id)

	// removal also clears a dangling pin or dominant-speaker
	// reference in the same store mutation
	removed := s.store.RemoveParticipant(id)
	s.speaking.Cancel(id)

	s.activityMu.Lock()
	delete(s.activity, id)
	s.activityMu.Unlock()

	if removed && known {
		s.store.appendSystemMessage(p.Name + " left the meeting")
	}
}

func (s *MediaSession) handleStreamPublished(st StreamInfo) error {
	svc := s.service()
	if svc == nil || st.ParticipantID == svc.LocalParticipantID() {
		return nil
	}
	return s.subscribe(svc, st)
}

func (s *MediaSession) handleStreamUnpublished(st StreamInfo) {
	if st.Key.IsPresentation() {
		s.store.PatchParticipant(st.ParticipantID, func(p *Participant) {
			p.IsScreenSharing = false
			if p.ScreenTrack != nil {
				p.ScreenTrack.Stop()
				p.ScreenTrack = nil
			}
		})
		return
	}

	if s.store.DominantSpeakerID() == st.ParticipantID {
		s.dominant.Cancel(dominantTimerKey)
		s.store.ClearDominantSpeaker(st.ParticipantID)
	}
	s.store.PatchParticipant(st.ParticipantID, func(p *Participant) {
		if p.AudioTrack != nil {
			p.AudioTrack.Stop()
			p.AudioTrack = nil
		}
		if p.VideoTrack != nil {
			p.VideoTrack.Stop()
			p.VideoTrack = nil
		}
	})
}

// handleSubscriptionStarted fetches the now-readable media and
// attaches it to the participant row; this is the point at which a
// remote stream becomes renderable. Tracks for a participant that has
// not joined yet are queued rather than creating a malformed row.
func (s *MediaSession) handleSubscriptionStarted(st StreamInfo) {
	svc := s.service()
	if svc == nil {
		return
	}
	rs, ok := svc.ParticipantStream(st.ParticipantID, st.Key)
	if !ok {
		return
	}

	if st.Key.IsPresentation() {
		track := rs.VideoTrack
		if track == nil {
			return
		}
		s.store.ApplyOrQueue(st.ParticipantID, []Track{track}, func(p *Participant) {
			if p.ScreenTrack != nil && p.ScreenTrack != track {
				p.ScreenTrack.Stop()
			}
			p.ScreenTrack = track
			p.IsScreenSharing = true
		})
		return
	}

	audio, video := rs.AudioTrack, rs.VideoTrack
	var owned []Track
	if audio != nil {
		owned = append(owned, audio)
	}
	if video != nil {
		owned = append(owned, video)
	}
	s.store.ApplyOrQueue(st.ParticipantID, owned, func(p *Participant) {
		if audio != nil {
			if p.AudioTrack != nil && p.AudioTrack != audio {
				p.AudioTrack.Stop()
			}
			p.AudioTrack = audio
		}
		if video != nil {
			if p.VideoTrack != nil && p.VideoTrack != video {
				p.VideoTrack.Stop()
			}
			p.VideoTrack = video
		}
	})
}

// handleAudioActivity marks a remote participant as the dominant
// speaker and pulses its speaking flag. The two timers are separate:
// the pulse answers "is this mic active right now", the idle timer
// answers "who is the highlighted speaker". A pulse timer only ever
// clears its own participant's flag.
func (s *MediaSession) handleAudioActivity(ev AudioActivityEvent) {
	if ev.Key != StreamKeySelf {
		return
	}
	svc := s.service()
	if svc == nil || ev.ParticipantID == svc.LocalParticipantID() {
		return
	}

	id := ev.ParticipantID
	s.markActive(id)
	s.store.SetDominantSpeaker(id)
	s.store.PatchParticipant(id, func(p *Participant) {
		p.IsSpeaking = true
	})

	s.speaking.ScheduleOnce(id, speakingPulse, func() {
		s.store.PatchParticipant(id, func(p *Participant) {
			p.IsSpeaking = false
		})
	})
	s.dominant.Reschedule(dominantTimerKey, dominantIdle, func() {
		s.store.ClearDominantSpeaker(id)
	})
}

// handleTrackChange applies the network-level mute state, which
// outranks any locally optimistic flag. A change arriving before the
// participant's own join event is queued, like any other early
// mutation, and applied when the row appears.
func (s *MediaSession) handleTrackChange(id string, kind TrackKind, enabled bool) {
	patch := func(p *Participant) {
		switch kind {
		case TrackKindAudio:
			p.IsMuted = !enabled
		case TrackKindVideo:
			p.IsVideoOff = !enabled
		}
	}
	if svc := s.service(); svc != nil && id == svc.LocalParticipantID() {
		s.store.UpdateLocalParticipant(patch)
		return
	}
	s.store.ApplyOrQueue(id, nil, patch)
}

func (s *MediaSession) handleTransportFailure(ev DisconnectedEvent) {
	if ev.Resumable {
		logger.Info("transport interrupted, awaiting resume", "reason", ev.Reason)
		s.store.SetConnectionState(ConnectionReconnecting)
		return
	}
	logger.Info("transport failed", "reason", ev.Reason)
	s.store.SetConnectionState(ConnectionFailed)
}

func localTracks(tracks ...LocalTrack) []LocalTrack {
	out := make([]LocalTrack, 0, len(tracks))
	for _, t := range tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
