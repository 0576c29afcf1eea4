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
	"strings"
	"sync"
	"time"

	"github.com/frostbyte73/core"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
	"go.uber.org/atomic"
)

const (
	eventQueueSize = 64

	// received audio levels are in -dBov, 0 loudest, 127 silence
	activeAudioLevel = 35

	// minimum spacing between activity events for one track, so a
	// steady talker does not flood the consumer
	audioActivityInterval = 500 * time.Millisecond
)

// EngineProvider creates engine-backed room services against a single
// media router deployment.
type EngineProvider struct {
	url string
}

func NewEngineProvider(url string) *EngineProvider {
	return &EngineProvider{url: url}
}

func (p *EngineProvider) Initialize(_ context.Context, roomID string, token string) (RoomService, error) {
	if p.url == "" {
		return nil, fmt.Errorf("engine provider requires a signal url")
	}
	return newRTCEngine(p.url, roomID, token), nil
}

type streamRef struct {
	participantID string
	key           StreamKey
}

// rtcEngine is the default RoomService: a websocket-signaled SFU
// client with a publisher/subscriber peer connection pair.
type rtcEngine struct {
	url    string
	roomID string
	token  string

	client     *SignalClient
	publisher  *PCTransport
	subscriber *PCTransport

	localID atomic.String
	closed  core.Fuse

	lock    sync.Mutex
	remote  map[streamRef]*RemoteStream
	senders map[StreamKey][]*webrtc.RTPSender

	evLock   sync.RWMutex
	evClosed bool
	events   chan RoomEvent
}

func newRTCEngine(url, roomID, token string) *rtcEngine {
	return &rtcEngine{
		url:     url,
		roomID:  roomID,
		token:   token,
		client:  NewSignalClient(),
		remote:  make(map[streamRef]*RemoteStream),
		senders: make(map[StreamKey][]*webrtc.RTPSender),
		events:  make(chan RoomEvent, eventQueueSize),
	}
}

func (e *rtcEngine) Connect(ctx context.Context) error {
	ack, err := e.client.Join(ctx, e.url, e.token, e.roomID)
	if err != nil {
		return err
	}
	e.localID.Store(ack.ParticipantID)

	conf := webrtc.Configuration{ICEServers: ack.ICEServers}
	if e.publisher, err = NewPCTransport(conf); err != nil {
		e.client.Close()
		return err
	}
	if e.subscriber, err = NewPCTransport(conf); err != nil {
		e.client.Close()
		_ = e.publisher.Close()
		return err
	}

	e.wireSignal()
	e.wireTransports()
	e.client.Start()

	e.emit(connectedEvent(ack))
	return nil
}

// connectedEvent converts the joined ack into the snapshot the session
// consumes. Our own roster entry is filtered out; the session must
// never mirror the local participant as a remote one.
func connectedEvent(ack *joinAck) ConnectedEvent {
	connected := ConnectedEvent{}
	for _, p := range ack.Participants {
		if p.ID == ack.ParticipantID {
			continue
		}
		connected.ExistingParticipants = append(connected.ExistingParticipants, ParticipantInfo{
			ID:     p.ID,
			Name:   p.Name,
			IsHost: p.IsHost,
		})
	}
	for _, s := range ack.Streams {
		connected.ExistingStreams = append(connected.ExistingStreams, StreamInfo{
			ParticipantID: s.ParticipantID,
			Key:           StreamKey(s.Key),
		})
	}
	return connected
}

func (e *rtcEngine) wireSignal() {
	c := e.client
	c.OnParticipantJoined = func(p signalParticipant) {
		e.emit(ParticipantJoinedEvent{Participant: ParticipantInfo{ID: p.ID, Name: p.Name, IsHost: p.IsHost}})
	}
	c.OnParticipantLeft = func(id string) {
		e.dropParticipantStreams(id)
		e.emit(ParticipantLeftEvent{ParticipantID: id})
	}
	c.OnStreamPublished = func(s signalStream) {
		e.emit(StreamPublishedEvent{Stream: StreamInfo{ParticipantID: s.ParticipantID, Key: StreamKey(s.Key)}})
	}
	c.OnStreamUnpublished = func(s signalStream) {
		e.dropStream(streamRef{participantID: s.ParticipantID, key: StreamKey(s.Key)})
		e.emit(StreamUnpublishedEvent{Stream: StreamInfo{ParticipantID: s.ParticipantID, Key: StreamKey(s.Key)}})
	}
	c.OnOffer = func(sd webrtc.SessionDescription) {
		if err := e.subscriber.SetRemoteDescription(sd); err != nil {
			logger.Error(err, "could not apply server offer")
			return
		}
		answer, err := e.subscriber.pc.CreateAnswer(nil)
		if err != nil {
			logger.Error(err, "could not create answer")
			return
		}
		if err = e.subscriber.pc.SetLocalDescription(answer); err != nil {
			logger.Error(err, "could not set answer")
			return
		}
		if err = e.client.SendAnswer(answer); err != nil {
			logger.Error(err, "could not send answer")
		}
	}
	c.OnAnswer = func(sd webrtc.SessionDescription) {
		if err := e.publisher.SetRemoteDescription(sd); err != nil {
			logger.Error(err, "could not apply server answer")
		}
	}
	c.OnTrickle = func(init webrtc.ICECandidateInit, target string) {
		t := e.publisher
		if target == signalTargetSubscriber {
			t = e.subscriber
		}
		if err := t.AddICECandidate(init); err != nil {
			logger.Error(err, "could not add ICE candidate", "target", target)
		}
	}
	c.OnTrackEnabled = func(id string, kind TrackKind) {
		e.emit(TrackEnabledEvent{ParticipantID: id, Kind: kind})
	}
	c.OnTrackDisabled = func(id string, kind TrackKind) {
		e.emit(TrackDisabledEvent{ParticipantID: id, Kind: kind})
	}
	c.OnLeave = func(reason string, resumable bool) {
		e.emit(DisconnectedEvent{Resumable: resumable, Reason: reason})
	}
	c.OnClose = func() {
		if e.closed.IsBroken() {
			return
		}
		e.emit(DisconnectedEvent{Resumable: false, Reason: "signal connection closed"})
	}
}

func (e *rtcEngine) wireTransports() {
	e.publisher.OnOffer = func(sd webrtc.SessionDescription) {
		if err := e.client.SendOffer(sd); err != nil {
			logger.Error(err, "could not send offer")
		}
	}
	onCandidate := func(target string) func(*webrtc.ICECandidate) {
		return func(c *webrtc.ICECandidate) {
			if c == nil {
				return
			}
			if err := e.client.SendICECandidate(c.ToJSON(), target); err != nil {
				logger.Error(err, "could not send ICE candidate", "target", target)
			}
		}
	}
	e.publisher.pc.OnICECandidate(onCandidate(signalTargetPublisher))
	e.subscriber.pc.OnICECandidate(onCandidate(signalTargetSubscriber))

	onFailure := func(state webrtc.ICEConnectionState) {
		if state != webrtc.ICEConnectionStateFailed || e.closed.IsBroken() {
			return
		}
		e.emit(DisconnectedEvent{Resumable: true, Reason: "media transport failed"})
	}
	e.publisher.pc.OnICEConnectionStateChange(onFailure)
	e.subscriber.pc.OnICEConnectionStateChange(onFailure)

	e.subscriber.pc.OnTrack(e.onSubscribedTrack)
}

func (e *rtcEngine) onSubscribedTrack(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	participantID, key := unpackStreamID(track.StreamID())
	if participantID == "" {
		logger.Info("dropping track with unroutable stream id", "streamID", track.StreamID())
		return
	}
	ref := streamRef{participantID: participantID, key: key}
	adapted := newRemoteTrack(track)

	e.lock.Lock()
	stream, ok := e.remote[ref]
	if !ok {
		stream = &RemoteStream{ParticipantID: participantID, Key: key}
		e.remote[ref] = stream
	}
	if adapted.Kind() == TrackKindAudio {
		stream.AudioTrack = adapted
	} else {
		stream.VideoTrack = adapted
	}
	e.lock.Unlock()

	if adapted.Kind() == TrackKindAudio {
		go e.audioLevelWorker(participantID, key, track, receiver)
	} else {
		go e.sendPLI(track.SSRC())
	}
	e.emit(SubscriptionStartedEvent{Stream: StreamInfo{ParticipantID: participantID, Key: key}})
}

// audioLevelWorker drains the subscribed audio track and surfaces
// voiced packets as activity events. It exits when the track ends.
func (e *rtcEngine) audioLevelWorker(participantID string, key StreamKey, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	extID := 0
	for _, ext := range receiver.GetParameters().HeaderExtensions {
		if ext.URI == sdp.AudioLevelURI {
			extID = ext.ID
			break
		}
	}

	var lastActivity time.Time
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if extID == 0 {
			continue
		}
		raw := pkt.GetExtension(uint8(extID))
		if raw == nil {
			continue
		}
		level := rtp.AudioLevelExtension{}
		if err := level.Unmarshal(raw); err != nil {
			continue
		}
		if !level.Voice || level.Level > activeAudioLevel {
			continue
		}
		if time.Since(lastActivity) < audioActivityInterval {
			continue
		}
		lastActivity = time.Now()
		e.emit(AudioActivityEvent{ParticipantID: participantID, Key: key})
	}
}

// sendPLI asks the router for a fresh keyframe so a newly subscribed
// video track renders without waiting for the next scheduled one.
func (e *rtcEngine) sendPLI(ssrc webrtc.SSRC) {
	err := e.subscriber.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(ssrc)},
	})
	if err != nil {
		logger.Error(err, "could not send PLI")
	}
}

func (e *rtcEngine) AddStream(_ context.Context, key StreamKey, tracks []LocalTrack) error {
	senders, trackIDs, err := e.attachTracks(tracks)
	if err != nil {
		return err
	}

	e.lock.Lock()
	e.senders[key] = senders
	e.lock.Unlock()

	if err = e.client.SendPublish(key, trackIDs); err != nil {
		return err
	}
	e.publisher.Negotiate()
	return nil
}

func (e *rtcEngine) UpdateStream(_ context.Context, key StreamKey, tracks []LocalTrack) error {
	e.lock.Lock()
	old := e.senders[key]
	delete(e.senders, key)
	e.lock.Unlock()
	for _, s := range old {
		if err := e.publisher.pc.RemoveTrack(s); err != nil {
			logger.Error(err, "could not remove track", "key", key)
		}
	}

	senders, trackIDs, err := e.attachTracks(tracks)
	if err != nil {
		return err
	}
	e.lock.Lock()
	e.senders[key] = senders
	e.lock.Unlock()

	if err = e.client.SendPublish(key, trackIDs); err != nil {
		return err
	}
	e.publisher.Negotiate()
	return nil
}

func (e *rtcEngine) RemoveStream(_ context.Context, key StreamKey) error {
	e.lock.Lock()
	old := e.senders[key]
	delete(e.senders, key)
	e.lock.Unlock()
	for _, s := range old {
		if err := e.publisher.pc.RemoveTrack(s); err != nil {
			logger.Error(err, "could not remove track", "key", key)
		}
	}

	if err := e.client.SendUnpublish(key); err != nil {
		return err
	}
	e.publisher.Negotiate()
	return nil
}

// attachTracks adds each track to the publisher connection. On any
// failure the senders already added are removed again, so a rejected
// publish leaves nothing attached.
func (e *rtcEngine) attachTracks(tracks []LocalTrack) ([]*webrtc.RTPSender, []string, error) {
	var senders []*webrtc.RTPSender
	var trackIDs []string
	fail := func(err error) ([]*webrtc.RTPSender, []string, error) {
		for _, s := range senders {
			if rmErr := e.publisher.pc.RemoveTrack(s); rmErr != nil {
				logger.Error(rmErr, "could not unwind partially attached stream")
			}
		}
		return nil, nil, err
	}
	for _, t := range tracks {
		provider, ok := t.(RTPTrackProvider)
		if !ok {
			return fail(fmt.Errorf("track %s does not carry an RTP track", t.ID()))
		}
		sender, err := e.publisher.pc.AddTrack(provider.RTPTrack())
		if err != nil {
			return fail(err)
		}
		senders = append(senders, sender)
		trackIDs = append(trackIDs, t.ID())
	}
	return senders, trackIDs, nil
}

func (e *rtcEngine) AddSubscription(_ context.Context, participantID string, key StreamKey) error {
	return e.client.SendSubscribe(participantID, key)
}

func (e *rtcEngine) ParticipantStream(participantID string, key StreamKey) (*RemoteStream, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	stream, ok := e.remote[streamRef{participantID: participantID, key: key}]
	if !ok {
		return nil, false
	}
	cp := *stream
	return &cp, true
}

func (e *rtcEngine) LocalParticipantID() string {
	return e.localID.Load()
}

func (e *rtcEngine) Events() <-chan RoomEvent {
	return e.events
}

func (e *rtcEngine) Disconnect() error {
	e.closed.Once(func() {
		if e.client.IsConnected() {
			if err := e.client.SendLeave(); err != nil {
				logger.Error(err, "could not send leave")
			}
		}
		e.client.Close()
		if e.publisher != nil {
			_ = e.publisher.Close()
		}
		if e.subscriber != nil {
			_ = e.subscriber.Close()
		}
		e.closeEvents()
	})
	return nil
}

func (e *rtcEngine) dropStream(ref streamRef) {
	e.lock.Lock()
	stream, ok := e.remote[ref]
	if ok {
		delete(e.remote, ref)
	}
	e.lock.Unlock()
	if !ok {
		return
	}
	if stream.AudioTrack != nil {
		stream.AudioTrack.Stop()
	}
	if stream.VideoTrack != nil {
		stream.VideoTrack.Stop()
	}
}

func (e *rtcEngine) dropParticipantStreams(participantID string) {
	e.lock.Lock()
	var refs []streamRef
	for ref := range e.remote {
		if ref.participantID == participantID {
			refs = append(refs, ref)
		}
	}
	e.lock.Unlock()
	for _, ref := range refs {
		e.dropStream(ref)
	}
}

func (e *rtcEngine) emit(ev RoomEvent) {
	e.evLock.RLock()
	defer e.evLock.RUnlock()
	if e.evClosed {
		return
	}
	select {
	case e.events <- ev:
	default:
		logger.Info("dropping room event, consumer too slow", "event", fmt.Sprintf("%T", ev))
	}
}

func (e *rtcEngine) closeEvents() {
	e.evLock.Lock()
	e.evClosed = true
	close(e.events)
	e.evLock.Unlock()
}

// Stream ids on the wire are "participantID|key" so a single msid
// routes the track to both the owner and the stream slot.
func packStreamID(participantID string, key StreamKey) string {
	return participantID + "|" + string(key)
}

func unpackStreamID(id string) (participantID string, key StreamKey) {
	parts := strings.SplitN(id, "|", 2)
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], StreamKey(parts[1])
}
