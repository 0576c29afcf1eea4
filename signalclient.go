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
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"go.uber.org/atomic"
)

const signalProtocol = 2

// signal message types
const (
	sigJoin              = "join"
	sigJoined            = "joined"
	sigParticipantJoined = "participant_joined"
	sigParticipantLeft   = "participant_left"
	sigStreamPublished   = "stream_published"
	sigStreamUnpublished = "stream_unpublished"
	sigPublish           = "publish"
	sigUnpublish         = "unpublish"
	sigSubscribe         = "subscribe"
	sigOffer             = "offer"
	sigAnswer            = "answer"
	sigTrickle           = "trickle"
	sigTrackEnabled      = "track_enabled"
	sigTrackDisabled     = "track_disabled"
	sigLeave             = "leave"
)

const (
	signalTargetPublisher  = "publisher"
	signalTargetSubscriber = "subscriber"
)

type signalParticipant struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	IsHost bool   `json:"isHost,omitempty"`
}

type signalStream struct {
	ParticipantID string `json:"participantId"`
	Key           string `json:"key"`
}

type signalICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type signalMessage struct {
	Type string `json:"type"`

	Room          string              `json:"room,omitempty"`
	ParticipantID string              `json:"participantId,omitempty"`
	Participant   *signalParticipant  `json:"participant,omitempty"`
	Participants  []signalParticipant `json:"participants,omitempty"`
	Stream        *signalStream       `json:"stream,omitempty"`
	Streams       []signalStream      `json:"streams,omitempty"`
	Key           string              `json:"key,omitempty"`
	TrackIDs      []string            `json:"trackIds,omitempty"`
	Kind          string              `json:"kind,omitempty"`

	SDP       string          `json:"sdp,omitempty"`
	SDPType   string          `json:"sdpType,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Target    string          `json:"target,omitempty"`

	ICEServers []signalICEServer `json:"iceServers,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Resumable  bool              `json:"resumable,omitempty"`
}

// joinAck is the server's snapshot of the room at join time.
type joinAck struct {
	ParticipantID string
	Participants  []signalParticipant
	Streams       []signalStream
	ICEServers    []webrtc.ICEServer
}

// SignalClient speaks the JSON control protocol of the media router
// over a websocket.
type SignalClient struct {
	conn        *websocket.Conn
	isStarted   atomic.Bool
	isConnected atomic.Bool
	writeLock   sync.Mutex

	OnParticipantJoined func(signalParticipant)
	OnParticipantLeft   func(participantID string)
	OnStreamPublished   func(signalStream)
	OnStreamUnpublished func(signalStream)
	OnOffer             func(sd webrtc.SessionDescription)
	OnAnswer            func(sd webrtc.SessionDescription)
	OnTrickle           func(init webrtc.ICECandidateInit, target string)
	OnTrackEnabled      func(participantID string, kind TrackKind)
	OnTrackDisabled     func(participantID string, kind TrackKind)
	OnLeave             func(reason string, resumable bool)
	OnClose             func()
}

func NewSignalClient() *SignalClient {
	return &SignalClient{}
}

// Join dials the signal endpoint, announces the room, and waits for
// the joined ack carrying the room snapshot. Start must be called
// afterwards to begin dispatching further messages.
func (c *SignalClient) Join(ctx context.Context, urlPrefix, token, room string) (*joinAck, error) {
	u, err := url.Parse(toWebsocketURL(urlPrefix) + fmt.Sprintf("/rtc?protocol=%d&sdk=go&version=%s", signalProtocol, Version))
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotDialSignal, err)
	}
	c.conn = conn

	if err := c.send(&signalMessage{Type: sigJoin, Room: room}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// server sends joined as soon as the room is entered
	msg, err := c.readMessage()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if msg.Type != sigJoined {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected signal response %q", msg.Type)
	}

	ack := &joinAck{
		ParticipantID: msg.ParticipantID,
		Participants:  msg.Participants,
		Streams:       msg.Streams,
	}
	for _, s := range msg.ICEServers {
		ack.ICEServers = append(ack.ICEServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	c.isConnected.Store(true)
	return ack, nil
}

func (c *SignalClient) Start() {
	if !c.isStarted.CompareAndSwap(false, true) {
		return
	}
	go c.readWorker()
}

func (c *SignalClient) IsConnected() bool {
	return c.isConnected.Load()
}

func (c *SignalClient) Close() {
	c.isConnected.Store(false)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *SignalClient) SendOffer(sd webrtc.SessionDescription) error {
	return c.send(&signalMessage{Type: sigOffer, SDP: sd.SDP, SDPType: sd.Type.String(), Target: signalTargetPublisher})
}

func (c *SignalClient) SendAnswer(sd webrtc.SessionDescription) error {
	return c.send(&signalMessage{Type: sigAnswer, SDP: sd.SDP, SDPType: sd.Type.String(), Target: signalTargetSubscriber})
}

func (c *SignalClient) SendICECandidate(init webrtc.ICECandidateInit, target string) error {
	data, err := json.Marshal(init)
	if err != nil {
		return err
	}
	return c.send(&signalMessage{Type: sigTrickle, Candidate: data, Target: target})
}

func (c *SignalClient) SendPublish(key StreamKey, trackIDs []string) error {
	return c.send(&signalMessage{Type: sigPublish, Key: string(key), TrackIDs: trackIDs})
}

func (c *SignalClient) SendUnpublish(key StreamKey) error {
	return c.send(&signalMessage{Type: sigUnpublish, Key: string(key)})
}

func (c *SignalClient) SendSubscribe(participantID string, key StreamKey) error {
	return c.send(&signalMessage{
		Type:   sigSubscribe,
		Stream: &signalStream{ParticipantID: participantID, Key: string(key)},
	})
}

func (c *SignalClient) SendLeave() error {
	return c.send(&signalMessage{Type: sigLeave})
}

func (c *SignalClient) send(msg *signalMessage) error {
	if c.conn == nil {
		return ErrSignalClosed
	}
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *SignalClient) readMessage() (*signalMessage, error) {
	if c.conn == nil {
		return nil, ErrSignalClosed
	}
	msg := &signalMessage{}
	if err := c.conn.ReadJSON(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *SignalClient) handleMessage(msg *signalMessage) {
	switch msg.Type {
	case sigParticipantJoined:
		if c.OnParticipantJoined != nil && msg.Participant != nil {
			c.OnParticipantJoined(*msg.Participant)
		}
	case sigParticipantLeft:
		if c.OnParticipantLeft != nil {
			c.OnParticipantLeft(msg.ParticipantID)
		}
	case sigStreamPublished:
		if c.OnStreamPublished != nil && msg.Stream != nil {
			c.OnStreamPublished(*msg.Stream)
		}
	case sigStreamUnpublished:
		if c.OnStreamUnpublished != nil && msg.Stream != nil {
			c.OnStreamUnpublished(*msg.Stream)
		}
	case sigOffer:
		if c.OnOffer != nil {
			c.OnOffer(sessionDescription(msg))
		}
	case sigAnswer:
		if c.OnAnswer != nil {
			c.OnAnswer(sessionDescription(msg))
		}
	case sigTrickle:
		if c.OnTrickle != nil {
			init := webrtc.ICECandidateInit{}
			if err := json.Unmarshal(msg.Candidate, &init); err != nil {
				logger.Error(err, "could not decode ICE candidate")
				return
			}
			c.OnTrickle(init, msg.Target)
		}
	case sigTrackEnabled:
		if c.OnTrackEnabled != nil {
			c.OnTrackEnabled(msg.ParticipantID, TrackKind(msg.Kind))
		}
	case sigTrackDisabled:
		if c.OnTrackDisabled != nil {
			c.OnTrackDisabled(msg.ParticipantID, TrackKind(msg.Kind))
		}
	case sigLeave:
		if c.OnLeave != nil {
			c.OnLeave(msg.Reason, msg.Resumable)
		}
	default:
		logger.V(1).Info("ignoring unknown signal message", "type", msg.Type)
	}
}

func (c *SignalClient) readWorker() {
	for {
		msg, err := c.readMessage()
		if err != nil {
			c.isConnected.Store(false)
			if c.OnClose != nil {
				c.OnClose()
			}
			return
		}
		c.handleMessage(msg)
	}
}

func sessionDescription(msg *signalMessage) webrtc.SessionDescription {
	var sdType webrtc.SDPType
	switch msg.SDPType {
	case webrtc.SDPTypeOffer.String():
		sdType = webrtc.SDPTypeOffer
	case webrtc.SDPTypeAnswer.String():
		sdType = webrtc.SDPTypeAnswer
	case webrtc.SDPTypePranswer.String():
		sdType = webrtc.SDPTypePranswer
	case webrtc.SDPTypeRollback.String():
		sdType = webrtc.SDPTypeRollback
	}
	return webrtc.SessionDescription{Type: sdType, SDP: msg.SDP}
}

func toWebsocketURL(u string) string {
	if strings.HasPrefix(u, "http") {
		return strings.Replace(u, "http", "ws", 1)
	}
	return u
}
