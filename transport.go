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
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/pion/interceptor"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

const (
	negotiationFrequency = 150 * time.Millisecond
)

// PCTransport is a wrapper around PeerConnection, with helpers to
// buffer pre-answer candidates and debounce renegotiation attempts.
type PCTransport struct {
	pc *webrtc.PeerConnection

	lock               sync.Mutex
	pendingCandidates  []webrtc.ICECandidateInit
	debouncedNegotiate func(func())
	renegotiate        bool

	OnOffer func(description webrtc.SessionDescription)
}

func NewPCTransport(configuration webrtc.Configuration) (*PCTransport, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	// client-to-mixer audio level is how the router elects the
	// dominant speaker, so make sure it's offered
	if err := m.RegisterHeaderExtension(
		webrtc.RTPHeaderExtensionCapability{URI: sdp.AudioLevelURI}, webrtc.RTPCodecTypeAudio,
	); err != nil {
		return nil, err
	}
	if err := m.RegisterHeaderExtension(
		webrtc.RTPHeaderExtensionCapability{URI: sdp.SDESMidURI}, webrtc.RTPCodecTypeVideo,
	); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}
	if err := webrtc.ConfigureNack(m, i); err != nil {
		return nil, err
	}
	if err := webrtc.ConfigureRTCPReports(i); err != nil {
		return nil, err
	}
	if err := webrtc.ConfigureTWCCSender(m, i); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
	)
	pc, err := api.NewPeerConnection(configuration)
	if err != nil {
		return nil, err
	}

	return &PCTransport{
		pc:                 pc,
		debouncedNegotiate: debounce.New(negotiationFrequency),
	}, nil
}

func (t *PCTransport) PeerConnection() *webrtc.PeerConnection {
	return t.pc
}

func (t *PCTransport) IsConnected() bool {
	return t.pc.ICEConnectionState() == webrtc.ICEConnectionStateConnected
}

func (t *PCTransport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	if t.pc.RemoteDescription() == nil {
		t.lock.Lock()
		t.pendingCandidates = append(t.pendingCandidates, candidate)
		t.lock.Unlock()
		return nil
	}
	return t.pc.AddICECandidate(candidate)
}

func (t *PCTransport) SetRemoteDescription(sd webrtc.SessionDescription) error {
	if err := t.pc.SetRemoteDescription(sd); err != nil {
		return err
	}

	t.lock.Lock()
	for _, c := range t.pendingCandidates {
		if err := t.pc.AddICECandidate(c); err != nil {
			logger.Error(err, "could not add queued ICE candidate")
		}
	}
	t.pendingCandidates = nil
	renegotiate := t.renegotiate
	t.renegotiate = false
	t.lock.Unlock()

	if renegotiate {
		t.createAndSendOffer(nil)
	}
	return nil
}

// Negotiate collapses bursts of track changes into a single offer.
func (t *PCTransport) Negotiate() {
	t.debouncedNegotiate(func() {
		t.createAndSendOffer(nil)
	})
}

func (t *PCTransport) createAndSendOffer(options *webrtc.OfferOptions) {
	if t.OnOffer == nil {
		return
	}

	if t.pc.SignalingState() == webrtc.SignalingStateHaveLocalOffer {
		// glare: remember to re-offer once the in-flight exchange
		// settles instead of clobbering it
		t.lock.Lock()
		t.renegotiate = true
		t.lock.Unlock()
		return
	}

	offer, err := t.pc.CreateOffer(options)
	if err != nil {
		logger.Error(err, "could not create offer")
		return
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		logger.Error(err, "could not set local description")
		return
	}
	t.OnOffer(offer)
}

func (t *PCTransport) Close() error {
	return t.pc.Close()
}
