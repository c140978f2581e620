package realtime

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// RTP buffer size (MTU-friendly). Used with sync.Pool to avoid per-packet allocs.
const rtpBufferSize = 1500

var rtpBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, rtpBufferSize)
		return &b
	},
}

// SFU relays WebRTC media between participants of a space. Every participant
// may publish; subscribers receive the tracks of everyone else in the room.
// Rooms are keyed by join code.
type SFU struct {
	rooms map[string]*sfuRoom
	mu    sync.RWMutex
	log   *zap.Logger
	cfg   webrtc.Configuration
}

type sfuRoom struct {
	room        string
	publishers  map[string]*publisherPeer
	subscribers map[string]*subscriberPeer
	mu          sync.RWMutex
	log         *zap.Logger
}

type publisherPeer struct {
	pc     *webrtc.PeerConnection
	tracks []*relayTrack
}

type relayTrack struct {
	owner  string // publisher client id
	remote *webrtc.TrackRemote
	locals []*webrtc.TrackLocalStaticRTP
	mu     sync.Mutex
}

type subscriberPeer struct {
	pc *webrtc.PeerConnection
}

// NewSFU creates an SFU with the given ICE (STUN/TURN) configuration.
func NewSFU(log *zap.Logger, iceServers []webrtc.ICEServer) *SFU {
	cfg := webrtc.Configuration{ICEServers: iceServers}
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = defaultICE
	}
	return &SFU{
		rooms: make(map[string]*sfuRoom),
		log:   log,
		cfg:   cfg,
	}
}

func (s *SFU) getOrCreateRoom(room string) *sfuRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[room]; ok {
		return r
	}
	r := &sfuRoom{
		room:        room,
		publishers:  make(map[string]*publisherPeer),
		subscribers: make(map[string]*subscriberPeer),
		log:         s.log.With(zap.String("room", room)),
	}
	s.rooms[room] = r
	return r
}

func (s *SFU) getRoom(room string) *sfuRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[room]
}

// HandlePublisherOffer handles an SDP offer from a publishing participant.
// A re-offer from the same client replaces their previous publisher PC.
func (s *SFU) HandlePublisherOffer(room string, clientID string, sdp webrtc.SessionDescription, sendToClient func(event string, payload interface{})) error {
	r := s.getOrCreateRoom(room)

	r.mu.Lock()
	if old, ok := r.publishers[clientID]; ok {
		delete(r.publishers, clientID)
		r.mu.Unlock()
		if old.pc != nil {
			_ = old.pc.Close()
		}
		r.mu.Lock()
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		r.mu.Unlock()
		return err
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(s.cfg)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	pub := &publisherPeer{pc: pc}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		b, _ := json.Marshal(c.ToJSON())
		sendToClient("webrtc_ice", map[string]interface{}{"target": "publisher", "candidate": json.RawMessage(b)})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		relay := &relayTrack{owner: clientID, remote: track}
		r.mu.Lock()
		if p, ok := r.publishers[clientID]; ok {
			p.tracks = append(p.tracks, relay)
		}
		r.mu.Unlock()
		r.relayTrackToSubscribers(relay)
		go relay.readAndForward()
	})

	if err := pc.SetRemoteDescription(sdp); err != nil {
		_ = pc.Close()
		r.mu.Unlock()
		return err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		_ = pc.Close()
		r.mu.Unlock()
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		_ = pc.Close()
		r.mu.Unlock()
		return err
	}
	r.publishers[clientID] = pub
	r.mu.Unlock()

	sendToClient("webrtc_publisher_answer", map[string]interface{}{
		"type": answer.Type.String(),
		"sdp":  answer.SDP,
	})
	return nil
}

func (rt *relayTrack) readAndForward() {
	for {
		// Reuse buffer from pool to avoid per-packet allocs and bound memory.
		ptr := rtpBufferPool.Get().(*[]byte)
		buf := *ptr
		n, _, err := rt.remote.Read(buf)
		if err != nil {
			rtpBufferPool.Put(ptr)
			return
		}
		// Copy list of subscribers under lock, then write without holding
		// the lock so one slow subscriber doesn't block others.
		rt.mu.Lock()
		locals := make([]*webrtc.TrackLocalStaticRTP, len(rt.locals))
		copy(locals, rt.locals)
		rt.mu.Unlock()
		for _, local := range locals {
			_, _ = local.Write(buf[:n])
		}
		rtpBufferPool.Put(ptr)
	}
}

// relayTrackToSubscribers attaches a newly published track to every existing
// subscriber except the track's owner.
func (r *sfuRoom) relayTrackToSubscribers(relay *relayTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.subscribers {
		if id == relay.owner || sub.pc == nil {
			continue
		}
		local, err := webrtc.NewTrackLocalStaticRTP(relay.remote.Codec().RTPCodecCapability, relay.remote.ID(), relay.remote.StreamID())
		if err != nil {
			continue
		}
		relay.mu.Lock()
		relay.locals = append(relay.locals, local)
		relay.mu.Unlock()
		_, _ = sub.pc.AddTrack(local)
	}
}

// HandlePublisherICE adds an ICE candidate to a client's publisher PC.
func (s *SFU) HandlePublisherICE(room string, clientID string, candidate webrtc.ICECandidateInit) error {
	r := s.getRoom(room)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	pub, ok := r.publishers[clientID]
	r.mu.RUnlock()
	if ok && pub.pc != nil {
		return pub.pc.AddICECandidate(candidate)
	}
	return nil
}

// HandleSubscribe creates a subscriber PC carrying every other participant's
// tracks and sends the offer.
func (s *SFU) HandleSubscribe(room string, clientID string, sendToClient func(event string, payload interface{})) error {
	r := s.getRoom(room)
	if r == nil {
		sendToClient("webrtc_error", map[string]string{"message": "no_stream"})
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var relays []*relayTrack
	for id, pub := range r.publishers {
		if id == clientID {
			continue
		}
		relays = append(relays, pub.tracks...)
	}
	if len(relays) == 0 {
		sendToClient("webrtc_error", map[string]string{"message": "no_stream"})
		return nil
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return err
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(s.cfg)
	if err != nil {
		return err
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		b, _ := json.Marshal(c.ToJSON())
		sendToClient("webrtc_ice", map[string]interface{}{"target": "subscriber", "candidate": json.RawMessage(b)})
	})

	for _, relay := range relays {
		local, err := webrtc.NewTrackLocalStaticRTP(relay.remote.Codec().RTPCodecCapability, relay.remote.ID(), relay.remote.StreamID())
		if err != nil {
			continue
		}
		relay.mu.Lock()
		relay.locals = append(relay.locals, local)
		relay.mu.Unlock()
		_, _ = pc.AddTrack(local)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return err
	}
	r.subscribers[clientID] = &subscriberPeer{pc: pc}
	sendToClient("webrtc_subscriber_offer", map[string]interface{}{
		"type": offer.Type.String(),
		"sdp":  offer.SDP,
	})
	return nil
}

// HandleSubscriberAnswer sets the remote description (answer) for the
// subscriber PC.
func (s *SFU) HandleSubscriberAnswer(room string, clientID string, sdp webrtc.SessionDescription) error {
	r := s.getRoom(room)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	sub, ok := r.subscribers[clientID]
	r.mu.Unlock()
	if !ok || sub.pc == nil {
		return nil
	}
	return sub.pc.SetRemoteDescription(sdp)
}

// HandleSubscriberICE adds an ICE candidate to the subscriber PC.
func (s *SFU) HandleSubscriberICE(room string, clientID string, candidate webrtc.ICECandidateInit) error {
	r := s.getRoom(room)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	sub, ok := r.subscribers[clientID]
	r.mu.RUnlock()
	if !ok || sub.pc == nil {
		return nil
	}
	return sub.pc.AddICECandidate(candidate)
}

// UnregisterClient closes and removes a client's publisher and subscriber
// PCs. Call when the client disconnects.
func (s *SFU) UnregisterClient(room string, clientID string) {
	r := s.getRoom(room)
	if r == nil {
		return
	}
	r.mu.Lock()
	var toClose []*webrtc.PeerConnection
	if sub, ok := r.subscribers[clientID]; ok {
		delete(r.subscribers, clientID)
		if sub.pc != nil {
			toClose = append(toClose, sub.pc)
		}
	}
	if pub, ok := r.publishers[clientID]; ok {
		delete(r.publishers, clientID)
		if pub.pc != nil {
			toClose = append(toClose, pub.pc)
		}
	}
	empty := len(r.publishers) == 0 && len(r.subscribers) == 0
	r.mu.Unlock()
	for _, pc := range toClose {
		_ = pc.Close()
	}
	if empty {
		s.mu.Lock()
		delete(s.rooms, room)
		s.mu.Unlock()
	}
}

// ICE config helpers
var defaultICE = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}

// ParseICEServers converts a list of STUN/TURN URLs into ICE server configs,
// falling back to a public STUN server when none are configured.
func ParseICEServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		return defaultICE
	}
	out := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		out = append(out, webrtc.ICEServer{URLs: []string{u}})
	}
	if len(out) == 0 {
		return defaultICE
	}
	return out
}
