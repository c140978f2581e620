// Package memstore holds in-memory implementations of the space, participant,
// recording, and segment stores. The four sub-stores share one state guarded
// by a single mutex, which gives them the same atomicity guarantees the
// Postgres repositories get from transactions. Used in tests and for local
// development without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/recordings"
	"github.com/aura-spaces/backend/internal/segments"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/pkg/apperr"
)

// state is the shared backing store.
type state struct {
	mu sync.Mutex

	spacesByID     map[uuid.UUID]*models.Space
	spaceIDByCode  map[string]uuid.UUID
	participantsBy map[uuid.UUID]*models.Participant
	sessionsByID   map[uuid.UUID]*models.RecordingSession
	recordingsByID map[uuid.UUID]*models.ParticipantRecording
	segmentsByRec  map[uuid.UUID][]*models.RecordingSegment
}

// Store bundles the four sub-stores over one shared state.
type Store struct {
	Spaces       *Spaces
	Participants *Participants
	Recordings   *Recordings
	Segments     *Segments
}

// New creates an empty store.
func New() *Store {
	st := &state{
		spacesByID:     make(map[uuid.UUID]*models.Space),
		spaceIDByCode:  make(map[string]uuid.UUID),
		participantsBy: make(map[uuid.UUID]*models.Participant),
		sessionsByID:   make(map[uuid.UUID]*models.RecordingSession),
		recordingsByID: make(map[uuid.UUID]*models.ParticipantRecording),
		segmentsByRec:  make(map[uuid.UUID][]*models.RecordingSegment),
	}
	return &Store{
		Spaces:       &Spaces{st: st},
		Participants: &Participants{st: st},
		Recordings:   &Recordings{st: st},
		Segments:     &Segments{st: st},
	}
}

var (
	_ spaces.Store       = (*Spaces)(nil)
	_ participants.Store = (*Participants)(nil)
	_ recordings.Store   = (*Recordings)(nil)
	_ segments.Store     = (*Segments)(nil)
)

// Spaces implements spaces.Store.
type Spaces struct {
	st *state
}

// Create inserts a LIVE space and its HOST participant atomically.
func (s *Spaces) Create(ctx context.Context, p spaces.CreateParams) (*models.Space, *models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, taken := s.st.spaceIDByCode[p.JoinCode]; taken {
		return nil, nil, apperr.Conflict(apperr.CodeJoinCodeTaken, "join code already in use")
	}
	now := time.Now()
	space := &models.Space{
		ID:              uuid.New(),
		Title:           p.Title,
		Description:     p.Description,
		JoinCode:        p.JoinCode,
		HostUserID:      p.HostUserID,
		Status:          models.SpaceStatusLive,
		RecordingStatus: models.RecordingStatusNone,
		StartTime:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	hostID := p.HostUserID
	host := &models.Participant{
		ID:                   uuid.New(),
		SpaceID:              space.ID,
		UserID:               &hostID,
		ParticipantSessionID: p.HostSessionID,
		DisplayName:          p.HostDisplayName,
		Role:                 models.RoleHost,
		IsActive:             true,
		JoinedAt:             now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	s.st.spacesByID[space.ID] = space
	s.st.spaceIDByCode[space.JoinCode] = space.ID
	s.st.participantsBy[host.ID] = host
	return copySpace(space), copyParticipant(host), nil
}

// End transitions LIVE -> ENDED once and deactivates all active participants.
func (s *Spaces) End(ctx context.Context, spaceID uuid.UUID) (*models.Space, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	space, ok := s.st.spacesByID[spaceID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
	}
	if space.Status != models.SpaceStatusLive {
		return nil, apperr.InvalidState(apperr.CodeSpaceNotLive, "space is not live")
	}
	now := time.Now()
	duration := int64(now.Sub(space.StartTime) / time.Second)
	space.Status = models.SpaceStatusEnded
	space.EndTime = &now
	space.DurationSeconds = &duration
	space.UpdatedAt = now
	for _, p := range s.st.participantsBy {
		if p.SpaceID == spaceID && p.IsActive {
			p.IsActive = false
			left := now
			p.LeftAt = &left
			p.UpdatedAt = now
		}
	}
	return copySpace(space), nil
}

// Update applies a partial patch to title/description.
func (s *Spaces) Update(ctx context.Context, spaceID uuid.UUID, p spaces.UpdateParams) (*models.Space, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	space, ok := s.st.spacesByID[spaceID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
	}
	if p.Title != nil {
		space.Title = *p.Title
	}
	if p.Description != nil {
		space.Description = *p.Description
	}
	space.UpdatedAt = time.Now()
	return copySpace(space), nil
}

// GetByID returns a space by id.
func (s *Spaces) GetByID(ctx context.Context, id uuid.UUID) (*models.Space, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.spaceLocked(id)
}

// GetByJoinCode returns a space by its join code.
func (s *Spaces) GetByJoinCode(ctx context.Context, code string) (*models.Space, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	id, ok := s.st.spaceIDByCode[code]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
	}
	return copySpace(s.st.spacesByID[id]), nil
}

// Participants implements participants.Store.
type Participants struct {
	st *state
}

// Join reactivates an existing membership row or inserts a new GUEST row.
func (s *Participants) Join(ctx context.Context, p participants.JoinParams) (*participants.JoinResult, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	space, ok := s.st.spacesByID[p.SpaceID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
	}
	if space.Status != models.SpaceStatusLive {
		return nil, apperr.InvalidState(apperr.CodeSpaceNotLive, "space is not live")
	}

	now := time.Now()
	if existing := s.st.findMemberLocked(p); existing != nil {
		existing.IsActive = true
		existing.LeftAt = nil
		existing.JoinedAt = now
		existing.DisplayName = p.DisplayName
		if p.UserID != nil {
			existing.ParticipantSessionID = p.SessionID
		}
		existing.UpdatedAt = now
		return &participants.JoinResult{
			Participant: copyParticipant(existing),
			Space:       copySpace(space),
			Rejoined:    true,
		}, nil
	}

	created := &models.Participant{
		ID:                   uuid.New(),
		SpaceID:              p.SpaceID,
		UserID:               p.UserID,
		ParticipantSessionID: p.SessionID,
		DisplayName:          p.DisplayName,
		Role:                 models.RoleGuest,
		IsActive:             true,
		IsGuest:              p.UserID == nil,
		JoinedAt:             now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	s.st.participantsBy[created.ID] = created
	return &participants.JoinResult{
		Participant: copyParticipant(created),
		Space:       copySpace(space),
		Rejoined:    false,
	}, nil
}

// Leave deactivates an active row; leaving twice is an invalid-state error.
func (s *Participants) Leave(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.participantsBy[participantID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
	}
	if !p.IsActive {
		return nil, apperr.InvalidState(apperr.CodeParticipantAlreadyLeft, "participant has already left")
	}
	now := time.Now()
	p.IsActive = false
	p.LeftAt = &now
	p.UpdatedAt = now
	return copyParticipant(p), nil
}

// UpdateRole changes a non-host row's role.
func (s *Participants) UpdateRole(ctx context.Context, participantID uuid.UUID, role models.ParticipantRole) (*models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.participantsBy[participantID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
	}
	if p.Role == models.RoleHost {
		return nil, apperr.InvalidState(apperr.CodeCannotChangeHostRole, "the host's role cannot be changed")
	}
	p.Role = role
	p.UpdatedAt = time.Now()
	return copyParticipant(p), nil
}

// Kick force-deactivates an active non-host row.
func (s *Participants) Kick(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.participantsBy[participantID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
	}
	if p.Role == models.RoleHost {
		return nil, apperr.InvalidState(apperr.CodeCannotKickHost, "the host cannot be kicked")
	}
	if !p.IsActive {
		return nil, apperr.InvalidState(apperr.CodeParticipantAlreadyLeft, "participant has already left")
	}
	now := time.Now()
	p.IsActive = false
	p.LeftAt = &now
	p.UpdatedAt = now
	return copyParticipant(p), nil
}

// List returns a space's participants ordered by join time.
func (s *Participants) List(ctx context.Context, spaceID uuid.UUID, activeOnly bool) ([]models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	out := []models.Participant{}
	for _, p := range s.st.participantsBy {
		if p.SpaceID != spaceID {
			continue
		}
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *copyParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// GetByID returns a participant by id.
func (s *Participants) GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.participantsBy[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
	}
	return copyParticipant(p), nil
}

// GetBySpaceAndUser returns a signed-in user's membership row.
func (s *Participants) GetBySpaceAndUser(ctx context.Context, spaceID, userID uuid.UUID) (*models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, p := range s.st.participantsBy {
		if p.SpaceID == spaceID && p.UserID != nil && *p.UserID == userID {
			return copyParticipant(p), nil
		}
	}
	return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
}

// GetBySpaceAndSession returns a guest membership row by session id.
func (s *Participants) GetBySpaceAndSession(ctx context.Context, spaceID uuid.UUID, sessionID string) (*models.Participant, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, p := range s.st.participantsBy {
		if p.SpaceID == spaceID && p.IsGuest && p.ParticipantSessionID == sessionID {
			return copyParticipant(p), nil
		}
	}
	return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
}

// Recordings implements recordings.Store.
type Recordings struct {
	st *state
}

// StartSession activates recording and mirrors the space recording_status.
func (s *Recordings) StartSession(ctx context.Context, p recordings.StartSessionParams) (*models.RecordingSession, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	space, ok := s.st.spacesByID[p.SpaceID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
	}
	if space.Status != models.SpaceStatusLive {
		return nil, apperr.InvalidState(apperr.CodeSpaceNotLive, "space is not live")
	}
	for _, sess := range s.st.sessionsByID {
		if sess.SpaceID != p.SpaceID {
			continue
		}
		if sess.SpaceRecordingSessionID == p.ClientSessionID {
			return copySession(sess), nil
		}
		if sess.Status == models.SessionStatusActive {
			return nil, apperr.Conflict(apperr.CodeRecordingAlreadyActive, "a recording session is already active")
		}
	}
	now := time.Now()
	created := &models.RecordingSession{
		ID:                      uuid.New(),
		SpaceID:                 p.SpaceID,
		SpaceRecordingSessionID: p.ClientSessionID,
		Status:                  models.SessionStatusActive,
		StartedAt:               now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	s.st.sessionsByID[created.ID] = created
	space.RecordingStatus = models.RecordingStatusRecording
	space.UpdatedAt = now
	return copySession(created), nil
}

// StopSession transitions ACTIVE -> STOPPED once and mirrors the space flag.
func (s *Recordings) StopSession(ctx context.Context, sessionID uuid.UUID) (*models.RecordingSession, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	sess, ok := s.st.sessionsByID[sessionID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSessionNotFound, "recording session not found")
	}
	if sess.Status != models.SessionStatusActive {
		return nil, apperr.InvalidState(apperr.CodeSessionNotActive, "recording session is not active")
	}
	now := time.Now()
	sess.Status = models.SessionStatusStopped
	sess.StoppedAt = &now
	sess.UpdatedAt = now
	if space, ok := s.st.spacesByID[sess.SpaceID]; ok {
		space.RecordingStatus = models.RecordingStatusStopped
		space.UpdatedAt = now
	}
	return copySession(sess), nil
}

// GetSession returns a session by id.
func (s *Recordings) GetSession(ctx context.Context, id uuid.UUID) (*models.RecordingSession, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	sess, ok := s.st.sessionsByID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSessionNotFound, "recording session not found")
	}
	return copySession(sess), nil
}

// ListSessions returns a space's sessions, newest first.
func (s *Recordings) ListSessions(ctx context.Context, spaceID uuid.UUID) ([]models.RecordingSession, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	out := []models.RecordingSession{}
	for _, sess := range s.st.sessionsByID {
		if sess.SpaceID == spaceID {
			out = append(out, *copySession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// CreateRecording registers a track under an ACTIVE session and marks the
// owning participant's has_recording flag. The owner must be a member of the
// session's space.
func (s *Recordings) CreateRecording(ctx context.Context, p recordings.CreateRecordingParams) (*models.ParticipantRecording, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	sess, ok := s.st.sessionsByID[p.RecordingSessionID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSessionNotFound, "recording session not found")
	}
	if sess.Status != models.SessionStatusActive {
		return nil, apperr.InvalidState(apperr.CodeSessionNotActive, "recording session is not active")
	}
	owner, ok := s.st.participantsBy[p.ParticipantID]
	if !ok || owner.SpaceID != sess.SpaceID {
		return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant is not in this space")
	}
	now := time.Now()
	rec := &models.ParticipantRecording{
		ID:                 uuid.New(),
		RecordingSessionID: p.RecordingSessionID,
		ParticipantID:      p.ParticipantID,
		Type:               p.Type,
		IsScreenShare:      p.IsScreenShare,
		MimeType:           p.MimeType,
		Width:              p.Width,
		Height:             p.Height,
		Status:             models.ParticipantRecordingUploading,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.st.recordingsByID[rec.ID] = rec
	owner.HasRecording = true
	owner.UpdatedAt = now
	return copyRecording(rec), nil
}

// UpdateRecording patches media metadata on a not-yet-complete track. Every
// patch stamps last_chunk_at.
func (s *Recordings) UpdateRecording(ctx context.Context, id uuid.UUID, p recordings.UpdateRecordingParams) (*models.ParticipantRecording, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	rec, ok := s.st.recordingsByID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
	}
	if rec.IsComplete {
		return nil, apperr.InvalidState(apperr.CodeRecordingAlreadyComplete, "recording is already complete")
	}
	if p.MimeType != nil {
		rec.MimeType = *p.MimeType
	}
	if p.Width != nil {
		rec.Width = *p.Width
	}
	if p.Height != nil {
		rec.Height = *p.Height
	}
	if p.ExpectedSegments != nil {
		v := *p.ExpectedSegments
		rec.ExpectedSegments = &v
	}
	now := time.Now()
	rec.LastChunkAt = &now
	rec.UpdatedAt = now
	return copyRecording(rec), nil
}

// CompleteRecording finalizes a track: it becomes complete only when the
// ledger covers the declared count, so a short complete leaves the track open
// for the missing appends and a retried complete.
func (s *Recordings) CompleteRecording(ctx context.Context, id uuid.UUID, expectedSegments int) (*models.ParticipantRecording, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	rec, ok := s.st.recordingsByID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
	}
	if rec.IsComplete {
		return nil, apperr.InvalidState(apperr.CodeRecordingAlreadyComplete, "recording is already complete")
	}
	rec.ExpectedSegments = &expectedSegments
	if rec.UploadedSegments >= expectedSegments {
		rec.IsComplete = true
		rec.Status = models.ParticipantRecordingUploaded
	}
	rec.UpdatedAt = time.Now()
	return copyRecording(rec), nil
}

// GetRecording returns a track by id.
func (s *Recordings) GetRecording(ctx context.Context, id uuid.UUID) (*models.ParticipantRecording, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	rec, ok := s.st.recordingsByID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
	}
	return copyRecording(rec), nil
}

// ListRecordings returns a session's tracks in creation order.
func (s *Recordings) ListRecordings(ctx context.Context, sessionID uuid.UUID) ([]models.ParticipantRecording, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	out := []models.ParticipantRecording{}
	for _, rec := range s.st.recordingsByID {
		if rec.RecordingSessionID == sessionID {
			out = append(out, *copyRecording(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetRecordingStatus force-sets a track's status.
func (s *Recordings) SetRecordingStatus(ctx context.Context, id uuid.UUID, status models.ParticipantRecordingStatus) (*models.ParticipantRecording, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	rec, ok := s.st.recordingsByID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	return copyRecording(rec), nil
}

// Segments implements segments.Store.
type Segments struct {
	st *state
}

// Append records a chunk and increments the owning recording's counter.
func (s *Segments) Append(ctx context.Context, p segments.AppendParams) (*models.RecordingSegment, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	rec, ok := s.st.recordingsByID[p.ParticipantRecordingID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
	}
	if rec.IsComplete {
		return nil, apperr.InvalidState(apperr.CodeRecordingAlreadyComplete, "recording is already complete")
	}
	now := time.Now()
	seg := &models.RecordingSegment{
		ID:                     uuid.New(),
		ParticipantRecordingID: p.ParticipantRecordingID,
		SequenceNumber:         p.SequenceNumber,
		AssetKey:               p.AssetKey,
		StartMs:                p.StartMs,
		DurationMs:             p.DurationMs,
		SizeBytes:              p.SizeBytes,
		Checksum:               p.Checksum,
		Status:                 models.SegmentStatusUploaded,
		UploadedAt:             now,
	}
	s.st.segmentsByRec[p.ParticipantRecordingID] = append(s.st.segmentsByRec[p.ParticipantRecordingID], seg)
	rec.UploadedSegments++
	rec.LastChunkAt = &now
	rec.UpdatedAt = now
	return copySegment(seg), nil
}

// List returns a recording's segments ordered by sequence number.
func (s *Segments) List(ctx context.Context, recordingID uuid.UUID) ([]models.RecordingSegment, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	out := []models.RecordingSegment{}
	for _, seg := range s.st.segmentsByRec[recordingID] {
		out = append(out, *copySegment(seg))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceNumber != out[j].SequenceNumber {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

// SetStatus marks a segment UPLOADED or MISSING.
func (s *Segments) SetStatus(ctx context.Context, segmentID uuid.UUID, status models.SegmentStatus) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, list := range s.st.segmentsByRec {
		for _, seg := range list {
			if seg.ID == segmentID {
				seg.Status = status
				return nil
			}
		}
	}
	return apperr.NotFound(apperr.CodeRecordingNotFound, "segment not found")
}

// --- shared helpers ---

func (st *state) spaceLocked(id uuid.UUID) (*models.Space, error) {
	space, ok := st.spacesByID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
	}
	return copySpace(space), nil
}

func (st *state) findMemberLocked(p participants.JoinParams) *models.Participant {
	for _, m := range st.participantsBy {
		if m.SpaceID != p.SpaceID {
			continue
		}
		if p.UserID != nil {
			if m.UserID != nil && *m.UserID == *p.UserID {
				return m
			}
			continue
		}
		if m.IsGuest && m.ParticipantSessionID == p.SessionID {
			return m
		}
	}
	return nil
}

// --- copies ---

func copySpace(s *models.Space) *models.Space {
	out := *s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.DurationSeconds != nil {
		d := *s.DurationSeconds
		out.DurationSeconds = &d
	}
	return &out
}

func copyParticipant(p *models.Participant) *models.Participant {
	out := *p
	if p.UserID != nil {
		id := *p.UserID
		out.UserID = &id
	}
	if p.LeftAt != nil {
		t := *p.LeftAt
		out.LeftAt = &t
	}
	return &out
}

func copySession(s *models.RecordingSession) *models.RecordingSession {
	out := *s
	if s.StoppedAt != nil {
		t := *s.StoppedAt
		out.StoppedAt = &t
	}
	return &out
}

func copyRecording(r *models.ParticipantRecording) *models.ParticipantRecording {
	out := *r
	if r.ExpectedSegments != nil {
		v := *r.ExpectedSegments
		out.ExpectedSegments = &v
	}
	if r.LastChunkAt != nil {
		t := *r.LastChunkAt
		out.LastChunkAt = &t
	}
	return &out
}

func copySegment(s *models.RecordingSegment) *models.RecordingSegment {
	out := *s
	return &out
}
