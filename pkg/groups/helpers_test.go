package groups

import (
	"context"
	"sync"
	"time"
)

type memberKey struct {
	groupID, userID int64
}

// memoryStore is an in-memory Store for tests
type memoryStore struct {
	mu       sync.Mutex
	groups   map[int64]*Group
	members  map[memberKey]*Membership
	comics   map[int64]*Comic
	chapters map[int64]*Chapter
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		groups:   make(map[int64]*Group),
		members:  make(map[memberKey]*Membership),
		comics:   make(map[int64]*Comic),
		chapters: make(map[int64]*Chapter),
	}
}

// seedStore builds group 1 owned by user 100, with leader 10 and member 20,
// comic 5 in group 1 and chapter 50 in comic 5.
func seedStore() *memoryStore {
	s := newMemoryStore()
	s.groups[1] = &Group{ID: 1, Name: "Night Owls", OwnerID: 100}
	s.members[memberKey{1, 10}] = &Membership{GroupID: 1, UserID: 10, Role: RoleLeader}
	s.members[memberKey{1, 20}] = &Membership{GroupID: 1, UserID: 20, Role: RoleMember}
	s.comics[5] = &Comic{ID: 5, GroupID: 1, Title: "Moonlit"}
	s.chapters[50] = &Chapter{ID: 50, ComicID: 5, Number: 1}
	return s
}

func (s *memoryStore) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	c := *g
	return &c, nil
}

func (s *memoryStore) GetMembership(ctx context.Context, groupID, userID int64) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.members[memberKey{groupID, userID}]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	c := *m
	return &c, nil
}

func (s *memoryStore) GetComic(ctx context.Context, comicID int64) (*Comic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.comics[comicID]
	if !ok {
		return nil, ErrResourceNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) GetChapter(ctx context.Context, chapterID int64) (*Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.chapters[chapterID]
	if !ok {
		return nil, ErrResourceNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	members := []*Member{}
	for k, m := range s.members {
		if k.groupID == groupID {
			members = append(members, &Member{Membership: *m})
		}
	}
	return members, nil
}

func (s *memoryStore) AddMember(ctx context.Context, groupID, userID int64, role Role) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	k := memberKey{groupID, userID}
	if _, ok := s.members[k]; ok {
		return nil, ErrDuplicateMembership
	}
	m := &Membership{GroupID: groupID, UserID: userID, Role: role, JoinedAt: time.Now()}
	s.members[k] = m
	c := *m
	return &c, nil
}

func (s *memoryStore) UpdateMemberRole(ctx context.Context, groupID, userID int64, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{groupID, userID}]
	if !ok {
		return ErrMembershipNotFound
	}
	m.Role = role
	return nil
}

func (s *memoryStore) RemoveMember(ctx context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{groupID, userID}
	if _, ok := s.members[k]; !ok {
		return ErrMembershipNotFound
	}
	delete(s.members, k)
	return nil
}

func (s *memoryStore) TransferLeadership(ctx context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.members[memberKey{groupID, userID}]
	if !ok {
		return ErrMembershipNotFound
	}
	for k, m := range s.members {
		if k.groupID == groupID && m.Role == RoleLeader {
			m.Role = RoleMember
		}
	}
	target.Role = RoleLeader
	return nil
}

func (s *memoryStore) role(groupID, userID int64) Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.members[memberKey{groupID, userID}]; ok {
		return m.Role
	}
	return ""
}

type emitted struct {
	identityID int64
	event      string
	payload    any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) Emit(identityID int64, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{identityID, event, payload})
}
