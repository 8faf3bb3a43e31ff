package roles

import (
	"context"
	"strconv"
	"sync"
)

// InMemoryRegistry simulates the platform role surface for tests and local
// runs without a chat connection.
type InMemoryRegistry struct {
	mu      sync.Mutex
	nextID  int
	roles   map[string]map[string]RoleRef     // communityID -> name -> role
	members map[string]map[string]map[string]bool // communityID -> userID -> roleID
	created int
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		roles:   make(map[string]map[string]RoleRef),
		members: make(map[string]map[string]map[string]bool),
	}
}

func (r *InMemoryRegistry) GetRole(_ context.Context, communityID, name string) (RoleRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.roles[communityID][name]; ok {
		return role, nil
	}
	return RoleRef{}, ErrRoleNotFound
}

func (r *InMemoryRegistry) CreateRole(_ context.Context, communityID, name string) (RoleRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roles[communityID] == nil {
		r.roles[communityID] = make(map[string]RoleRef)
	}
	if role, ok := r.roles[communityID][name]; ok {
		return role, nil
	}
	r.nextID++
	r.created++
	role := RoleRef{ID: "role-" + strconv.Itoa(r.nextID), Name: name}
	r.roles[communityID][name] = role
	return role, nil
}

func (r *InMemoryRegistry) AddRole(_ context.Context, communityID, userID string, role RoleRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[communityID] == nil {
		r.members[communityID] = make(map[string]map[string]bool)
	}
	if r.members[communityID][userID] == nil {
		r.members[communityID][userID] = make(map[string]bool)
	}
	r.members[communityID][userID][role.ID] = true
	return nil
}

func (r *InMemoryRegistry) RemoveRole(_ context.Context, communityID, userID string, role RoleRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[communityID][userID], role.ID)
	return nil
}

func (r *InMemoryRegistry) HasRole(_ context.Context, communityID, userID string, role RoleRef) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[communityID][userID][role.ID], nil
}

// RolesCreated reports how many distinct roles were created, for idempotence
// assertions in tests.
func (r *InMemoryRegistry) RolesCreated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}
