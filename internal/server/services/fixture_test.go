package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/dbx"
	"github.com/lockerhq/locker/internal/logging"
	"github.com/lockerhq/locker/internal/server/models"
	"github.com/lockerhq/locker/internal/server/notify"
	ciphersrepo "github.com/lockerhq/locker/internal/server/repositories/ciphers"
	collectionsrepo "github.com/lockerhq/locker/internal/server/repositories/collections"
	foldersrepo "github.com/lockerhq/locker/internal/server/repositories/folders"
	groupsrepo "github.com/lockerhq/locker/internal/server/repositories/groups"
	membersrepo "github.com/lockerhq/locker/internal/server/repositories/members"
	teamsrepo "github.com/lockerhq/locker/internal/server/repositories/teams"
	usersrepo "github.com/lockerhq/locker/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// expectTxs queues n transaction outcomes of either kind; the fake repos
// never touch the real connection, so transaction boundaries are all
// sqlmock sees. Unordered matching lets commits and rollbacks interleave.
func expectTxs(mock sqlmock.Sqlmock, n int) {
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
}

// fixIDs makes the id and clock seams deterministic for one test.
func fixIDs(t *testing.T) {
	t.Helper()
	origNew, origRand, origNow := newID, randTeamID, nowFunc

	var uuidSeq int
	newID = func() string {
		uuidSeq++
		return fmt.Sprintf("id-%04d", uuidSeq)
	}
	var teamSeq int64 = 100_000_000
	randTeamID = func() int64 {
		teamSeq++
		return teamSeq
	}
	nowFunc = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	t.Cleanup(func() {
		newID, randTeamID, nowFunc = origNew, origRand, origNow
	})
}

// --- in-memory store ---

// memStore holds the whole sharing state in maps so service tests can run
// multi-step scenarios without a database. Not safe for concurrent use.
type memStore struct {
	users   map[string]*models.User
	teams   map[int64]*models.Team
	members map[string]*models.TeamMember

	groups      map[int64]*models.Group
	groupLinks  map[int64]map[string]bool // group id -> member ids
	egMembers   map[string][]string       // enterprise group id -> user ids
	nextGroupID int64

	collections map[string]*models.Collection
	colMembers  map[string]*models.CollectionMember // collection id + "/" + member id
	colCiphers  map[string]map[string]bool          // collection id -> cipher ids

	ciphers map[string]*models.Cipher
	folders map[string]*models.Folder
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*models.User{},
		teams:       map[int64]*models.Team{},
		members:     map[string]*models.TeamMember{},
		groups:      map[int64]*models.Group{},
		groupLinks:  map[int64]map[string]bool{},
		egMembers:   map[string][]string{},
		collections: map[string]*models.Collection{},
		colMembers:  map[string]*models.CollectionMember{},
		colCiphers:  map[string]map[string]bool{},
		ciphers:     map[string]*models.Cipher{},
		folders:     map[string]*models.Folder{},
	}
}

func (s *memStore) addUser(id, email string) *models.User {
	u := &models.User{ID: id, Email: email, Activated: true}
	s.users[id] = u
	return u
}

func (s *memStore) addCipher(id, userID string, typ int) *models.Cipher {
	uid := userID
	c := &models.Cipher{ID: id, UserID: &uid, Type: typ, Folders: map[string]string{}}
	s.ciphers[id] = c
	return c
}

func (s *memStore) addFolder(id, userID, name string) *models.Folder {
	f := &models.Folder{ID: id, UserID: userID, Name: name}
	s.folders[id] = f
	return f
}

func (s *memStore) memberByTeamAndUser(teamID int64, userID string) *models.TeamMember {
	for _, m := range s.members {
		if m.TeamID == teamID && m.HasUser() && *m.UserID == userID {
			return m
		}
	}
	return nil
}

// deleteMember removes a member row along with its group links, the way
// the ON DELETE CASCADE constraints do.
func (s *memStore) deleteMember(id string) {
	delete(s.members, id)
	for _, links := range s.groupLinks {
		delete(links, id)
	}
}

func (s *memStore) deleteTeam(id int64) {
	delete(s.teams, id)
	for mid, m := range s.members {
		if m.TeamID == id {
			s.deleteMember(mid)
		}
	}
	for gid, g := range s.groups {
		if g.TeamID == id {
			delete(s.groups, gid)
			delete(s.groupLinks, gid)
		}
	}
	for cid, c := range s.collections {
		if c.TeamID == id {
			s.deleteCollection(cid)
		}
	}
}

func (s *memStore) deleteCollection(id string) {
	delete(s.collections, id)
	delete(s.colCiphers, id)
	for k, cm := range s.colMembers {
		if cm.CollectionID == id {
			delete(s.colMembers, k)
		}
	}
}

// --- fake repositories over the store ---

type fakeUsers struct{ s *memStore }

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.s.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetActivatedByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.s.users {
		if u.Email == email && u.Activated {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) BumpRevision(_ context.Context, ids []string, at time.Time) error {
	for _, id := range ids {
		if u, ok := f.s.users[id]; ok {
			u.RevisionDate = at
		}
	}
	return nil
}

type fakeTeams struct{ s *memStore }

func (f fakeTeams) Create(_ context.Context, team *models.Team) error {
	f.s.teams[team.ID] = team
	return nil
}

func (f fakeTeams) GetByID(_ context.Context, id int64) (*models.Team, error) {
	if t, ok := f.s.teams[id]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeTeams) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.s.teams[id]
	return ok, nil
}

func (f fakeTeams) Delete(_ context.Context, id int64) error {
	f.s.deleteTeam(id)
	return nil
}

type fakeMembers struct{ s *memStore }

func (f fakeMembers) Create(_ context.Context, m *models.TeamMember) error {
	f.s.members[m.ID] = m
	return nil
}

func (f fakeMembers) GetByID(_ context.Context, id string) (*models.TeamMember, error) {
	if m, ok := f.s.members[id]; ok {
		return m, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeMembers) GetByTeamAndUser(_ context.Context, teamID int64, userID string) (*models.TeamMember, error) {
	if m := f.s.memberByTeamAndUser(teamID, userID); m != nil {
		return m, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeMembers) GetByTeamAndEmail(_ context.Context, teamID int64, email string) (*models.TeamMember, error) {
	for _, m := range f.s.members {
		if m.TeamID == teamID && m.Email != nil && *m.Email == email {
			return m, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeMembers) GetPrimaryOwner(_ context.Context, teamID int64) (*models.TeamMember, error) {
	for _, m := range f.s.members {
		if m.TeamID == teamID && m.IsPrimary {
			return m, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeMembers) ListByTeam(_ context.Context, teamID int64) ([]*models.TeamMember, error) {
	var out []*models.TeamMember
	for _, m := range f.s.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeMembers) Update(_ context.Context, m *models.TeamMember) error {
	f.s.members[m.ID] = m
	return nil
}

func (f fakeMembers) Delete(_ context.Context, id string) error {
	f.s.deleteMember(id)
	return nil
}

func (f fakeMembers) CountNonOwners(_ context.Context, teamID int64) (int, error) {
	n := 0
	for _, m := range f.s.members {
		if m.TeamID == teamID && !m.IsPrimary {
			n++
		}
	}
	return n, nil
}

func (f fakeMembers) SelectAffectedUserIDs(_ context.Context, teamID int64, roles []string, collectionIDs []string) ([]string, error) {
	var out []string
	for _, m := range f.s.members {
		if m.TeamID != teamID || m.Status != common.StatusConfirmed || !m.HasUser() {
			continue
		}
		if len(roles) > 0 || len(collectionIDs) > 0 {
			hit := slices.Contains(roles, m.Role)
			for _, cid := range collectionIDs {
				if _, ok := f.s.colMembers[cid+"/"+m.ID]; ok {
					hit = true
				}
			}
			if !hit {
				continue
			}
		}
		out = append(out, *m.UserID)
	}
	sort.Strings(out)
	return out, nil
}

type fakeGroups struct{ s *memStore }

func (f fakeGroups) Create(_ context.Context, g *models.Group) (*models.Group, error) {
	f.s.nextGroupID++
	created := *g
	created.ID = f.s.nextGroupID
	f.s.groups[created.ID] = &created
	f.s.groupLinks[created.ID] = map[string]bool{}
	return &created, nil
}

func (f fakeGroups) GetByID(_ context.Context, id int64) (*models.Group, error) {
	if g, ok := f.s.groups[id]; ok {
		return g, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeGroups) GetByTeamAndEnterpriseGroup(_ context.Context, teamID int64, egID string) (*models.Group, error) {
	for _, g := range f.s.groups {
		if g.TeamID == teamID && g.EnterpriseGroupID == egID {
			return g, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeGroups) ListByEnterpriseGroup(_ context.Context, egID string) ([]*models.Group, error) {
	var out []*models.Group
	for _, g := range f.s.groups {
		if g.EnterpriseGroupID == egID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeGroups) UpdateRole(_ context.Context, id int64, role string) error {
	g, ok := f.s.groups[id]
	if !ok {
		return common.ErrorNotFound
	}
	g.Role = role
	return nil
}

func (f fakeGroups) Delete(_ context.Context, id int64) error {
	delete(f.s.groups, id)
	delete(f.s.groupLinks, id)
	return nil
}

func (f fakeGroups) AddMember(_ context.Context, groupID int64, memberID string) error {
	if f.s.groupLinks[groupID] == nil {
		f.s.groupLinks[groupID] = map[string]bool{}
	}
	f.s.groupLinks[groupID][memberID] = true
	return nil
}

func (f fakeGroups) ListMemberIDs(_ context.Context, groupID int64) ([]string, error) {
	var out []string
	for id := range f.s.groupLinks[groupID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f fakeGroups) ListByMember(_ context.Context, memberID string) ([]*models.Group, error) {
	var out []*models.Group
	for gid, links := range f.s.groupLinks {
		if links[memberID] {
			out = append(out, f.s.groups[gid])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeGroups) ListEnterpriseGroupUserIDs(_ context.Context, egID string) ([]string, error) {
	return f.s.egMembers[egID], nil
}

type fakeCollections struct{ s *memStore }

func (f fakeCollections) Create(_ context.Context, c *models.Collection) error {
	f.s.collections[c.ID] = c
	return nil
}

func (f fakeCollections) GetByID(_ context.Context, id string) (*models.Collection, error) {
	if c, ok := f.s.collections[id]; ok {
		return c, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeCollections) ListByTeam(_ context.Context, teamID int64) ([]*models.Collection, error) {
	var out []*models.Collection
	for _, c := range f.s.collections {
		if c.TeamID == teamID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeCollections) Delete(_ context.Context, id string) error {
	f.s.deleteCollection(id)
	return nil
}

func (f fakeCollections) UpsertMember(_ context.Context, cm *models.CollectionMember) error {
	f.s.colMembers[cm.CollectionID+"/"+cm.MemberID] = cm
	return nil
}

func (f fakeCollections) ListMembersByMember(_ context.Context, memberID string) ([]*models.CollectionMember, error) {
	var out []*models.CollectionMember
	for _, cm := range f.s.colMembers {
		if cm.MemberID == memberID {
			out = append(out, cm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectionID < out[j].CollectionID })
	return out, nil
}

func (f fakeCollections) DeleteMembersByMember(_ context.Context, memberID string) error {
	for k, cm := range f.s.colMembers {
		if cm.MemberID == memberID {
			delete(f.s.colMembers, k)
		}
	}
	return nil
}

func (f fakeCollections) AttachCipher(_ context.Context, collectionID, cipherID string) error {
	if f.s.colCiphers[collectionID] == nil {
		f.s.colCiphers[collectionID] = map[string]bool{}
	}
	f.s.colCiphers[collectionID][cipherID] = true
	return nil
}

func (f fakeCollections) ListCollectionIDsByCipher(_ context.Context, cipherID string) ([]string, error) {
	var out []string
	for cid, set := range f.s.colCiphers {
		if set[cipherID] {
			out = append(out, cid)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeCiphers struct{ s *memStore }

func (f fakeCiphers) GetByID(_ context.Context, id string) (*models.Cipher, error) {
	if c, ok := f.s.ciphers[id]; ok {
		return c, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeCiphers) GetByIDForUpdate(ctx context.Context, id string) (*models.Cipher, error) {
	return f.GetByID(ctx, id)
}

func (f fakeCiphers) ListByFolder(_ context.Context, userID, folderID string) ([]*models.Cipher, error) {
	var out []*models.Cipher
	for _, c := range f.s.ciphers {
		if c.UserID != nil && *c.UserID == userID && c.Folders[userID] == folderID && !c.Deleted() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeCiphers) MoveToTeam(_ context.Context, ids []string, teamID int64) error {
	for _, id := range ids {
		c, ok := f.s.ciphers[id]
		if !ok {
			return common.ErrorNotFound
		}
		tid := teamID
		c.UserID = nil
		c.TeamID = &tid
		c.Folders = map[string]string{}
	}
	return nil
}

func (f fakeCiphers) MoveToUser(_ context.Context, teamID int64, userID string, folderID *string) error {
	for _, c := range f.s.ciphers {
		if c.TeamID == nil || *c.TeamID != teamID {
			continue
		}
		uid := userID
		c.TeamID = nil
		c.UserID = &uid
		c.Folders = map[string]string{}
		if folderID != nil {
			c.Folders[userID] = *folderID
		}
	}
	return nil
}

func (f fakeCiphers) SoftDeleteToUser(_ context.Context, teamID int64, userID string, at time.Time) error {
	for _, c := range f.s.ciphers {
		if c.TeamID == nil || *c.TeamID != teamID {
			continue
		}
		uid, when := userID, at
		c.TeamID = nil
		c.UserID = &uid
		c.Folders = map[string]string{}
		c.DeletedDate = &when
	}
	return nil
}

type fakeFolders struct{ s *memStore }

func (f fakeFolders) Create(_ context.Context, folder *models.Folder) error {
	f.s.folders[folder.ID] = folder
	return nil
}

func (f fakeFolders) GetByID(_ context.Context, id string) (*models.Folder, error) {
	if folder, ok := f.s.folders[id]; ok {
		return folder, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeFolders) Delete(_ context.Context, id string) error {
	delete(f.s.folders, id)
	return nil
}

// fakeRepoManager vends store-backed repos regardless of the handle, so
// the same state is visible inside and outside transactions.
type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error      { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository              { return fakeUsers{m.s} }
func (m *fakeRepoManager) Teams(dbx.DBTX) teamsrepo.Repository              { return fakeTeams{m.s} }
func (m *fakeRepoManager) Members(dbx.DBTX) membersrepo.Repository          { return fakeMembers{m.s} }
func (m *fakeRepoManager) Groups(dbx.DBTX) groupsrepo.Repository            { return fakeGroups{m.s} }
func (m *fakeRepoManager) Collections(dbx.DBTX) collectionsrepo.Repository  { return fakeCollections{m.s} }
func (m *fakeRepoManager) Ciphers(dbx.DBTX) ciphersrepo.Repository          { return fakeCiphers{m.s} }
func (m *fakeRepoManager) Folders(dbx.DBTX) foldersrepo.Repository          { return fakeFolders{m.s} }

// captureNotifier records published events on a buffered channel; Publish
// runs on a service-owned goroutine, so tests read with awaitEvent.
type captureNotifier struct{ ch chan notify.SyncEvent }

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan notify.SyncEvent, 16)}
}

func (n *captureNotifier) Publish(_ context.Context, e notify.SyncEvent) error {
	n.ch <- e
	return nil
}

func awaitEvent(t *testing.T, n *captureNotifier) notify.SyncEvent {
	t.Helper()
	select {
	case e := <-n.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync event")
		return notify.SyncEvent{}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }
