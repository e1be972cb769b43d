// Package testutil contains in-memory stores and fakes shared by tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

// MemStore 内存版记录存储，唯一约束与数据库一致（冲突返回 gorm.ErrDuplicatedKey）
type MemStore struct {
	mu    sync.Mutex
	seq   int
	clock time.Time

	users       map[int]model.User
	lists       map[int]model.List
	memberships map[int]model.ListMembership
	movies      map[int]model.Movie
	history     map[int]model.WatchedHistoryItem
	attendance  map[int]model.Attendance

	// Fail 按操作名注入错误，如 "lists.Update"、"memberships.Find"
	Fail map[string]error
	// writes 成功的写操作次数
	writes int

	Users       *MemUsers
	Lists       *MemLists
	Memberships *MemMemberships
	Movies      *MemMovies
	History     *MemHistory
	Attendance  *MemAttendance
	Feed        *MemFeed
}

func NewMemStore() *MemStore {
	s := &MemStore{
		clock:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		users:       map[int]model.User{},
		lists:       map[int]model.List{},
		memberships: map[int]model.ListMembership{},
		movies:      map[int]model.Movie{},
		history:     map[int]model.WatchedHistoryItem{},
		attendance:  map[int]model.Attendance{},
		Fail:        map[string]error{},
	}
	s.Users = &MemUsers{s}
	s.Lists = &MemLists{s}
	s.Memberships = &MemMemberships{s}
	s.Movies = &MemMovies{s}
	s.History = &MemHistory{s}
	s.Attendance = &MemAttendance{s}
	s.Feed = &MemFeed{s}
	return s
}

// Writes 成功的写操作次数
func (s *MemStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// 调用方必须持有锁
func (s *MemStore) fail(op string) error {
	return s.Fail[op]
}

func (s *MemStore) nextID() int {
	s.seq++
	return s.seq
}

// tick 每次创建推进一秒，保证排序稳定
func (s *MemStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// AddUser 直接写入用户
func (s *MemStore) AddUser(email, name string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{ID: s.nextID(), Email: email, Username: email, Name: name, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return &u
}

// AddList 直接写入清单
func (s *MemStore) AddList(ownerID int, title string, private bool) *model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	l := model.List{ID: s.nextID(), Title: title, OwnerID: ownerID, IsPrivate: private, CreatedAt: now, UpdatedAt: now}
	s.lists[l.ID] = l
	return &l
}

// AddMovie 直接写入电影
func (s *MemStore) AddMovie(tmdbID, title, poster string) *model.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := model.Movie{ID: s.nextID(), TMDBID: tmdbID, Title: title, PosterPath: poster, CreatedAt: s.tick()}
	s.movies[m.ID] = m
	return &m
}

// AddHistory 直接写入观影记录
func (s *MemStore) AddHistory(listID, movieID int) *model.WatchedHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	h := model.WatchedHistoryItem{ID: s.nextID(), ListID: listID, MovieID: movieID, WatchedAt: now, CreatedAt: now}
	s.history[h.ID] = h
	return &h
}

// AddAttendance 直接写入个人评分
func (s *MemStore) AddAttendance(historyID, userID int, rating float64, review string) *model.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	a := model.Attendance{ID: s.nextID(), WatchedHistoryID: historyID, UserID: userID, Rating: rating, Review: review, CreatedAt: now, UpdatedAt: now}
	s.attendance[a.ID] = a
	return &a
}

// AddMembership 直接写入成员关系
func (s *MemStore) AddMembership(listID, userID int, permission string) *model.ListMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := model.ListMembership{ID: s.nextID(), ListID: listID, InvitedUserID: userID, Permission: permission, CreatedAt: s.tick()}
	s.memberships[m.ID] = m
	return &m
}

// List 读取清单（包括已删除的）
func (s *MemStore) List(id int) (model.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	return l, ok
}

// HistoryItem 读取观影记录
func (s *MemStore) HistoryItem(id int) (model.WatchedHistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	return h, ok
}

// CountLists 统计满足条件的清单
func (s *MemStore) CountLists(match func(model.List) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lists {
		if match(l) {
			n++
		}
	}
	return n
}

// CountHistory 统计某清单的观影记录
func (s *MemStore) CountHistory(listID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.history {
		if h.ListID == listID {
			n++
		}
	}
	return n
}

// CountMemberships 统计 (list, user) 成员记录
func (s *MemStore) CountMemberships(listID, userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memberships {
		if m.ListID == listID && m.InvitedUserID == userID {
			n++
		}
	}
	return n
}

// CountAttendance 统计 (history, user) 评分记录
func (s *MemStore) CountAttendance(historyID, userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attendance {
		if a.WatchedHistoryID == historyID && a.UserID == userID {
			n++
		}
	}
	return n
}

// MemUsers 用户
type MemUsers struct{ s *MemStore }

func (r *MemUsers) FindByID(ctx context.Context, id int) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemUsers) ListExcept(ctx context.Context, excludeID, limit int) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.ListExcept"); err != nil {
		return nil, err
	}
	out := []*model.User{}
	for _, u := range r.s.users {
		if u.ID == excludeID {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemUsers) UpdateProfile(ctx context.Context, userID int, name, bio, shortHand, avatar string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.UpdateProfile"); err != nil {
		return err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name != "" {
		u.Name = name
	}
	if bio != "" {
		u.Bio = bio
	}
	if shortHand != "" {
		u.ShortHand = shortHand
	}
	if avatar != "" {
		u.Avatar = avatar
	}
	r.s.users[userID] = u
	r.s.writes++
	return nil
}

// MemLists 清单
type MemLists struct{ s *MemStore }

func (r *MemLists) FindActive(ctx context.Context, id int) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.FindActive"); err != nil {
		return nil, err
	}
	l, ok := r.s.lists[id]
	if !ok || l.IsDeleted {
		return nil, nil
	}
	return &l, nil
}

func (r *MemLists) FindByOwnerAndTitle(ctx context.Context, ownerID int, title string) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.FindByOwnerAndTitle"); err != nil {
		return nil, err
	}
	var found *model.List
	for _, l := range r.s.lists {
		if l.OwnerID != ownerID || l.Title != title || l.IsDeleted {
			continue
		}
		if found == nil || l.ID < found.ID {
			l := l
			found = &l
		}
	}
	return found, nil
}

func (r *MemLists) FindDefault(ctx context.Context, ownerID int) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.FindDefault"); err != nil {
		return nil, err
	}
	for _, l := range r.s.lists {
		if l.DefaultOwnerID != nil && *l.DefaultOwnerID == ownerID {
			l := l
			return &l, nil
		}
	}
	return nil, nil
}

func (r *MemLists) ReleaseDefault(ctx context.Context, listID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.ReleaseDefault"); err != nil {
		return err
	}
	l, ok := r.s.lists[listID]
	if !ok {
		return nil
	}
	l.DefaultOwnerID = nil
	r.s.lists[listID] = l
	r.s.writes++
	return nil
}

func (r *MemLists) Create(ctx context.Context, list *model.List) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.Create"); err != nil {
		return err
	}
	if list.DefaultOwnerID != nil {
		for _, l := range r.s.lists {
			if l.DefaultOwnerID != nil && *l.DefaultOwnerID == *list.DefaultOwnerID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	list.ID = r.s.nextID()
	now := r.s.tick()
	list.CreatedAt = now
	list.UpdatedAt = now
	stored := *list
	stored.Owner = nil
	r.s.lists[list.ID] = stored
	r.s.writes++
	return nil
}

func (r *MemLists) Update(ctx context.Context, list *model.List) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.Update"); err != nil {
		return err
	}
	l, ok := r.s.lists[list.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Title = list.Title
	l.Description = list.Description
	l.IsPrivate = list.IsPrivate
	l.IsDeleted = list.IsDeleted
	l.UpdatedAt = r.s.tick()
	r.s.lists[list.ID] = l
	r.s.writes++
	return nil
}

func (r *MemLists) ListOwned(ctx context.Context, ownerID int) ([]*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.ListOwned"); err != nil {
		return nil, err
	}
	out := []*model.List{}
	for _, l := range r.s.lists {
		if l.OwnerID == ownerID && !l.IsDeleted {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// MemMemberships 成员
type MemMemberships struct{ s *MemStore }

func (r *MemMemberships) Find(ctx context.Context, listID, userID int) (*model.ListMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("memberships.Find"); err != nil {
		return nil, err
	}
	for _, m := range r.s.memberships {
		if m.ListID == listID && m.InvitedUserID == userID {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MemMemberships) Create(ctx context.Context, m *model.ListMembership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("memberships.Create"); err != nil {
		return err
	}
	for _, e := range r.s.memberships {
		if e.ListID == m.ListID && e.InvitedUserID == m.InvitedUserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if m.Permission == "" {
		m.Permission = model.PermissionView
	}
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.tick()
	stored := *m
	stored.List, stored.InvitedUser = nil, nil
	r.s.memberships[m.ID] = stored
	r.s.writes++
	return nil
}

func (r *MemMemberships) UpdatePermission(ctx context.Context, id int, permission string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("memberships.UpdatePermission"); err != nil {
		return err
	}
	m, ok := r.s.memberships[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.Permission = permission
	r.s.memberships[id] = m
	r.s.writes++
	return nil
}

func (r *MemMemberships) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("memberships.Delete"); err != nil {
		return err
	}
	delete(r.s.memberships, id)
	r.s.writes++
	return nil
}

func (r *MemMemberships) ListByList(ctx context.Context, listID int) ([]*model.ListMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("memberships.ListByList"); err != nil {
		return nil, err
	}
	out := []*model.ListMembership{}
	for _, m := range r.s.memberships {
		if m.ListID != listID {
			continue
		}
		m := m
		if u, ok := r.s.users[m.InvitedUserID]; ok {
			m.InvitedUser = &u
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MemMemberships) ListByUser(ctx context.Context, userID int) ([]*model.ListMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("memberships.ListByUser"); err != nil {
		return nil, err
	}
	out := []*model.ListMembership{}
	for _, m := range r.s.memberships {
		if m.InvitedUserID != userID {
			continue
		}
		m := m
		if l, ok := r.s.lists[m.ListID]; ok {
			m.List = &l
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// MemMovies 电影
type MemMovies struct{ s *MemStore }

func (r *MemMovies) FindByTMDBID(ctx context.Context, tmdbID string) (*model.Movie, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("movies.FindByTMDBID"); err != nil {
		return nil, err
	}
	for _, m := range r.s.movies {
		if m.TMDBID == tmdbID {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MemMovies) Create(ctx context.Context, movie *model.Movie) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("movies.Create"); err != nil {
		return err
	}
	for _, m := range r.s.movies {
		if m.TMDBID == movie.TMDBID {
			return gorm.ErrDuplicatedKey
		}
	}
	movie.ID = r.s.nextID()
	movie.CreatedAt = r.s.tick()
	r.s.movies[movie.ID] = *movie
	r.s.writes++
	return nil
}

// MovieCount 电影总数
func (r *MemMovies) MovieCount() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.movies)
}

// MemHistory 观影记录
type MemHistory struct{ s *MemStore }

func (r *MemHistory) FindByID(ctx context.Context, id int) (*model.WatchedHistoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.FindByID"); err != nil {
		return nil, err
	}
	h, ok := r.s.history[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *MemHistory) FindByListAndMovie(ctx context.Context, listID, movieID int) (*model.WatchedHistoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.FindByListAndMovie"); err != nil {
		return nil, err
	}
	for _, h := range r.s.history {
		if h.ListID == listID && h.MovieID == movieID {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (r *MemHistory) Create(ctx context.Context, item *model.WatchedHistoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.Create"); err != nil {
		return err
	}
	for _, h := range r.s.history {
		if h.ListID == item.ListID && h.MovieID == item.MovieID {
			return gorm.ErrDuplicatedKey
		}
	}
	item.ID = r.s.nextID()
	item.CreatedAt = r.s.tick()
	stored := *item
	stored.List, stored.Movie = nil, nil
	r.s.history[item.ID] = stored
	r.s.writes++
	return nil
}

func (r *MemHistory) Update(ctx context.Context, item *model.WatchedHistoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.Update"); err != nil {
		return err
	}
	h, ok := r.s.history[item.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	h.WatchedAt = item.WatchedAt
	h.TMDBScore = copyFloat(item.TMDBScore)
	h.IMDbScore = copyFloat(item.IMDbScore)
	if item.RTScore != nil {
		v := *item.RTScore
		h.RTScore = &v
	} else {
		h.RTScore = nil
	}
	r.s.history[item.ID] = h
	r.s.writes++
	return nil
}

func (r *MemHistory) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.Delete"); err != nil {
		return err
	}
	for aid, a := range r.s.attendance {
		if a.WatchedHistoryID == id {
			delete(r.s.attendance, aid)
		}
	}
	delete(r.s.history, id)
	r.s.writes++
	return nil
}

func (r *MemHistory) ListByList(ctx context.Context, listID, limit, offset int) ([]*model.WatchedHistoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.ListByList"); err != nil {
		return nil, err
	}
	all := r.s.historyWhere(func(h model.WatchedHistoryItem) bool { return h.ListID == listID })
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, limit, offset), nil
}

// 调用方必须持有锁；结果预加载 Movie 与 List
func (s *MemStore) historyWhere(match func(model.WatchedHistoryItem) bool) []*model.WatchedHistoryItem {
	out := []*model.WatchedHistoryItem{}
	for _, h := range s.history {
		if !match(h) {
			continue
		}
		h := h
		if m, ok := s.movies[h.MovieID]; ok {
			h.Movie = &m
		}
		if l, ok := s.lists[h.ListID]; ok {
			h.List = &l
		}
		out = append(out, &h)
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// MemAttendance 个人评分
type MemAttendance struct{ s *MemStore }

func (r *MemAttendance) Find(ctx context.Context, historyID, userID int) (*model.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attendance.Find"); err != nil {
		return nil, err
	}
	for _, a := range r.s.attendance {
		if a.WatchedHistoryID == historyID && a.UserID == userID {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (r *MemAttendance) Create(ctx context.Context, a *model.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attendance.Create"); err != nil {
		return err
	}
	for _, e := range r.s.attendance {
		if e.WatchedHistoryID == a.WatchedHistoryID && e.UserID == a.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = r.s.nextID()
	now := r.s.tick()
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	stored.WatchedHistory, stored.User = nil, nil
	r.s.attendance[a.ID] = stored
	r.s.writes++
	return nil
}

func (r *MemAttendance) Update(ctx context.Context, a *model.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attendance.Update"); err != nil {
		return err
	}
	e, ok := r.s.attendance[a.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Rating, e.Review, e.Failed = a.Rating, a.Review, a.Failed
	e.UpdatedAt = r.s.tick()
	a.UpdatedAt = e.UpdatedAt
	r.s.attendance[a.ID] = e
	r.s.writes++
	return nil
}

func (r *MemAttendance) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attendance.Delete"); err != nil {
		return err
	}
	delete(r.s.attendance, id)
	r.s.writes++
	return nil
}

func (r *MemAttendance) ListByHistoryIDs(ctx context.Context, historyIDs []int) ([]*model.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attendance.ListByHistoryIDs"); err != nil {
		return nil, err
	}
	want := map[int]bool{}
	for _, id := range historyIDs {
		want[id] = true
	}
	out := []*model.Attendance{}
	for _, a := range r.s.attendance {
		if want[a.WatchedHistoryID] {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemFeed 首页聚合查询
type MemFeed struct{ s *MemStore }

func publicList(l *model.List) bool {
	return l != nil && !l.IsDeleted && !l.IsPrivate
}

func byWatchedDesc(items []*model.WatchedHistoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].WatchedAt.Equal(items[j].WatchedAt) {
			return items[i].WatchedAt.After(items[j].WatchedAt)
		}
		return items[i].ID > items[j].ID
	})
}

func (r *MemFeed) RecentlyWatched(ctx context.Context, limit int) ([]*model.WatchedHistoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("feed.RecentlyWatched"); err != nil {
		return nil, err
	}
	items := r.s.historyWhere(func(model.WatchedHistoryItem) bool { return true })
	byWatchedDesc(items)
	return page(items, limit, 0), nil
}

func (r *MemFeed) RecentlyWatchedInList(ctx context.Context, listID, limit int) ([]*model.WatchedHistoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("feed.RecentlyWatchedInList"); err != nil {
		return nil, err
	}
	items := r.s.historyWhere(func(h model.WatchedHistoryItem) bool { return h.ListID == listID })
	byWatchedDesc(items)
	return page(items, limit, 0), nil
}

func (r *MemFeed) TopListCounts(ctx context.Context, limit int) ([]model.ListCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("feed.TopListCounts"); err != nil {
		return nil, err
	}
	counts := map[int]int64{}
	for _, h := range r.s.history {
		l, ok := r.s.lists[h.ListID]
		if ok && publicList(&l) {
			counts[h.ListID]++
		}
	}
	out := make([]model.ListCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, model.ListCount{ListID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ListID < out[j].ListID
	})
	return page(out, limit, 0), nil
}

func (r *MemFeed) RecentPublicAdds(ctx context.Context, limit int) ([]*model.WatchedHistoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("feed.RecentPublicAdds"); err != nil {
		return nil, err
	}
	items := r.s.historyWhere(func(h model.WatchedHistoryItem) bool {
		l, ok := r.s.lists[h.ListID]
		return ok && publicList(&l)
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return page(items, limit, 0), nil
}

func (r *MemFeed) RecentPublicReviews(ctx context.Context, limit int) ([]*model.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("feed.RecentPublicReviews"); err != nil {
		return nil, err
	}
	out := []*model.Attendance{}
	for _, a := range r.s.attendance {
		if a.Review == "" && a.Rating <= 0 {
			continue
		}
		h, ok := r.s.history[a.WatchedHistoryID]
		if !ok {
			continue
		}
		l, ok := r.s.lists[h.ListID]
		if !ok || !publicList(&l) {
			continue
		}
		a := a
		if m, ok := r.s.movies[h.MovieID]; ok {
			h.Movie = &m
		}
		a.WatchedHistory = &h
		if u, ok := r.s.users[a.UserID]; ok {
			a.User = &u
		}
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, limit, 0), nil
}
