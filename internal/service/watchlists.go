package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/cinelog/internal/model"
)

// 分页参数
const (
	DefaultPageLimit    = 20
	MaxPageLimit        = 100
	InviteCandidatesMax = 50
)

// MoviePage 清单电影分页结果
type MoviePage struct {
	Items   []*model.MovieEntry `json:"items"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	HasMore bool                `json:"has_more"`
}

// WatchlistService 清单查询与创建
type WatchlistService struct {
	stores Stores
}

func NewWatchlistService(stores Stores) *WatchlistService {
	return &WatchlistService{stores: stores}
}

// ListForUser 用户拥有的清单在前，其次是被邀请的清单
func (s *WatchlistService) ListForUser(ctx context.Context, caller Caller) ([]*model.List, error) {
	if !caller.IsAuthenticated {
		return []*model.List{}, nil
	}

	owned, err := s.stores.Lists.ListOwned(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	shared, err := s.stores.Memberships.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list shared: %w", err)
	}

	seen := make(map[int]bool, len(owned)+len(shared))
	out := make([]*model.List, 0, len(owned)+len(shared))
	for _, l := range owned {
		if l.IsDeleted || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	for _, m := range shared {
		if m.List == nil || m.List.IsDeleted || seen[m.List.ID] {
			continue
		}
		seen[m.List.ID] = true
		out = append(out, m.List)
	}
	return out, nil
}

// Create 新建清单
func (s *WatchlistService) Create(ctx context.Context, caller Caller, title, description string, isPublic bool) (*model.List, error) {
	if !caller.IsAuthenticated {
		return nil, AuthRequired("You must be logged in.")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, Validation("List title is required.")
	}

	list := &model.List{
		Title:       title,
		Description: strings.TrimSpace(description),
		OwnerID:     caller.ID,
		IsPrivate:   !isPublic,
	}
	if err := s.stores.Lists.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	return list, nil
}

// Movies 分页获取清单中的电影，多取一条判断是否还有下一页
func (s *WatchlistService) Movies(ctx context.Context, listID, page, limit int) (*MoviePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	items, err := s.stores.History.ListByList(ctx, listID, limit+1, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	res := &MoviePage{Page: page, Limit: limit, Items: make([]*model.MovieEntry, 0, limit)}
	if len(items) > limit {
		res.HasMore = true
		items = items[:limit]
	}
	for _, h := range items {
		if e := model.NewMovieEntry(h); e != nil {
			res.Items = append(res.Items, e)
		}
	}
	return res, nil
}

// AttachAttendance 为每一行填充各用户的评分
func (s *WatchlistService) AttachAttendance(ctx context.Context, entries []*model.MovieEntry) error {
	if len(entries) == 0 {
		return nil
	}
	byHistory := make(map[int]*model.MovieEntry, len(entries))
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		byHistory[e.HistoryID] = e
		ids = append(ids, e.HistoryID)
	}

	rows, err := s.stores.Attendance.ListByHistoryIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("list attendance: %w", err)
	}
	for _, a := range rows {
		e, ok := byHistory[a.WatchedHistoryID]
		if !ok {
			continue
		}
		if e.Attendance == nil {
			e.Attendance = make(map[int]model.AttendanceSummary)
		}
		e.Attendance[a.UserID] = model.AttendanceSummary{
			ID:      a.ID,
			Rating:  a.Rating,
			Review:  a.Review,
			Failed:  a.Failed,
			Created: a.CreatedAt,
		}
	}
	return nil
}

// Members 所有者在前，其余为受邀用户
func (s *WatchlistService) Members(ctx context.Context, list *model.List) ([]model.ListMember, error) {
	members := []model.ListMember{}
	seen := map[int]bool{}

	owner, err := s.stores.Users.FindByID(ctx, list.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner != nil {
		seen[owner.ID] = true
		members = append(members, model.ListMember{
			ID:      owner.ID,
			Name:    owner.DisplayName(),
			Avatar:  owner.Avatar,
			IsOwner: true,
		})
	}

	rows, err := s.stores.Memberships.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	for _, m := range rows {
		if seen[m.InvitedUserID] {
			continue
		}
		u := m.InvitedUser
		if u == nil {
			if u, err = s.stores.Users.FindByID(ctx, m.InvitedUserID); err != nil {
				return nil, fmt.Errorf("find member: %w", err)
			}
			if u == nil {
				continue
			}
		}
		seen[u.ID] = true
		members = append(members, model.ListMember{
			ID:     u.ID,
			Name:   u.DisplayName(),
			Avatar: u.Avatar,
		})
	}
	return members, nil
}

// InviteCandidates 所有者可邀请的用户，附带当前权限
func (s *WatchlistService) InviteCandidates(ctx context.Context, list *model.List, caller Caller, isOwner bool) ([]model.InviteCandidate, error) {
	if !isOwner || !caller.IsAuthenticated {
		return []model.InviteCandidate{}, nil
	}

	users, err := s.stores.Users.ListExcept(ctx, caller.ID, InviteCandidatesMax)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	rows, err := s.stores.Memberships.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	perms := make(map[int]string, len(rows))
	for _, m := range rows {
		perms[m.InvitedUserID] = m.Permission
	}

	out := make([]model.InviteCandidate, 0, len(users))
	for _, u := range users {
		perm, invited := perms[u.ID]
		out = append(out, model.InviteCandidate{
			ID:                u.ID,
			Email:             u.Email,
			IsInvited:         invited,
			CurrentPermission: perm,
		})
	}
	return out, nil
}
