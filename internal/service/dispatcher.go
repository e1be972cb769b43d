package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/utils"
	"gorm.io/gorm"
)

// 清单页表单支持的操作
const (
	ActionUpdateList        = "update_list"
	ActionDeleteList        = "delete_list"
	ActionInviteUser        = "invite_user"
	ActionRemoveUser        = "remove_user"
	ActionUpdateHistoryItem = "update_history_item"
	ActionDeleteHistoryItem = "delete_history_item"
	ActionUpdateAttendance  = "update_attendance"
	ActionDeleteAttendance  = "delete_attendance"
)

// WatchlistIndexPath 删除清单后跳转的页面
const WatchlistIndexPath = "/watchlists"

const msgItemNotInList = "Item does not belong to this list."

// ActionResult 一次操作的结果，三个字段都可能为空（未知操作）
type ActionResult struct {
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// OK 没有错误
func (r ActionResult) OK() bool {
	return r.Error == ""
}

// Dispatcher 执行清单页上的各类修改操作
type Dispatcher struct {
	stores   Stores
	notifier Notifier
	logger   *log.Logger
}

// NewDispatcher notifier 可以为 nil
func NewDispatcher(stores Stores, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		stores:   stores,
		notifier: notifier,
		logger:   utils.NewLogger("Dispatch"),
	}
}

type actionFunc func(ctx context.Context, list *model.List, isOwner bool, caller Caller, p Params) (string, error)

func (d *Dispatcher) handlers() map[string]actionFunc {
	return map[string]actionFunc{
		ActionUpdateList:        d.updateList,
		ActionInviteUser:        d.inviteUser,
		ActionRemoveUser:        d.removeUser,
		ActionUpdateHistoryItem: d.updateHistoryItem,
		ActionDeleteHistoryItem: d.deleteHistoryItem,
		ActionUpdateAttendance:  d.updateAttendance,
		ActionDeleteAttendance:  d.deleteAttendance,
	}
}

// Dispatch 执行 action。未知 action 不做任何事。
// 所有错误都在这里转换为对外提示，存储层错误只记录日志。
func (d *Dispatcher) Dispatch(ctx context.Context, action string, list *model.List, isOwner bool, caller Caller, p Params) ActionResult {
	if list == nil {
		return ActionResult{Error: ListNotFoundMessage}
	}

	var res ActionResult
	var err error

	if action == ActionDeleteList {
		err = d.deleteList(ctx, list, isOwner)
		if err == nil {
			res.Redirect = WatchlistIndexPath
		}
	} else if fn, ok := d.handlers()[action]; ok {
		res.Message, err = fn(ctx, list, isOwner, caller, p)
	} else {
		return res
	}

	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			d.logger.Error("操作失败", "action", action, "list", list.ID, "user", caller.ID, "err", err)
		}
		return ActionResult{Error: Message(err)}
	}

	InvalidateHome()
	return res
}

func ownerOnly(isOwner bool, msg string) error {
	if !isOwner {
		return AccessDenied(msg)
	}
	return nil
}

func (d *Dispatcher) updateList(ctx context.Context, list *model.List, isOwner bool, _ Caller, p Params) (string, error) {
	if err := ownerOnly(isOwner, "Only the owner can update the list."); err != nil {
		return "", err
	}
	title := p.Get("list_title")
	if title == "" {
		return "", Validation("List title is required.")
	}

	updated := *list
	updated.Title = title
	if desc, ok := p.Lookup("description"); ok {
		updated.Description = desc
	}
	// 表单里是"公开"开关，存储的是 is_private
	updated.IsPrivate = !p.Bool("is_public")

	if err := d.stores.Lists.Update(ctx, &updated); err != nil {
		return "", fmt.Errorf("update list: %w", err)
	}
	*list = updated
	return "List updated successfully!", nil
}

func (d *Dispatcher) deleteList(ctx context.Context, list *model.List, isOwner bool) error {
	if err := ownerOnly(isOwner, "Only the owner can delete the list."); err != nil {
		return err
	}
	updated := *list
	updated.IsDeleted = true
	if err := d.stores.Lists.Update(ctx, &updated); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	*list = updated
	return nil
}

func (d *Dispatcher) inviteUser(ctx context.Context, list *model.List, isOwner bool, caller Caller, p Params) (string, error) {
	if err := ownerOnly(isOwner, "Only the owner can invite users."); err != nil {
		return "", err
	}

	email := p.Get("email")
	userID := p.Get("user_id")
	if email == "" && userID == "" {
		return "", Validation("Email or user ID is required.")
	}

	permission := p.Get("permission")
	if permission == "" {
		permission = model.PermissionView
	}
	switch permission {
	case model.PermissionView, model.PermissionEdit, model.PermissionRemove:
	default:
		return "", Validation("Invalid permission.")
	}

	target, err := d.findUser(ctx, userID, email)
	if err != nil {
		return "", err
	}
	if target == nil {
		return "", NotFound("User not found.")
	}
	if caller.IsAuthenticated && target.ID == caller.ID {
		return "", Validation("You cannot invite yourself.")
	}

	if permission == model.PermissionRemove {
		return d.removeMember(ctx, list, target)
	}

	existing, err := d.stores.Memberships.Find(ctx, list.ID, target.ID)
	if err != nil {
		return "", fmt.Errorf("find membership: %w", err)
	}
	if existing == nil {
		m := &model.ListMembership{ListID: list.ID, InvitedUserID: target.ID, Permission: permission}
		err = d.stores.Memberships.Create(ctx, m)
		if err == nil {
			return fmt.Sprintf("User %s invited with %s access!", target.Email, permission), nil
		}
		if !isDuplicate(err) {
			return "", fmt.Errorf("create membership: %w", err)
		}
		// 并发邀请已创建，改为更新
		if existing, err = d.stores.Memberships.Find(ctx, list.ID, target.ID); err != nil {
			return "", fmt.Errorf("reload membership: %w", err)
		}
		if existing == nil {
			return "", fmt.Errorf("reload membership: list %d user %d missing after conflict", list.ID, target.ID)
		}
	}

	if err := d.stores.Memberships.UpdatePermission(ctx, existing.ID, permission); err != nil {
		return "", fmt.Errorf("update membership: %w", err)
	}
	return fmt.Sprintf("User %s permissions updated to %s.", target.Email, permission), nil
}

func (d *Dispatcher) removeUser(ctx context.Context, list *model.List, isOwner bool, _ Caller, p Params) (string, error) {
	if err := ownerOnly(isOwner, "Only the owner can remove users."); err != nil {
		return "", err
	}
	userID := p.Get("user_id")
	email := p.Get("email")
	if userID == "" && email == "" {
		return "", Validation("User ID is missing.")
	}

	target, err := d.findUser(ctx, userID, email)
	if err != nil {
		return "", err
	}
	if target == nil {
		return "", NotFound("User is not on the list.")
	}
	return d.removeMember(ctx, list, target)
}

func (d *Dispatcher) removeMember(ctx context.Context, list *model.List, target *model.User) (string, error) {
	m, err := d.stores.Memberships.Find(ctx, list.ID, target.ID)
	if err != nil {
		return "", fmt.Errorf("find membership: %w", err)
	}
	if m == nil {
		return "", NotFound("User is not on the list.")
	}
	if err := d.stores.Memberships.Delete(ctx, m.ID); err != nil {
		return "", fmt.Errorf("delete membership: %w", err)
	}

	email := target.Email
	if email == "" {
		email = "User"
	}
	return fmt.Sprintf("%s removed from the list.", email), nil
}

// findUser 优先按 user_id 查找
func (d *Dispatcher) findUser(ctx context.Context, userID, email string) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	if userID != "" {
		id := ParseID(userID)
		if id == 0 {
			return nil, nil
		}
		u, err = d.stores.Users.FindByID(ctx, id)
	} else {
		u, err = d.stores.Users.FindByEmail(ctx, model.NormalizeEmail(email))
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// historyInList 记录不存在与不属于该清单返回同样的错误
func (d *Dispatcher) historyInList(ctx context.Context, list *model.List, p Params) (*model.WatchedHistoryItem, error) {
	raw := p.Get("history_id")
	if raw == "" {
		return nil, Validation("History ID is missing.")
	}
	id := ParseID(raw)
	if id == 0 {
		return nil, AccessDenied(msgItemNotInList)
	}
	item, err := d.stores.History.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find history item: %w", err)
	}
	if item == nil || item.ListID != list.ID {
		return nil, AccessDenied(msgItemNotInList)
	}
	return item, nil
}

func (d *Dispatcher) updateHistoryItem(ctx context.Context, list *model.List, isOwner bool, _ Caller, p Params) (string, error) {
	if err := ownerOnly(isOwner, "Only the owner can update records."); err != nil {
		return "", err
	}
	item, err := d.historyInList(ctx, list, p)
	if err != nil {
		return "", err
	}

	watched, err := parseWatchedDate(p)
	if err != nil {
		return "", err
	}
	scores, err := parseScores(p)
	if err != nil {
		return "", err
	}

	if watched != nil {
		item.WatchedAt = *watched
	}
	if scores.TMDB != nil {
		item.TMDBScore = scores.TMDB
	}
	if scores.IMDb != nil {
		item.IMDbScore = scores.IMDb
	}
	if scores.RT != nil {
		item.RTScore = scores.RT
	}

	if err := d.stores.History.Update(ctx, item); err != nil {
		return "", fmt.Errorf("update history item: %w", err)
	}
	return "Entry updated successfully!", nil
}

func (d *Dispatcher) deleteHistoryItem(ctx context.Context, list *model.List, isOwner bool, _ Caller, p Params) (string, error) {
	if err := ownerOnly(isOwner, "Only the owner can delete items."); err != nil {
		return "", err
	}
	item, err := d.historyInList(ctx, list, p)
	if err != nil {
		return "", err
	}
	if err := d.stores.History.Delete(ctx, item.ID); err != nil {
		return "", fmt.Errorf("delete history item: %w", err)
	}
	return "Movie removed from list.", nil
}

func (d *Dispatcher) updateAttendance(ctx context.Context, list *model.List, _ bool, caller Caller, p Params) (string, error) {
	if !caller.IsAuthenticated {
		return "", AuthRequired("You must be logged in.")
	}
	item, err := d.historyInList(ctx, list, p)
	if err != nil {
		return "", err
	}
	rating, err := parseRating(p)
	if err != nil {
		return "", err
	}

	apply := func(a *model.Attendance) {
		if rating != nil {
			a.Rating = *rating
		}
		if _, ok := p.Lookup("failed"); ok {
			a.Failed = p.Bool("failed")
		}
		if review, ok := p.Lookup("review"); ok {
			a.Review = review
		}
	}

	existing, err := d.stores.Attendance.Find(ctx, item.ID, caller.ID)
	if err != nil {
		return "", fmt.Errorf("find attendance: %w", err)
	}

	if existing == nil {
		a := &model.Attendance{WatchedHistoryID: item.ID, UserID: caller.ID}
		apply(a)
		err = d.stores.Attendance.Create(ctx, a)
		if err == nil {
			d.publishAttendance(RealtimeCreate, a)
			return "Rating saved!", nil
		}
		if !isDuplicate(err) {
			return "", fmt.Errorf("create attendance: %w", err)
		}
		if existing, err = d.stores.Attendance.Find(ctx, item.ID, caller.ID); err != nil {
			return "", fmt.Errorf("reload attendance: %w", err)
		}
		if existing == nil {
			return "", fmt.Errorf("reload attendance: history %d user %d missing after conflict", item.ID, caller.ID)
		}
	}

	apply(existing)
	if err := d.stores.Attendance.Update(ctx, existing); err != nil {
		return "", fmt.Errorf("update attendance: %w", err)
	}
	d.publishAttendance(RealtimeUpdate, existing)
	return "Rating updated!", nil
}

func (d *Dispatcher) deleteAttendance(ctx context.Context, list *model.List, _ bool, caller Caller, p Params) (string, error) {
	if !caller.IsAuthenticated {
		return "", AuthRequired("You must be logged in.")
	}
	item, err := d.historyInList(ctx, list, p)
	if err != nil {
		return "", err
	}

	a, err := d.stores.Attendance.Find(ctx, item.ID, caller.ID)
	if err != nil {
		return "", fmt.Errorf("find attendance: %w", err)
	}
	if a == nil {
		return "", NotFound("Rating not found.")
	}
	if err := d.stores.Attendance.Delete(ctx, a.ID); err != nil {
		return "", fmt.Errorf("delete attendance: %w", err)
	}
	d.publishAttendance(RealtimeDelete, a)
	return "Rating deleted!", nil
}

// publishAttendance 推送到单条记录主题和通配主题，失败只记日志
func (d *Dispatcher) publishAttendance(action string, a *model.Attendance) {
	if d.notifier == nil {
		return
	}
	ev := RealtimeEvent{Action: action, Record: a}
	for _, topic := range []string{AttendanceTopic(a.ID), AttendanceWildcardTopic} {
		if err := d.notifier.Publish(topic, ev); err != nil {
			d.logger.Warn("实时推送失败", "topic", topic, "err", err)
		}
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
