package service

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/utils"
)

// PermissionDeniedMessage 无权查看私有清单时的提示，页面依赖该文案
const PermissionDeniedMessage = "You do not have permission to view this list."

// ListNotFoundMessage 清单不存在或已删除
const ListNotFoundMessage = "List not found."

// Access 访问判定结果
type Access struct {
	List      *model.List
	HasAccess bool
	IsOwner   bool
	Reason    string
}

// Err 无权访问时返回 ErrAccessDenied
func (a *Access) Err() error {
	if a == nil || a.HasAccess {
		return nil
	}
	return AccessDenied(a.Reason)
}

// AccessResolver 判断调用者能否查看清单以及是否为所有者
type AccessResolver struct {
	lists       ListStore
	memberships MembershipStore
	logger      *log.Logger
}

func NewAccessResolver(lists ListStore, memberships MembershipStore) *AccessResolver {
	return &AccessResolver{
		lists:       lists,
		memberships: memberships,
		logger:      utils.NewLogger("Access"),
	}
}

// Resolve 清单不存在（含已删除、ID 非法）返回 ErrNotFound；
// 其余情况总是返回 Access，由调用方检查 HasAccess。
func (r *AccessResolver) Resolve(ctx context.Context, listID string, caller Caller) (*Access, error) {
	id := ParseID(listID)
	if id == 0 {
		return nil, NotFound(ListNotFoundMessage)
	}

	list, err := r.lists.FindActive(ctx, id)
	if err != nil {
		r.logger.Error("查询清单失败", "list", id, "err", err)
		return nil, NotFound(ListNotFoundMessage)
	}
	if list == nil {
		return nil, NotFound(ListNotFoundMessage)
	}

	access := &Access{List: list}
	access.IsOwner = caller.IsAuthenticated && caller.ID == list.OwnerID

	switch {
	case !list.IsPrivate, access.IsOwner:
		access.HasAccess = true
	case caller.IsAuthenticated:
		access.HasAccess = r.isMember(ctx, list.ID, caller.ID)
	}

	if !access.HasAccess {
		access.Reason = PermissionDeniedMessage
	}
	return access, nil
}

// IsMember 调用者是否为清单的受邀成员
func (r *AccessResolver) IsMember(ctx context.Context, listID int, caller Caller) bool {
	if !caller.IsAuthenticated {
		return false
	}
	return r.isMember(ctx, listID, caller.ID)
}

// 查询失败按"不是成员"处理
func (r *AccessResolver) isMember(ctx context.Context, listID, userID int) bool {
	m, err := r.memberships.Find(ctx, listID, userID)
	if err != nil {
		r.logger.Warn("查询成员关系失败，按无权限处理", "list", listID, "user", userID, "err", err)
		return false
	}
	return m != nil
}
