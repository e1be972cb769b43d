package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/user/cinelog/internal/model"
)

// ProfileInput 资料编辑表单，空值表示不修改
type ProfileInput struct {
	Name      string `form:"name" validate:"max=80"`
	Bio       string `form:"bio" validate:"max=500"`
	ShortHand string `form:"short_hand" validate:"max=8"`
	Avatar    string `form:"avatar" validate:"omitempty,url,max=500"`
}

// ProfileService 个人资料
type ProfileService struct {
	users UserStore
}

func NewProfileService(users UserStore) *ProfileService {
	return &ProfileService{users: users}
}

// Get 查看资料
func (s *ProfileService) Get(ctx context.Context, userID int) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, NotFound("User not found.")
	}
	return u, nil
}

// Update 修改资料
func (s *ProfileService) Update(ctx context.Context, caller Caller, in ProfileInput) (*model.User, error) {
	if !caller.IsAuthenticated {
		return nil, AuthRequired("You must be logged in.")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Bio = strings.TrimSpace(in.Bio)
	in.ShortHand = strings.TrimSpace(in.ShortHand)
	in.Avatar = strings.TrimSpace(in.Avatar)

	if err := validate.Struct(in); err != nil {
		return nil, Validation("Profile fields are invalid.")
	}
	if in.Avatar != "" {
		if u, err := url.Parse(in.Avatar); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, Validation("Avatar must be an http(s) URL.")
		}
	}

	if err := s.users.UpdateProfile(ctx, caller.ID, in.Name, in.Bio, in.ShortHand, in.Avatar); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	InvalidateHome()
	return s.Get(ctx, caller.ID)
}
