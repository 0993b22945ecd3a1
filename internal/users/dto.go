package users

import "time"

type createUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Name     string   `json:"name" validate:"max=128"`
	Password string   `json:"password" validate:"required,min=8,max=128"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type rolesResponse struct {
	Roles []string `json:"roles"`
}

type permissionsResponse struct {
	Permissions []string `json:"permissions"`
}

func toUserResponse(user *User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Name:      user.Name,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
