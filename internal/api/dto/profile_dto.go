package dto

// CreateProfileRequest payload for profile creation.
type CreateProfileRequest struct {
	AuthID    string `json:"auth_id" validate:"required,uuid4"`
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
}

// UpdateProfileRequest payload for partial profile updates.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=2,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=2,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// ProfileListResponse wraps a page of profiles with the total count.
type ProfileListResponse struct {
	Profiles any   `json:"profiles"`
	Total    int64 `json:"total"`
}
