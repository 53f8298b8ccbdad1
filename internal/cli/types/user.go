package types

// UserRecord is the authoritative user record returned by GET /api/users/{id}.
// Credits is a pointer so a missing or null field can be told apart from zero.
type UserRecord struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Credits  *int   `json:"credits"`
}

// UpdateProfileRequest represents the profile update payload
type UpdateProfileRequest struct {
	Username string `json:"username"`
}
