package types

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User represents the account embedded in an auth result
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Credits  int    `json:"credits"`
}

// AuthResult is returned by login and register
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// ErrorBody is the error shape used by the API ({"detail": "..."})
type ErrorBody struct {
	Detail string `json:"detail"`
}
