package session

// LoginInput contains the input for signing in
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterInput contains the input for creating an account
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=buyer customer artisan supplier finance supervisor driver delivery admin"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}
