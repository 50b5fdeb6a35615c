package types

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=200"`
	Role     string `json:"role" validate:"required,role"`
}

// LoginRequest accepts either email or the OAuth2-style username field.
type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type ProjectCreateRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	AIModel     string   `json:"ai_model" validate:"omitempty,aimodel"`
	BudgetLimit *float64 `json:"budget_limit" validate:"omitempty,gte=0"`
}

type ProjectUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

type UsageRequest struct {
	Tokens int64   `json:"tokens" validate:"gte=0"`
	Cost   float64 `json:"cost" validate:"gte=0"`
}

type AssignValidatorRequest struct {
	ValidatorID string `json:"validator_id" validate:"required,uuid"`
	Priority    int    `json:"priority" validate:"gte=0"`
	Notes       string `json:"notes" validate:"max=2000"`
}
