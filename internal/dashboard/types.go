package dashboard

import "time"

// Subscription describes the billing subscription attached to a user, if any.
type Subscription struct {
	Status            *string `json:"status"`
	CurrentPeriodEnd  *string `json:"current_period_end"`
	CancelAtPeriodEnd bool    `json:"cancel_at_period_end"`
}

// User is the authenticated account as reported by the backend.
type User struct {
	ID               int           `json:"id"`
	Email            string        `json:"email"`
	Name             string        `json:"name"`
	HasMembership    bool          `json:"has_membership"`
	MembershipPaused bool          `json:"membership_paused"`
	Subscription     *Subscription `json:"subscription"`
}

// Todo is a single todo item owned by the current user.
type Todo struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoInput creates a todo.
type TodoInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TodoPatch updates a todo. Nil fields are left unchanged.
type TodoPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Credentials log a user in with email and password.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// messageResponse is the body of simple acknowledgement endpoints.
type messageResponse struct {
	Message string `json:"message"`
}
