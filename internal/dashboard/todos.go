package dashboard

import (
	"context"
	"fmt"
	"net/http"
)

// ListTodos returns the current user's todos, newest first.
func (c *Client) ListTodos(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/todos/", nil, &todos, http.StatusOK); err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodo returns a single todo.
func (c *Client) GetTodo(ctx context.Context, id int) (*Todo, error) {
	var todo Todo
	if err := c.do(ctx, c.httpClient, http.MethodGet, todoPath(id), nil, &todo, http.StatusOK); err != nil {
		return nil, err
	}
	return &todo, nil
}

// CreateTodo creates a todo and returns it as stored.
func (c *Client) CreateTodo(ctx context.Context, in TodoInput) (*Todo, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid todo: %w", err)
	}

	var todo Todo
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/todos/", in, &todo, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo applies patch to a todo and returns the result.
func (c *Client) UpdateTodo(ctx context.Context, id int, patch TodoPatch) (*Todo, error) {
	if err := c.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("invalid todo update: %w", err)
	}

	var todo Todo
	if err := c.do(ctx, c.httpClient, http.MethodPut, todoPath(id), patch, &todo, http.StatusOK); err != nil {
		return nil, err
	}
	return &todo, nil
}

// ToggleTodo flips the completed state of a todo.
func (c *Client) ToggleTodo(ctx context.Context, id int) (*Todo, error) {
	todo, err := c.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	completed := !todo.Completed
	return c.UpdateTodo(ctx, id, TodoPatch{Completed: &completed})
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	return c.do(ctx, c.httpClient, http.MethodDelete, todoPath(id), nil, nil, http.StatusNoContent, http.StatusOK)
}

func todoPath(id int) string {
	return fmt.Sprintf("/api/todos/%d/", id)
}
