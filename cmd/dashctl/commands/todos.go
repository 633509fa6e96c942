package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/dashctl/internal/dashboard"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	doneStyle   = cellStyle.Faint(true)
)

func todosCommand() *cli.Command {
	return &cli.Command{
		Name:  "todos",
		Usage: "manage todos",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list todos",
				Flags:  []cli.Flag{jsonFlag()},
				Action: withClients(todosListAction),
			},
			{
				Name:      "get",
				Usage:     "show a todo",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    withClients(todosGetAction),
			},
			{
				Name:  "create",
				Usage: "create a todo",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "todo title", Required: true},
					&cli.StringFlag{Name: "description", Usage: "todo description"},
					&cli.BoolFlag{Name: "completed", Usage: "mark as completed"},
				},
				Action: withClients(todosCreateAction),
			},
			{
				Name:      "update",
				Usage:     "change fields of a todo",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "new title"},
					&cli.StringFlag{Name: "description", Usage: "new description"},
					&cli.BoolFlag{Name: "completed", Usage: "completion state"},
				},
				Action: withClients(todosUpdateAction),
			},
			{
				Name:      "toggle",
				Usage:     "flip the completion state of a todo",
				ArgsUsage: "<id>",
				Action:    withClients(todosToggleAction),
			},
			{
				Name:      "delete",
				Usage:     "delete a todo",
				ArgsUsage: "<id>",
				Action:    withClients(todosDeleteAction),
			},
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"}
}

func todosListAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	todos, err := e.clients.Dashboard.ListTodos(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(e.out, todos)
	}
	if len(todos) == 0 {
		_, err := fmt.Fprintln(e.out, "No todos")
		return err
	}
	return renderTodos(e.out, todos)
}

func todosGetAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	id, err := todoID(cmd)
	if err != nil {
		return err
	}
	todo, err := e.clients.Dashboard.GetTodo(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(e.out, todo)
	}
	return renderTodos(e.out, []dashboard.Todo{*todo})
}

func todosCreateAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	todo, err := e.clients.Dashboard.CreateTodo(ctx, dashboard.TodoInput{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Completed:   cmd.Bool("completed"),
	})
	if err != nil {
		return err
	}
	return renderTodos(e.out, []dashboard.Todo{*todo})
}

func todosUpdateAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	id, err := todoID(cmd)
	if err != nil {
		return err
	}

	var patch dashboard.TodoPatch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		patch.Title = &title
	}
	if cmd.IsSet("description") {
		description := cmd.String("description")
		patch.Description = &description
	}
	if cmd.IsSet("completed") {
		completed := cmd.Bool("completed")
		patch.Completed = &completed
	}
	if patch == (dashboard.TodoPatch{}) {
		return errors.New("nothing to update, set --title, --description or --completed")
	}

	todo, err := e.clients.Dashboard.UpdateTodo(ctx, id, patch)
	if err != nil {
		return err
	}
	return renderTodos(e.out, []dashboard.Todo{*todo})
}

func todosToggleAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	id, err := todoID(cmd)
	if err != nil {
		return err
	}
	todo, err := e.clients.Dashboard.ToggleTodo(ctx, id)
	if err != nil {
		return err
	}
	return renderTodos(e.out, []dashboard.Todo{*todo})
}

func todosDeleteAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	id, err := todoID(cmd)
	if err != nil {
		return err
	}
	if err := e.clients.Dashboard.DeleteTodo(ctx, id); err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.out, "Deleted todo %d\n", id)
	return err
}

func todoID(cmd *cli.Command) (int, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return 0, errors.New("missing todo id")
	}
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", arg)
	}
	return id, nil
}

// renderTodos writes todos as a table, dimming completed rows.
func renderTodos(w io.Writer, todos []dashboard.Todo) error {
	rows := make([][]string, 0, len(todos))
	for _, t := range todos {
		done := " "
		if t.Completed {
			done = "x"
		}
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			done,
			t.Title,
			t.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DONE", "TITLE", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(todos) && todos[row].Completed:
				return doneStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
