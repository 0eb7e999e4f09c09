package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
	"github.com/BuzzLyutic/task-sync/internal/service"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show local tasks, pulling from the server first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.PullOnStart {
				if err := a.tasks.Refresh(ctx, nil).Wait(ctx); err != nil {
					// stale data beats no data
					fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("pull failed: "+err.Error()))
				}
			}

			tasks, err := a.tasks.List(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTasks(tasks))
			return nil
		},
	}
}

func addCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a task and push it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := draftFromFlags(cmd, service.Draft{Name: args[0]})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			task, res := a.tasks.Create(ctx, d, a.report("add"))
			return a.outcome(cmd, task, res.Wait(ctx))
		},
	}

	cmd.Flags().StringP("notes", "n", "", "Free-form notes")
	cmd.Flags().StringP("priority", "p", "", "low, normal, high or critical")
	return cmd
}

func editCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <local-id>",
		Short: "Change a task and push it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}

			d := service.Draft{Name: task.Name, Notes: task.Notes, Priority: task.Priority}
			if cmd.Flags().Changed("name") {
				d.Name, _ = cmd.Flags().GetString("name")
			}
			if d, err = draftFromFlags(cmd, d); err != nil {
				return err
			}

			res := a.tasks.Edit(ctx, task, d, a.report("edit"))
			return a.outcome(cmd, task, res.Wait(ctx))
		},
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().StringP("notes", "n", "", "New notes; empty clears them")
	cmd.Flags().StringP("priority", "p", "", "low, normal, high or critical")
	return cmd
}

func pushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push <local-id>",
		Short: "Send a task to the server, assigning an identifier if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			res := a.sync.Push(ctx, task, a.report("push"))
			return a.outcome(cmd, task, res.Wait(ctx))
		},
	}
}

func pullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the server collection into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.sync.PullAll(ctx, a.report("pull")).Wait(ctx); err != nil {
				return err
			}
			tasks, err := a.tasks.List(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("pulled; %d local tasks", len(tasks))))
			return nil
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <local-id>",
		Short: "Delete a task locally and on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.tasks.Delete(ctx, task, a.report("delete")).Wait(ctx); err != nil {
				return fmt.Errorf("deleted locally, server delete failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("deleted #%d", task.ID)))
			return nil
		},
	}
}

func (a *app) lookup(cmd *cobra.Command, arg string) (*model.Task, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("local id %q: %w", arg, err)
	}
	task, err := a.tasks.Get(cmd.Context(), id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("no task #%d", id)
	}
	return task, err
}

// report logs each completion as it is delivered.
func (a *app) report(op string) service.Completion {
	return func(err error) {
		if err != nil {
			a.logger.Warn("sync operation failed", zap.String("op", op), zap.Error(err))
			return
		}
		a.logger.Debug("sync operation finished", zap.String("op", op))
	}
}

func (a *app) outcome(cmd *cobra.Command, task *model.Task, err error) error {
	switch {
	case err == nil:
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("synced ")+renderTask(task))
		return nil
	case errors.Is(err, errs.ErrValidation):
		return err
	case errors.Is(err, errs.ErrPersistence):
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("not saved: "+err.Error()))
		return nil
	default:
		// saved locally; a later push retries
		fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("saved locally only ")+renderTask(task))
		return err
	}
}

func draftFromFlags(cmd *cobra.Command, d service.Draft) (service.Draft, error) {
	flags := cmd.Flags()
	if flags.Changed("notes") {
		notes, _ := flags.GetString("notes")
		if notes == "" {
			d.Notes = nil
		} else {
			d.Notes = &notes
		}
	}
	if flags.Changed("priority") {
		raw, _ := flags.GetString("priority")
		p, err := model.ParsePriority(raw)
		if err != nil {
			return d, err
		}
		d.Priority = p
	}
	return d, nil
}
