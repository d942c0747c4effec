package engine

import (
	"context"
	"fmt"

	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/pending"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

func taskEdit(u action.TaskUpdates) tasks.Edit {
	return tasks.Edit{
		Title:       u.Title,
		DueDate:     u.DueDate,
		Type:        tasks.Type(u.Type),
		Description: u.Description,
	}
}

// addTaskOf creates a task and describes it
func (e *Engine) addTaskOf(ctx context.Context, nt tasks.NewTask) Result {
	t, err := e.tasks.Add(ctx, nt)
	if err != nil {
		logging.Warn("engine", "add task %q: %v", nt.Title, err)
		return fail("Failed to add task.")
	}
	if nt.Type == tasks.General {
		return reply(fmt.Sprintf("Added general task %q.", t.Title))
	}
	return reply(fmt.Sprintf("Added %q due %s.", t.Title, e.longDate(t.Due)))
}

func (e *Engine) addTask(ctx context.Context, a *action.AddTask) Result {
	typ := tasks.Type(a.Type)
	if typ != tasks.General {
		typ = tasks.Due
	}
	r := e.addTaskOf(ctx, tasks.NewTask{
		Title:       a.Title,
		Type:        typ,
		DueDate:     a.DueDate,
		Description: a.Description,
		Priority:    a.Priority,
	})
	if r.Success {
		r.Message = orDefault(a.Response, r.Message)
	}
	return r
}

func (e *Engine) editTask(ctx context.Context, sess *session.Session, a *action.EditTask) Result {
	t, sure, err := e.findTask(ctx, a.TaskTitle, false)
	if err != nil {
		return lookupFailed(err, "Task not found.", "Could not update task.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmTask{Task: *t, Operation: pending.OpEdit, Updates: a.Updates})
		return didYouMean(t.Title)
	}
	updated, err := e.tasks.Update(ctx, *t, taskEdit(a.Updates))
	if err != nil {
		logging.Warn("engine", "edit task %q: %v", t.Title, err)
		return fail("Could not update task.")
	}

	msg := fmt.Sprintf("Updated %q", t.Title)
	if a.Updates.Title != "" {
		msg = fmt.Sprintf("Renamed to %q", updated.Title)
	}
	if a.Updates.DueDate != nil && *a.Updates.DueDate != "" {
		msg += ", now due " + e.longDate(*a.Updates.DueDate)
	}
	if a.Updates.Description != nil && *a.Updates.Description != "" {
		msg += ", added description"
	}
	return reply(msg + ".")
}

func (e *Engine) completeTask(ctx context.Context, sess *session.Session, a *action.CompleteTask) Result {
	t, sure, err := e.findTask(ctx, a.TaskTitle, false)
	if err != nil {
		return lookupFailed(err, "Task not found.", "Could not complete task.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmTask{Task: *t, Operation: pending.OpComplete})
		return didYouMean(t.Title)
	}
	return e.applyTask(ctx, *t, pending.OpComplete, action.TaskUpdates{})
}

func (e *Engine) uncompleteTask(ctx context.Context, sess *session.Session, a *action.UncompleteTask) Result {
	t, sure, err := e.findTask(ctx, a.TaskTitle, true)
	if err != nil {
		return lookupFailed(err, "Task not found in completed tasks.", "Could not update task.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmTask{Task: *t, Operation: pending.OpUncomplete})
		return didYouMean(t.Title)
	}
	return e.applyTask(ctx, *t, pending.OpUncomplete, action.TaskUpdates{})
}

func (e *Engine) deleteTask(ctx context.Context, sess *session.Session, a *action.DeleteTask) Result {
	t, sure, err := e.findTask(ctx, a.TaskTitle, false)
	if err != nil {
		return lookupFailed(err, "Task not found.", "Could not delete task.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmTask{Task: *t, Operation: pending.OpDelete})
		return didYouMean(t.Title)
	}
	return e.applyTask(ctx, *t, pending.OpDelete, action.TaskUpdates{})
}

// applyTask runs a resolved (or confirmed) task operation
func (e *Engine) applyTask(ctx context.Context, t tasks.Task, op string, u action.TaskUpdates) Result {
	var err error
	var done, failed string
	switch op {
	case pending.OpComplete:
		_, err = e.tasks.Complete(ctx, t)
		done, failed = fmt.Sprintf("Completed %q.", t.Title), "Could not complete task."
	case pending.OpUncomplete:
		_, err = e.tasks.Uncomplete(ctx, t)
		done, failed = fmt.Sprintf("Marked %q as incomplete.", t.Title), "Could not update task."
	case pending.OpDelete:
		err = e.tasks.Delete(ctx, t)
		done, failed = fmt.Sprintf("Deleted %q.", t.Title), "Could not delete task."
	default:
		_, err = e.tasks.Update(ctx, t, taskEdit(u))
		done, failed = fmt.Sprintf("Updated %q.", t.Title), "Could not update task."
	}
	if err != nil {
		logging.Warn("engine", "%s task %q: %v", op, t.Title, err)
		return fail(failed)
	}
	return reply(done)
}

func (e *Engine) bulkDeleteTasks(ctx context.Context, sess *session.Session, a *action.BulkDeleteTasks) Result {
	filter := orDefault(a.Filter, tasks.FilterCompleted)
	if filter != tasks.FilterAll && filter != tasks.FilterOverdue {
		filter = tasks.FilterCompleted
	}
	selected, err := e.tasks.Matching(ctx, filter)
	if err != nil {
		logging.Warn("engine", "bulk delete %s: %v", filter, err)
		return fail("Could not delete tasks.")
	}
	if filter == tasks.FilterAll {
		e.setPending(sess, pending.ConfirmBulkDelete{Count: len(selected)})
		return ask(fmt.Sprintf("Are you sure you want to delete ALL %d tasks?", len(selected)))
	}
	if len(selected) == 0 {
		return reply(fmt.Sprintf("No %s tasks to delete.", filter))
	}
	n := e.tasks.DeleteEach(ctx, selected)
	if n == 0 {
		return fail("Could not delete tasks.")
	}
	return Result{
		Success: n == len(selected),
		Message: fmt.Sprintf("Deleted %d %s %s.", n, filter, plural(n, "task")),
	}
}
