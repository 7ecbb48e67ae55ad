package annotations

import "errors"

var (
	// ErrCampaignClosed is returned when joining or annotating on a
	// closed or archived campaign.
	ErrCampaignClosed = errors.New("this campaign is closed")

	// ErrAlreadyHasPendingTasks is returned when a contributor asks for
	// more tasks while still holding unfinished ones.
	ErrAlreadyHasPendingTasks = errors.New("you still have pending tasks on this campaign")

	// ErrNoAutoAssignment is returned when the campaign does not hand
	// out tasks automatically.
	ErrNoAutoAssignment = errors.New("this campaign does not auto-assign tasks")

	// ErrNotAContributor is returned when a project member with another
	// role requests contributor tasks.
	ErrNotAContributor = errors.New("only contributors can request tasks")

	// ErrNoAvailableTasks is returned when every task already reached its
	// contributor quota.
	ErrNoAvailableTasks = errors.New("no more tasks are available on this campaign")

	// ErrNotAssignee is returned when a user acts on an assignment that
	// is not theirs.
	ErrNotAssignee = errors.New("this task is not assigned to you")

	// ErrTaskCompleted is returned when annotating an assignment that
	// already reached a terminal state.
	ErrTaskCompleted = errors.New("this task has already been completed")

	// ErrNotModeratable is returned when moderating an assignment that
	// has not been annotated yet.
	ErrNotModeratable = errors.New("this task has no published annotation to moderate")

	// ErrNoAnnotation is returned when an assignment has no annotation at
	// all.
	ErrNoAnnotation = errors.New("this task has no annotation")
)
