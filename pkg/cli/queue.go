package cli

import (
	"flag"
	"fmt"
)

func newQueueCommand() *Command {
	cmd := &Command{
		Name:        "queue",
		Description: "Show supervision sessions and manage their queues",
		Flags:       flag.NewFlagSet("queue", flag.ExitOnError),
		Run:         runQueue,
	}

	cmd.Flags.String("session", "", "Session ID to inspect")
	cmd.Flags.String("add", "", "Username to add to the session queue")
	cmd.Flags.String("remove", "", "Username to remove from the session queue")

	return cmd
}

func runQueue(args []string) error {
	cmd := newQueueCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	sessionID := cmd.Flags.Lookup("session").Value.String()
	add := cmd.Flags.Lookup("add").Value.String()
	remove := cmd.Flags.Lookup("remove").Value.String()

	if (add != "" || remove != "") && sessionID == "" {
		return fmt.Errorf("--session is required with --add or --remove")
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := newServiceClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	h := client.Handledning()

	switch {
	case add != "":
		if err := h.AddToQueue(ctx, sessionID, add); err != nil {
			return fmt.Errorf("failed to add %s: %w", add, err)
		}
		fmt.Printf("Added %s to session %s\n", add, sessionID)
		return nil

	case remove != "":
		if err := h.RemoveFromQueue(ctx, sessionID, remove); err != nil {
			return fmt.Errorf("failed to remove %s: %w", remove, err)
		}
		fmt.Printf("Removed %s from session %s\n", remove, sessionID)
		return nil

	case sessionID != "":
		entries, err := h.Queue(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to fetch queue: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("  %2d. %-12s %-12s %s\n", e.Position, e.Student, e.Status, e.QueuedAt)
		}
		return nil

	default:
		sessions, err := h.ActiveSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No active sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("  [%s] %s %s  %s-%s  %s  (%s)\n",
				s.ID, s.CourseCode, s.CourseName, s.Start, s.End, s.Room, s.Teacher)
		}
		return nil
	}
}
