package cli

import (
	"flag"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dsv-su/dsvgo/pkg/daisy"
)

func newScheduleCommand() *Command {
	cmd := &Command{
		Name:        "schedule",
		Description: "Show the Daisy room schedule for a category and day",
		Flags:       flag.NewFlagSet("schedule", flag.ExitOnError),
		Run:         runSchedule,
	}

	cmd.Flags.Int("category", int(daisy.BookableGroupRooms), "Room category ID")
	cmd.Flags.String("date", "", "Day to show (YYYY-MM-DD, defaults to today)")

	return cmd
}

func runSchedule(args []string) error {
	cmd := newScheduleCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	categoryRaw := cmd.Flags.Lookup("category").Value.String()
	dateRaw := cmd.Flags.Lookup("date").Value.String()

	categoryID, err := strconv.Atoi(categoryRaw)
	if err != nil {
		return fmt.Errorf("invalid category: %s", categoryRaw)
	}
	category := daisy.RoomCategory(categoryID)
	if !category.Valid() {
		return fmt.Errorf("unknown room category: %d", categoryID)
	}

	day, err := parseDay(dateRaw)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := newServiceClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	schedule, err := client.Daisy().Schedule(ctx, category, day)
	if err != nil {
		return fmt.Errorf("failed to fetch schedule: %w", err)
	}

	fmt.Printf("%s %s\n\n", schedule.CategoryTitle, schedule.Date.Format("2006-01-02"))

	rooms := make([]string, 0, len(schedule.Activities))
	for room := range schedule.Activities {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	for _, room := range rooms {
		activities := schedule.Activities[room]
		if len(activities) == 0 {
			fmt.Printf("  %-24s (free all day)\n", room)
			continue
		}
		for i, act := range activities {
			label := ""
			if i == 0 {
				label = room
			}
			fmt.Printf("  %-24s %s-%s  %s\n", label, act.Start, act.End, act.Event)
		}
	}
	return nil
}

// parseDay accepts YYYY-MM-DD or an empty string meaning today.
func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return day, nil
}
