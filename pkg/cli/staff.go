package cli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/dsv-su/dsvgo/pkg/daisy"
)

func newStaffCommand() *Command {
	cmd := &Command{
		Name:        "staff",
		Description: "Search the Daisy staff directory or show one profile",
		Flags:       flag.NewFlagSet("staff", flag.ExitOnError),
		Run:         runStaff,
	}

	cmd.Flags.String("name", "", "Last name to search for")
	cmd.Flags.String("email", "", "Email to search for")
	cmd.Flags.String("id", "", "Person ID for a full profile")
	cmd.Flags.Bool("all", false, "Fetch full profiles for the whole department")

	return cmd
}

func runStaff(args []string) error {
	cmd := newStaffCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	name := cmd.Flags.Lookup("name").Value.String()
	email := cmd.Flags.Lookup("email").Value.String()
	personID := cmd.Flags.Lookup("id").Value.String()
	all := cmd.Flags.Lookup("all").Value.String() == "true"

	ctx, cancel := commandContext()
	defer cancel()

	client, err := newServiceClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if personID != "" {
		staff, err := client.Daisy().StaffDetails(ctx, personID)
		if err != nil {
			return fmt.Errorf("failed to fetch profile: %w", err)
		}
		printStaffProfile(staff)
		return nil
	}

	if all {
		everyone, err := client.Daisy().AllStaff(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch staff: %w", err)
		}
		for _, s := range everyone {
			printStaffRow(s)
		}
		fmt.Printf("\n%d employees\n", len(everyone))
		return nil
	}

	hits, err := client.Daisy().SearchStaff(ctx, daisy.StaffFilter{
		LastName: name,
		Email:    email,
	})
	if err != nil {
		return fmt.Errorf("staff search failed: %w", err)
	}
	if len(hits) == 0 {
		fmt.Println("No matches")
		return nil
	}
	for _, s := range hits {
		printStaffRow(s)
	}
	return nil
}

func printStaffRow(s daisy.Staff) {
	fmt.Printf("  %-8s %-30s %s\n", s.PersonID, s.Name, s.Email)
}

func printStaffProfile(s *daisy.Staff) {
	fmt.Printf("%s\n", s.Name)
	if s.SwedishTitle != "" {
		fmt.Printf("  Title:    %s\n", s.SwedishTitle)
	}
	if s.Email != "" {
		fmt.Printf("  Email:    %s\n", s.Email)
	}
	if s.Phone != "" {
		fmt.Printf("  Phone:    %s\n", s.Phone)
	}
	if s.Room != "" {
		fmt.Printf("  Room:     %s\n", s.Room)
	}
	if s.Location != "" {
		fmt.Printf("  Location: %s\n", s.Location)
	}
	if len(s.Units) > 0 {
		fmt.Printf("  Units:    %s\n", strings.Join(s.Units, ", "))
	}
}
