package cli

import (
	"flag"
	"fmt"

	"github.com/dsv-su/dsvgo/pkg/clickmap"
)

func newPlacementsCommand() *Command {
	cmd := &Command{
		Name:        "placements",
		Description: "Query the office map for desks and people",
		Flags:       flag.NewFlagSet("placements", flag.ExitOnError),
		Run:         runPlacements,
	}

	cmd.Flags.String("search", "", "Substring match on person or place")
	cmd.Flags.String("person", "", "Exact person name lookup")
	cmd.Flags.Bool("vacant", false, "Show only vacant desks")

	return cmd
}

func runPlacements(args []string) error {
	cmd := newPlacementsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	search := cmd.Flags.Lookup("search").Value.String()
	person := cmd.Flags.Lookup("person").Value.String()
	vacant := cmd.Flags.Lookup("vacant").Value.String() == "true"

	ctx, cancel := commandContext()
	defer cancel()

	client, err := newServiceClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	cm := client.ClickMap()

	var placements []clickmap.Placement
	switch {
	case person != "":
		p, err := cm.ByPerson(ctx, person)
		if err != nil {
			return fmt.Errorf("failed to fetch placements: %w", err)
		}
		if p == nil {
			fmt.Printf("No placement for %s\n", person)
			return nil
		}
		placements = []clickmap.Placement{*p}
	case search != "":
		placements, err = cm.Search(ctx, search)
	case vacant:
		placements, err = cm.Vacant(ctx)
	default:
		placements, err = cm.Placements(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch placements: %w", err)
	}

	if len(placements) == 0 {
		fmt.Println("No matches")
		return nil
	}
	for _, p := range placements {
		occupant := "(vacant)"
		if p.Occupied() {
			occupant = p.PersonName
			if p.PersonRole != "" {
				occupant += " (" + p.PersonRole + ")"
			}
		}
		fmt.Printf("  %-12s %s\n", p.PlaceName, occupant)
	}
	return nil
}
