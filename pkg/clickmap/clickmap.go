// Package clickmap is a client for the DSV office map. The map backend
// serves one JSON document with every workspace point; search and filtering
// happen client-side.
package clickmap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// DefaultBaseURL is the production clickmap instance.
const DefaultBaseURL = "https://clickmap.dsv.su.se"

// Placement is one workspace point on the floor map. Latitude and longitude
// are map coordinates, not geographic ones.
type Placement struct {
	ID         string  `json:"id"`
	PlaceName  string  `json:"place_name"`
	PersonName string  `json:"person_name,omitempty"`
	PersonRole string  `json:"person_role,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Comment    string  `json:"comment,omitempty"`
}

// Occupied reports whether a person is assigned to the workspace.
func (p Placement) Occupied() bool { return p.PersonName != "" }

// Client fetches and filters workspace placements.
type Client struct {
	web  *auth.Client
	base string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another instance, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// New creates a clickmap client authenticating through the given provider.
func New(provider auth.SessionProvider, creds auth.Credentials, opts ...Option) *Client {
	c := &Client{base: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	c.web = auth.NewClient(provider, creds, auth.ServiceClickMap)
	return c
}

// wirePoint is the backend's JSON shape for one point.
type wirePoint struct {
	PlaceName  string  `json:"placeName"`
	PersonName string  `json:"personName"`
	PersonRole string  `json:"personRole"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Comment    string  `json:"comment"`
}

// Placements fetches every workspace point. The backend keys points by ID;
// the result is sorted by ID for stable output.
func (c *Client) Placements(ctx context.Context) ([]Placement, error) {
	body, err := c.web.GetBody(ctx, c.base+"/api/points")
	if err != nil {
		return nil, err
	}

	var points map[string]wirePoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("decode placements: %w", err)
	}

	placements := make([]Placement, 0, len(points))
	for id, p := range points {
		placements = append(placements, Placement{
			ID:         id,
			PlaceName:  p.PlaceName,
			PersonName: p.PersonName,
			PersonRole: p.PersonRole,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Comment:    p.Comment,
		})
	}
	sort.Slice(placements, func(i, j int) bool { return placements[i].ID < placements[j].ID })
	return placements, nil
}

// Search matches placements whose person or place name contains the query,
// case-insensitively.
func (c *Client) Search(ctx context.Context, query string) ([]Placement, error) {
	placements, err := c.Placements(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)

	var hits []Placement
	for _, p := range placements {
		if strings.Contains(strings.ToLower(p.PersonName), query) ||
			strings.Contains(strings.ToLower(p.PlaceName), query) {
			hits = append(hits, p)
		}
	}
	return hits, nil
}

// ByPerson finds the placement for an exact person name, or nil.
func (c *Client) ByPerson(ctx context.Context, name string) (*Placement, error) {
	placements, err := c.Placements(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range placements {
		if p.PersonName == name {
			return &p, nil
		}
	}
	return nil, nil
}

// ByPlace finds the placement for an exact place name, or nil.
func (c *Client) ByPlace(ctx context.Context, place string) (*Placement, error) {
	placements, err := c.Placements(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range placements {
		if p.PlaceName == place {
			return &p, nil
		}
	}
	return nil, nil
}

// Occupied lists placements with a person assigned.
func (c *Client) Occupied(ctx context.Context) ([]Placement, error) {
	return c.filter(ctx, func(p Placement) bool { return p.Occupied() })
}

// Vacant lists placements without a person assigned.
func (c *Client) Vacant(ctx context.Context) ([]Placement, error) {
	return c.filter(ctx, func(p Placement) bool { return !p.Occupied() })
}

func (c *Client) filter(ctx context.Context, keep func(Placement) bool) ([]Placement, error) {
	placements, err := c.Placements(ctx)
	if err != nil {
		return nil, err
	}
	var hits []Placement
	for _, p := range placements {
		if keep(p) {
			hits = append(hits, p)
		}
	}
	return hits, nil
}
