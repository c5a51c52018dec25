package daisy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/httputil"
	"github.com/dsv-su/dsvgo/pkg/observability"
	"github.com/dsv-su/dsvgo/pkg/scrape"
)

// DefaultBaseURL is the production Daisy instance.
const DefaultBaseURL = "https://daisy.dsv.su.se"

const (
	defaultFetchConcurrency = 20
	defaultFetchRetries     = 3
)

// RoomNotAvailableError indicates the requested slot is already booked.
type RoomNotAvailableError struct {
	Room string
}

func (e *RoomNotAvailableError) Error() string {
	return fmt.Sprintf("room %s is not available for the requested time", e.Room)
}

// BookingError indicates Daisy rejected a booking for another reason.
type BookingError struct {
	Reason string
}

func (e *BookingError) Error() string { return "booking failed: " + e.Reason }

// Client talks to Daisy, the DSV study administration system. It speaks
// the same server-rendered pages the browser does; there is no API.
type Client struct {
	web              *auth.Client
	base             string
	service          auth.Service
	log              *logrus.Entry
	fetchConcurrency int
	fetchRetries     int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Daisy instance, mainly for
// tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithService selects the staff or student entry point. Default is staff.
func WithService(service auth.Service) Option {
	return func(c *Client) { c.service = service }
}

// WithLogger sets the client logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// WithFetchConcurrency bounds the parallel detail fetches in AllStaff.
func WithFetchConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.fetchConcurrency = n
		}
	}
}

// New creates a Daisy client authenticating through the given provider.
func New(provider auth.SessionProvider, creds auth.Credentials, opts ...Option) *Client {
	c := &Client{
		base:             DefaultBaseURL,
		service:          auth.ServiceDaisyStaff,
		log:              observability.NopLogger(),
		fetchConcurrency: defaultFetchConcurrency,
		fetchRetries:     defaultFetchRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.web = auth.NewClient(provider, creds, c.service)
	return c
}

// Schedule fetches the booking grid for a room category on the given day.
func (c *Client) Schedule(ctx context.Context, category RoomCategory, day time.Time) (*Schedule, error) {
	data := url.Values{
		"lokalkategori": {strconv.Itoa(int(category))},
		"year":          {strconv.Itoa(day.Year())},
		"month":         {fmt.Sprintf("%02d", int(day.Month()))},
		"day":           {fmt.Sprintf("%02d", day.Day())},
		"datumSubmit":   {"Visa"},
	}
	body, err := c.web.PostFormBody(ctx, c.base+"/servlet/schema.LokalSchema", data)
	if err != nil {
		return nil, err
	}
	return ParseSchedule(body)
}

// BookRoom books a room slot. Daisy answers 409 when the slot is taken and
// otherwise reports the outcome in the page text.
func (c *Client) BookRoom(ctx context.Context, roomID string, day time.Time, start, end RoomTime, purpose string) error {
	bookURL := httputil.BuildURL(c.base, []string{"book"}, url.Values{
		"room":  {roomID},
		"date":  {day.Format("2006-01-02")},
		"start": {start.String()},
		"end":   {end.String()},
	})
	data := url.Values{}
	if purpose != "" {
		data.Set("purpose", purpose)
	}

	resp, body, err := c.web.Send(ctx, func(sess *auth.Session) (*http.Response, error) {
		return sess.PostForm(ctx, bookURL, data)
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		return &RoomNotAvailableError{Room: roomID}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &BookingError{Reason: "status " + resp.Status}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "bokning") || strings.Contains(lower, "booked") || strings.Contains(lower, "success") {
		return nil
	}
	if msg := bookingErrorText(body); msg != "" {
		return &BookingError{Reason: msg}
	}
	return nil
}

// SearchStudents searches students by name or username.
func (c *Client) SearchStudents(ctx context.Context, query string, limit int) ([]Student, error) {
	if limit <= 0 {
		limit = 50
	}
	u := httputil.BuildURL(c.base, []string{"search", "students"}, url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	})
	body, err := c.web.GetBody(ctx, u)
	if err != nil {
		return nil, err
	}
	return ParseStudents(body)
}

// RoomActivities lists everything scheduled in one room on the given day.
func (c *Client) RoomActivities(ctx context.Context, roomID string, day time.Time) ([]Activity, error) {
	u := httputil.BuildURL(c.base, []string{"rooms", roomID, "activities"}, url.Values{
		"date": {day.Format("2006-01-02")},
	})
	body, err := c.web.GetBody(ctx, u)
	if err != nil {
		return nil, err
	}
	return ParseActivities(body, roomID, day)
}

// StaffFilter narrows a staff search. The zero value matches every DSV
// employee.
type StaffFilter struct {
	LastName      string
	FirstName     string
	Email         string
	Username      string
	InstitutionID string
	UnitID        string
}

// SearchStaff searches the employee directory.
func (c *Client) SearchStaff(ctx context.Context, filter StaffFilter) ([]Staff, error) {
	institution := filter.InstitutionID
	if institution == "" {
		institution = InstitutionDSV
	}
	data := url.Values{
		"efternamn":         {filter.LastName},
		"fornamn":           {filter.FirstName},
		"epost":             {filter.Email},
		"anvandarnamn":      {filter.Username},
		"svenskTitel":       {""},
		"engelskTitel":      {""},
		"personalkategori":  {""},
		"institutionID":     {institution},
		"anstalldTyp":       {"ALL"},
		"enhetID":           {filter.UnitID},
		"action:sokanstalld": {"Sök"},
	}
	body, err := c.web.PostFormBody(ctx, c.base+"/sok/visaanstalld.jspa", data)
	if err != nil {
		return nil, err
	}
	return ParseStaffSearch(body, c.base)
}

// StaffDetails fetches the full profile for one employee.
func (c *Client) StaffDetails(ctx context.Context, personID string) (*Staff, error) {
	body, err := c.web.GetBody(ctx, c.base+"/anstalld/anstalldinfo.jspa?personID="+url.QueryEscape(personID))
	if err != nil {
		return nil, err
	}
	return ParseStaffDetails(personID, body, c.base)
}

// AllStaff fetches full profiles for every employee matching the DSV
// directory. Details are fetched in parallel; transient failures are
// retried in additional passes before anyone is given up on.
func (c *Client) AllStaff(ctx context.Context) ([]Staff, error) {
	hits, err := c.SearchStaff(ctx, StaffFilter{})
	if err != nil {
		return nil, err
	}
	c.log.WithField("count", len(hits)).Info("fetching staff details")

	var (
		mu       sync.Mutex
		detailed []Staff
	)
	pending := hits
	for pass := 0; pass <= c.fetchRetries && len(pending) > 0; pass++ {
		if pass > 0 {
			c.log.WithFields(logrus.Fields{
				"pass":    pass,
				"pending": len(pending),
			}).Info("retrying failed staff fetches")
		}

		var failed []Staff
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.fetchConcurrency)
		for _, hit := range pending {
			hit := hit
			g.Go(func() error {
				details, err := c.StaffDetails(gctx, hit.PersonID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					c.log.WithField("person_id", hit.PersonID).WithError(err).Warn("staff detail fetch failed")
					failed = append(failed, hit)
					return nil
				}
				detailed = append(detailed, *details)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		pending = failed
	}

	if len(pending) > 0 {
		c.log.WithField("count", len(pending)).Error("staff details missing after retries")
	}
	return detailed, nil
}

// ProfilePicture downloads an employee photo. Transient failures are
// retried with exponential backoff; client errors are not, since they will
// not heal.
func (c *Client) ProfilePicture(ctx context.Context, rawURL string) ([]byte, error) {
	sess, err := c.web.Session(ctx)
	if err != nil {
		return nil, err
	}

	var image []byte
	op := func() error {
		resp, err := sess.Get(ctx, rawURL)
		if err != nil {
			return err
		}
		body, err := httputil.ReadBody(resp)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(fmt.Errorf("download rejected with %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "image") {
			return backoff.Permanent(fmt.Errorf("not an image (Content-Type %q)", ct))
		}
		image = body
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.fetchRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, &auth.NetworkError{Hop: "profile picture", Err: err}
	}
	return image, nil
}

func bookingErrorText(body []byte) string {
	doc, err := scrape.Document("booking", body)
	if err != nil {
		return ""
	}
	return scrape.Text(doc.Find("div[class*=error], div[class*=alert]").First())
}
