package actlab

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/httputil"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

// DefaultBaseURL is the production signage admin.
const DefaultBaseURL = "https://www2.dsv.su.se/act-lab/admin"

// DefaultShowID is the Labbet show, where slides usually go.
const DefaultShowID = "1"

// Error is a failure reported by the signage backend, carrying its Swedish
// error message.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "actlab: " + e.Message }

// UploadResult reports a finished slide upload. SlideID can be empty when
// the upload went through but the new ID could not be recovered from the
// inventory.
type UploadResult struct {
	SlideID string
	Message string
}

// Client manages slides and shows for one authenticated user.
type Client struct {
	web  *auth.Client
	base string
	log  *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another instance, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithLogger sets the client logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// New creates a signage client authenticating through the given provider.
func New(provider auth.SessionProvider, creds auth.Credentials, opts ...Option) *Client {
	c := &Client{
		base: DefaultBaseURL,
		log:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.web = auth.NewClient(provider, creds, auth.ServiceACTLab)
	return c
}

// Slides lists every uploaded slide.
func (c *Client) Slides(ctx context.Context) ([]Slide, error) {
	body, err := c.web.GetBody(ctx, c.base+"/")
	if err != nil {
		return nil, err
	}
	return ParseSlides(body)
}

// UploadSlide uploads an image as a new slide and returns its ID. The
// upload form is re-read from the admin page first, since the backend bakes
// its size limit into the form.
func (c *Client) UploadSlide(ctx context.Context, slideName, fileName string, image io.Reader) (*UploadResult, error) {
	page, err := c.web.GetBody(ctx, c.base+"/")
	if err != nil {
		return nil, err
	}
	form, err := ParseUploadForm(page, c.base)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"action":        form.ActionValue,
		"filename":      slideName,
		"MAX_FILE_SIZE": form.MaxFileSize,
	} {
		if err := mw.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="uploadfile"; filename=%q`, fileName))
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("read slide image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	sess, err := c.web.Session(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.ActionURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := sess.DoNoFollow(req)
	if err != nil {
		return nil, &auth.NetworkError{Hop: "slide upload", Err: err}
	}
	if _, err := httputil.ReadBody(resp); err != nil {
		return nil, &auth.NetworkError{Hop: "slide upload", Err: err}
	}
	if err := c.settleActionResponse(ctx, sess, resp); err != nil {
		return nil, err
	}

	// The upload response carries no ID; re-read the inventory.
	page, err = c.web.GetBody(ctx, c.base+"/")
	if err != nil {
		return nil, err
	}
	if msg := pageError(page); msg != "" {
		return nil, &Error{Message: msg}
	}
	id, err := NewestSlideID(page)
	if err != nil {
		return nil, err
	}
	if id == "" {
		c.log.Warn("slide uploaded but no ID found in inventory")
		return &UploadResult{Message: "upload accepted, slide ID unknown"}, nil
	}
	c.log.WithField("slide", id).Info("slide uploaded")
	return &UploadResult{SlideID: id, Message: "upload accepted"}, nil
}

// SlideConfig holds per-show display settings for a slide.
type SlideConfig struct {
	ShowID     string
	StartTime  string
	EndTime    string
	AutoDelete bool
}

// ConfigureSlide sets a slide's display window and auto-delete flag.
func (c *Client) ConfigureSlide(ctx context.Context, slideID string, cfg SlideConfig) error {
	if cfg.ShowID == "" {
		cfg.ShowID = DefaultShowID
	}
	data := url.Values{
		"action":    {"configure_slide"},
		"showid":    {cfg.ShowID},
		"slideid":   {slideID},
		"starttime": {cfg.StartTime},
		"endtime":   {cfg.EndTime},
	}
	if cfg.AutoDelete {
		data.Set("autodelete", "on")
	}
	return c.postAction(ctx, data)
}

// AddSlideToShow attaches a slide to a show. With autoDelete the slide is
// deleted from disk once removed from the show, which is what scheduled
// content wants.
func (c *Client) AddSlideToShow(ctx context.Context, slideID, showID string, autoDelete bool) error {
	if showID == "" {
		showID = DefaultShowID
	}
	err := c.postAction(ctx, url.Values{
		"action": {"add_slide_to_show"},
		"add":    {slideID},
		"to":     {showID},
	})
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"slide": slideID, "show": showID}).Info("slide added to show")

	if autoDelete {
		return c.ConfigureSlide(ctx, slideID, SlideConfig{ShowID: showID, AutoDelete: true})
	}
	return nil
}

// RemoveSlideFromShow detaches a slide from a show.
func (c *Client) RemoveSlideFromShow(ctx context.Context, slideID, showID string) error {
	if showID == "" {
		showID = DefaultShowID
	}
	return c.postAction(ctx, url.Values{
		"action": {"remove"},
		"remove": {slideID},
		"from":   {showID},
	})
}

// DeleteSlide deletes a slide permanently. The backend models this as
// removal from the pseudo-show "slides".
func (c *Client) DeleteSlide(ctx context.Context, slideID string) error {
	return c.postAction(ctx, url.Values{
		"action": {"remove"},
		"remove": {slideID},
		"from":   {"slides"},
	})
}

// CleanupOldSlides removes all but the newest keepLatest slides from a show
// and returns how many were removed.
func (c *Client) CleanupOldSlides(ctx context.Context, showID string, keepLatest int) (int, error) {
	if showID == "" {
		showID = DefaultShowID
	}
	if keepLatest < 0 {
		keepLatest = 0
	}

	page, err := c.web.GetBody(ctx, c.base+"/")
	if err != nil {
		return 0, err
	}
	ids, err := ParseShowSlides(page, showID)
	if err != nil {
		return 0, err
	}
	if len(ids) <= keepLatest {
		return 0, nil
	}

	old := ids[:len(ids)-keepLatest]
	for _, id := range old {
		if err := c.RemoveSlideFromShow(ctx, id, showID); err != nil {
			return 0, err
		}
	}
	c.log.WithFields(logrus.Fields{"show": showID, "removed": len(old)}).Info("old slides removed")
	return len(old), nil
}

// postAction submits a mutation to action.php and interprets the backend's
// conventions: an "error=" Set-Cookie header carries the failure message, a
// redirect with an empty Location is success, a non-empty Location is
// followed once.
func (c *Client) postAction(ctx context.Context, data url.Values) error {
	sess, err := c.web.Session(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/action.php", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := sess.DoNoFollow(req)
	if err != nil {
		return &auth.NetworkError{Hop: "actlab action", Err: err}
	}
	if _, err := httputil.ReadBody(resp); err != nil {
		return &auth.NetworkError{Hop: "actlab action", Err: err}
	}
	return c.settleActionResponse(ctx, sess, resp)
}

func (c *Client) settleActionResponse(ctx context.Context, sess *auth.Session, resp *http.Response) error {
	// The backend sets error cookies with raw Swedish text, which breaks
	// strict cookie parsing; the raw header is inspected instead.
	for _, header := range resp.Header.Values("Set-Cookie") {
		if !strings.HasPrefix(header, "error=") {
			continue
		}
		msg := strings.TrimPrefix(strings.SplitN(header, ";", 2)[0], "error=")
		if decoded, err := url.QueryUnescape(msg); err == nil {
			msg = decoded
		}
		return &Error{Message: msg}
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		location := resp.Header.Get("Location")
		if location == "" {
			return nil
		}
		if strings.HasPrefix(location, "/") {
			location = schemeAndHost(c.base) + location
		}
		followed, err := sess.Get(ctx, location)
		if err != nil {
			return &auth.NetworkError{Hop: "actlab redirect", Err: err}
		}
		if _, err := httputil.ReadBody(followed); err != nil {
			return &auth.NetworkError{Hop: "actlab redirect", Err: err}
		}
		if followed.StatusCode >= http.StatusBadRequest {
			return &Error{Message: "HTTP " + followed.Status}
		}
		return nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &Error{Message: "HTTP " + resp.Status}
	}
	return nil
}

func schemeAndHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
