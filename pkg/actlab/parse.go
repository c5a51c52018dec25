package actlab

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dsv-su/dsvgo/pkg/scrape"
)

// Slide is one uploaded signage image.
type Slide struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename,omitempty"`
}

// ParseSlides decodes the slide inventory from the admin page. Slides are
// div.slide elements whose id attribute is the numeric slide ID.
func ParseSlides(body []byte) ([]Slide, error) {
	doc, err := scrape.Document("admin page", body)
	if err != nil {
		return nil, err
	}

	slides := []Slide{}
	doc.Find("div.slide").Each(func(_ int, div *goquery.Selection) {
		id, ok := div.Attr("id")
		if !ok || !isDigits(id) {
			return
		}
		slide := Slide{ID: id, Name: scrape.Text(div.Find(".slide-name").First())}
		if slide.Name == "" {
			slide.Name = "Slide " + id
		}
		if href, ok := div.Find("a[href]").First().Attr("href"); ok && href != "" {
			slide.Filename = path.Base(href)
		}
		slides = append(slides, slide)
	})
	return slides, nil
}

// ParseShowSlides returns the slide IDs attached to one show, in page
// order. Oldest slides come first.
func ParseShowSlides(body []byte, showID string) ([]string, error) {
	doc, err := scrape.Document("admin page", body)
	if err != nil {
		return nil, err
	}

	show := doc.Find(fmt.Sprintf("div.show[id=%q]", showID)).First()
	if show.Length() == 0 {
		return nil, nil
	}

	var ids []string
	show.Find("div.slide").Each(func(_ int, div *goquery.Selection) {
		if id, ok := div.Attr("id"); ok && isDigits(id) {
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// UploadForm is the multipart form on the admin page. The action value and
// size limit are read from the page so server-side changes are picked up.
type UploadForm struct {
	ActionURL   string
	ActionValue string
	MaxFileSize string
}

// ParseUploadForm locates the slide upload form on the admin page.
func ParseUploadForm(body []byte, baseURL string) (*UploadForm, error) {
	doc, err := scrape.Document("admin page", body)
	if err != nil {
		return nil, err
	}

	form := doc.Find(`form[enctype="multipart/form-data"]`).First()
	if form.Length() == 0 {
		return nil, &scrape.ParseError{Page: "admin page", Reason: "upload form not found"}
	}

	action, _ := form.Attr("action")
	if !strings.HasPrefix(action, "http") {
		action = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(action, "/")
	}

	actionValue, _ := form.Find(`input[name="action"]`).First().Attr("value")
	if actionValue == "" {
		actionValue = "upload_file"
	}
	maxFileSize, _ := form.Find(`input[name="MAX_FILE_SIZE"]`).First().Attr("value")
	if maxFileSize == "" {
		maxFileSize = "10000000"
	}

	return &UploadForm{ActionURL: action, ActionValue: actionValue, MaxFileSize: maxFileSize}, nil
}

// NewestSlideID returns the highest slide ID on the page, or "" when the
// page has no slides. Upload responses do not carry the new ID, so it is
// recovered by re-reading the inventory.
func NewestSlideID(body []byte) (string, error) {
	slides, err := ParseSlides(body)
	if err != nil {
		return "", err
	}
	newest := ""
	max := -1
	for _, slide := range slides {
		if n, err := strconv.Atoi(slide.ID); err == nil && n > max {
			max = n
			newest = slide.ID
		}
	}
	return newest, nil
}

// pageError returns the error banner on the admin page, if any.
func pageError(body []byte) string {
	doc, err := scrape.Document("admin page", body)
	if err != nil {
		return ""
	}
	return scrape.Text(doc.Find("div[class*=error]").First())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
