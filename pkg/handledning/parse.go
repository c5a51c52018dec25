package handledning

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dsv-su/dsvgo/pkg/scrape"
)

var (
	courseRe     = regexp.MustCompile(`([A-Z]{2}\d{4})\s*-?\s*(.*)`)
	clockRangeRe = regexp.MustCompile(`(\d{2}:\d{2})\s*-\s*(\d{2}:\d{2})`)
	clockRe      = regexp.MustCompile(`\d{2}:\d{2}`)
	sessionIDRe  = regexp.MustCompile(`(?:session|queue)/(\d+)`)
)

// ParseSessions decodes a session listing page. Sessions missing a course
// or a time range are skipped; the pages mix session cards with unrelated
// markup.
func ParseSessions(body []byte, fallbackTeacher string) ([]Session, error) {
	doc, err := scrape.Document("sessions", body)
	if err != nil {
		return nil, err
	}

	sessions := []Session{}
	doc.Find("div[class*=session], div[class*=handledning]").Each(func(_ int, div *goquery.Selection) {
		courseText := scrape.Text(div.Find("[class*=course]").First())
		timeText := scrape.Text(div.Find("[class*=time], [class*=tid]").First())
		if courseText == "" || timeText == "" {
			return
		}
		times := clockRangeRe.FindStringSubmatch(timeText)
		if times == nil {
			return
		}

		session := Session{
			ID:         sessionID(div),
			CourseCode: courseText,
			Teacher:    fallbackTeacher,
			Start:      times[1],
			End:        times[2],
			Room:       scrape.Text(div.Find("[class*=room], [class*=rum]").First()),
		}
		if m := courseRe.FindStringSubmatch(courseText); m != nil {
			session.CourseCode = m[1]
			session.CourseName = strings.TrimSpace(m[2])
		}
		if teacher := scrape.Text(div.Find("[class*=teacher], [class*=lärare]").First()); teacher != "" {
			session.Teacher = teacher
		}
		status := strings.ToLower(scrape.Text(div.Find("[class*=status], [class*=active]").First()))
		session.Active = strings.Contains(status, "aktiv") || strings.Contains(status, "active")

		sessions = append(sessions, session)
	})
	return sessions, nil
}

// sessionID recovers a session's identifier from its card, preferring
// an explicit data attribute over the queue link target.
func sessionID(div *goquery.Selection) string {
	if id, ok := div.Attr("data-session-id"); ok && id != "" {
		return id
	}
	var found string
	div.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if m := sessionIDRe.FindStringSubmatch(href); m != nil {
			found = m[1]
			return false
		}
		return true
	})
	return found
}

// ParseQueue decodes a session's queue table. Position is the row order on
// the page, starting at 1.
func ParseQueue(body []byte) ([]QueueEntry, error) {
	doc, err := scrape.Document("queue", body)
	if err != nil {
		return nil, err
	}

	queue := []QueueEntry{}
	doc.Find("tr[class*=queue-entry], tr[class*=student]").Each(func(_ int, row *goquery.Selection) {
		student := scrape.Text(row.Find("td[class*=student], td[class*=name]").First())
		if student == "" {
			return
		}

		entry := QueueEntry{
			Student:  student,
			Position: len(queue) + 1,
			Status:   StatusWaiting,
			Room:     scrape.Text(row.Find("td[class*=room]").First()),
		}
		if timeText := scrape.Text(row.Find("td[class*=time], td[class*=timestamp]").First()); timeText != "" {
			entry.QueuedAt = clockRe.FindString(timeText)
		}
		status := strings.ToLower(scrape.Text(row.Find("td[class*=status]").First()))
		switch {
		case strings.Contains(status, "pågår") || strings.Contains(status, "progress"):
			entry.Status = StatusInProgress
		case strings.Contains(status, "klar") || strings.Contains(status, "completed"):
			entry.Status = StatusCompleted
		}

		queue = append(queue, entry)
	})
	return queue, nil
}

// errorText returns the first error banner on a page, if any.
func errorText(body []byte) string {
	doc, err := scrape.Document("response", body)
	if err != nil {
		return ""
	}
	return scrape.Text(doc.Find("div[class*=error], div[class*=alert-danger]").First())
}
