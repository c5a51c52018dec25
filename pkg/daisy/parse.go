package daisy

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dsv-su/dsvgo/pkg/scrape"
)

var (
	scheduleDateRe = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	personIDRe     = regexp.MustCompile(`personID=(\d+)`)
	clockRangeRe   = regexp.MustCompile(`(\d{2}:\d{2})\s*-\s*(\d{2}:\d{2})`)
)

// ParseSchedule decodes the schedule servlet's booking grid. The grid is a
// table.bgTabell where the first row holds the category header and date, the
// second row the room names, and the remaining rows one hour slot each.
// Multi-hour activities occupy a single cell with a rowspan; the following
// rows simply omit the cell, so column positions shift as bookings overlap.
func ParseSchedule(body []byte) (*Schedule, error) {
	doc, err := scrape.Document("schedule", body)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.bgTabell").First()
	if table.Length() == 0 {
		return nil, &scrape.ParseError{Page: "schedule", Reason: "table.bgTabell not found"}
	}
	rows := table.Find("tr")
	if rows.Length() < 3 {
		return nil, &scrape.ParseError{Page: "schedule", Reason: "schedule table has too few rows"}
	}

	header := rows.Eq(0).Find("td").Eq(1)
	title := scrape.Text(header.Find("b").First())

	href, ok := header.Find("a").First().Attr("href")
	if !ok {
		return nil, &scrape.ParseError{Page: "schedule", Reason: "category link missing from header"}
	}
	categoryID, err := categoryIDFromHref(href)
	if err != nil {
		return nil, err
	}

	headerHTML, _ := goquery.OuterHtml(header)
	dateMatch := scheduleDateRe.FindStringSubmatch(headerHTML)
	if dateMatch == nil {
		return nil, &scrape.ParseError{Page: "schedule", Reason: "date missing from header"}
	}
	day, err := time.Parse("2006-01-02", dateMatch[0])
	if err != nil {
		return nil, &scrape.ParseError{Page: "schedule", Reason: "bad header date: " + err.Error()}
	}

	var roomNames []string
	rows.Eq(1).Find("td").Each(func(i int, cell *goquery.Selection) {
		if i > 0 {
			roomNames = append(roomNames, scrape.Text(cell))
		}
	})

	type slot struct {
		timeSlot string
		event    string
	}
	events := make([][]slot, len(roomNames))
	offsets := make([]int, len(roomNames))

	for r := 2; r < rows.Length(); r++ {
		cells := rows.Eq(r).Find("td")
		if cells.Length() == 0 {
			continue
		}
		timeSlot := scrape.Text(cells.Eq(0))

		slicer := 0
		for i := range roomNames {
			if offsets[i] > 0 {
				// Continuation of a rowspan booking; no cell is present.
				events[i] = append(events[i], slot{timeSlot, events[i][len(events[i])-1].event})
				offsets[i]--
				continue
			}
			if slicer+1 >= cells.Length() {
				break
			}

			cell := cells.Eq(slicer + 1)
			link := cell.Find("a").First()
			rowspanAttr, hasRowspan := cell.Attr("rowspan")
			if link.Length() > 0 && (hasRowspan || scrape.Text(cell) != "") {
				duration := scrape.Text(cell.Find("span.mini").First())
				if strings.Contains(duration, ": ") {
					label := link.Clone()
					label.Find("span.mini").Remove()

					span := 1
					if hasRowspan {
						if n, err := strconv.Atoi(rowspanAttr); err == nil {
							span = n
						}
					}
					events[i] = append(events[i], slot{timeSlot, scrape.Text(label)})
					offsets[i] = span - 1
				}
			}
			slicer++
		}
	}

	activities := make(map[string][]RoomActivity, len(roomNames))
	for i, name := range roomNames {
		activities[name] = []RoomActivity{}
		for _, s := range events[i] {
			start, end, ok := splitHourRange(s.timeSlot)
			if !ok {
				continue
			}
			activities[name] = append(activities[name], RoomActivity{
				Start: start,
				End:   end,
				Event: s.event,
			})
		}
	}

	return &Schedule{
		Activities:    activities,
		CategoryTitle: title,
		CategoryID:    categoryID,
		Category:      RoomCategory(categoryID),
		Date:          day,
	}, nil
}

// categoryIDFromHref extracts the category ID from the header link, which
// has the shape "...?x=y&lokalkategoriID=NN".
func categoryIDFromHref(href string) (int, error) {
	parts := strings.Split(href, "&")
	if len(parts) < 2 {
		return 0, &scrape.ParseError{Page: "schedule", Reason: "category link has no ID parameter"}
	}
	kv := strings.SplitN(parts[1], "=", 2)
	if len(kv) != 2 {
		return 0, &scrape.ParseError{Page: "schedule", Reason: "category link has no ID parameter"}
	}
	id, err := strconv.Atoi(kv[1])
	if err != nil {
		return 0, &scrape.ParseError{Page: "schedule", Reason: "category ID is not numeric"}
	}
	return id, nil
}

// splitHourRange parses a first-column slot like "13-14".
func splitHourRange(s string) (RoomTime, RoomTime, bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return RoomTime(start), RoomTime(end), true
}

// ParseStudents decodes student search result rows.
func ParseStudents(body []byte) ([]Student, error) {
	doc, err := scrape.Document("student search", body)
	if err != nil {
		return nil, err
	}

	students := []Student{}
	doc.Find("tr[class*=student]").Each(func(_ int, row *goquery.Selection) {
		username := scrape.Text(row.Find("td[class*=user]").First())
		if username == "" {
			return
		}
		student := Student{
			Username: username,
			Email:    scrape.Text(row.Find("td[class*=mail]").First()),
			Program:  scrape.Text(row.Find("td[class*=program]").First()),
		}
		if name := scrape.Text(row.Find("td[class*=name]").First()); name != "" {
			fields := strings.Fields(name)
			student.FirstName = fields[0]
			student.LastName = strings.Join(fields[1:], " ")
		}
		students = append(students, student)
	})
	return students, nil
}

// ParseActivities decodes a single room's activity listing.
func ParseActivities(body []byte, roomID string, day time.Time) ([]Activity, error) {
	doc, err := scrape.Document("room activities", body)
	if err != nil {
		return nil, err
	}

	activities := []Activity{}
	doc.Find("div[class*=activity], div[class*=event]").Each(func(_ int, div *goquery.Selection) {
		timeText := scrape.Text(div.Find("[class*=time]").First())
		m := clockRangeRe.FindStringSubmatch(timeText)
		if m == nil {
			return
		}
		activities = append(activities, Activity{
			Room:       roomID,
			CourseCode: scrape.Text(div.Find("[class*=course]").First()),
			Start:      m[1],
			End:        m[2],
			Date:       day,
		})
	})
	return activities, nil
}

// ParseStaffSearch decodes the employee search result tables. Each hit is a
// row in a table.randig with a profile link carrying the person ID.
func ParseStaffSearch(body []byte, baseURL string) ([]Staff, error) {
	doc, err := scrape.Document("staff search", body)
	if err != nil {
		return nil, err
	}

	staff := []Staff{}
	doc.Find("table.randig tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("td").Length() < 2 {
			return
		}
		link := row.Find("a[href*=personID]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		m := personIDRe.FindStringSubmatch(href)
		if m == nil {
			return
		}
		staff = append(staff, Staff{
			PersonID:   m[1],
			Name:       scrape.Text(link),
			ProfileURL: baseURL + href,
		})
	})
	return staff, nil
}

// ParseStaffDetails decodes an employee profile page. Field labels come in
// both Swedish and English depending on the viewer's locale.
func ParseStaffDetails(personID string, body []byte, baseURL string) (*Staff, error) {
	doc, err := scrape.Document("staff details", body)
	if err != nil {
		return nil, err
	}

	staff := &Staff{
		PersonID:   personID,
		ProfileURL: baseURL + "/anstalld/anstalldinfo.jspa?personID=" + personID,
	}

	if src, ok := doc.Find(`img[src*="daisy.Jpg"]`).First().Attr("src"); ok && strings.HasPrefix(src, "/") {
		staff.ProfilePicURL = schemeAndHost(baseURL) + src
	}
	if href, ok := doc.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		staff.Email = strings.TrimPrefix(href, "mailto:")
	}

	staff.Name = scrape.Text(doc.Find("div.fonsterrub").First())
	if staff.Name == "" {
		staff.Name = scrape.Text(doc.Find("h1").First())
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(scrape.Text(cells.Eq(0)))
		value := scrape.Text(cells.Eq(1))

		switch {
		case strings.Contains(label, "rum") || strings.Contains(label, "room"):
			staff.Room = value
		case strings.Contains(label, "lokal") || strings.Contains(label, "plats") || strings.Contains(label, "arbetsplats"):
			staff.Location = value
		case strings.Contains(label, "enhet") || strings.Contains(label, "units"):
			for _, unit := range strings.Split(value, ",") {
				if unit = strings.TrimSpace(unit); unit != "" {
					staff.Units = append(staff.Units, unit)
				}
			}
		case strings.Contains(label, "svensk") && strings.Contains(label, "titel"):
			staff.SwedishTitle = value
		case strings.Contains(label, "engelsk") || strings.Contains(label, "english"):
			staff.EnglishTitle = value
		case strings.Contains(label, "telefon") || strings.Contains(label, "phone"):
			staff.Phone = value
		}
	})

	return staff, nil
}

func schemeAndHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
