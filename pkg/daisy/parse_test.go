package daisy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsv-su/dsvgo/pkg/scrape"
)

const scheduleFixture = `<html><body>
<table class="bgTabell">
<tr>
  <td>Tid</td>
  <td><b>Grupprum (bokningsbara)</b>
      <a href="schema.LokalSchema?gads=1&lokalkategoriID=68">byt kategori</a>
      2026-03-02
  </td>
</tr>
<tr><td>Tid</td><td>G10:1</td><td>G10:2</td></tr>
<tr>
  <td>9-10</td>
  <td rowspan="2"><a href="#">PROG2 Grupparbete<span class="mini">Tid: 09-11</span></a></td>
  <td></td>
</tr>
<tr>
  <td>10-11</td>
  <td></td>
</tr>
<tr>
  <td>11-12</td>
  <td></td>
  <td><a href="#">Handledarmöte<span class="mini">Tid: 11-12</span></a></td>
</tr>
</table>
</body></html>`

func TestParseSchedule(t *testing.T) {
	schedule, err := ParseSchedule([]byte(scheduleFixture))
	require.NoError(t, err)

	assert.Equal(t, "Grupprum (bokningsbara)", schedule.CategoryTitle)
	assert.Equal(t, 68, schedule.CategoryID)
	assert.Equal(t, BookableGroupRooms, schedule.Category)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), schedule.Date)

	require.Contains(t, schedule.Activities, "G10:1")
	require.Contains(t, schedule.Activities, "G10:2")

	assert.Equal(t, []RoomActivity{
		{Start: 9, End: 10, Event: "PROG2 Grupparbete"},
		{Start: 10, End: 11, Event: "PROG2 Grupparbete"},
	}, schedule.Activities["G10:1"])

	assert.Equal(t, []RoomActivity{
		{Start: 11, End: 12, Event: "Handledarmöte"},
	}, schedule.Activities["G10:2"])
}

func TestParseScheduleMissingTable(t *testing.T) {
	_, err := ParseSchedule([]byte("<html><body><p>underhåll pågår</p></body></html>"))
	var parseErr *scrape.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "schedule", parseErr.Page)
}

func TestParseStudents(t *testing.T) {
	fixture := `<table>
<tr class="student-row">
  <td class="username">abcd1234</td>
  <td class="name">Anna Andersson</td>
  <td class="email">anna@dsv.su.se</td>
  <td class="program">SDM</td>
</tr>
<tr class="student-row">
  <td class="username">efgh5678</td>
</tr>
</table>`

	students, err := ParseStudents([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, students, 2)

	assert.Equal(t, Student{
		Username:  "abcd1234",
		FirstName: "Anna",
		LastName:  "Andersson",
		Email:     "anna@dsv.su.se",
		Program:   "SDM",
	}, students[0])
	assert.Equal(t, "Anna Andersson", students[0].FullName())

	assert.Equal(t, "efgh5678", students[1].Username)
	assert.Equal(t, "efgh5678", students[1].FullName())
}

func TestParseActivities(t *testing.T) {
	fixture := `<div class="activity">
  <span class="course">PROG2</span>
  <span class="time">10:00 - 12:00</span>
</div>
<div class="event">
  <span class="time">13:15-15:00</span>
</div>
<div class="activity"><span class="time">hela dagen</span></div>`

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	activities, err := ParseActivities([]byte(fixture), "G10:1", day)
	require.NoError(t, err)
	require.Len(t, activities, 2)

	assert.Equal(t, Activity{
		Room:       "G10:1",
		CourseCode: "PROG2",
		Start:      "10:00",
		End:        "12:00",
		Date:       day,
	}, activities[0])
	assert.Equal(t, "13:15", activities[1].Start)
	assert.Empty(t, activities[1].CourseCode)
}

const staffSearchFixture = `<table class="randig">
<tr><th>Namn</th><th>Enhet</th></tr>
<tr>
  <td><a href="/anstalld/anstalldinfo.jspa?personID=1234">Karl Karlsson</a></td>
  <td>ACT</td>
</tr>
<tr>
  <td><a href="/anstalld/anstalldinfo.jspa?personID=5678">Eva Eriksson</a></td>
  <td>IDEAL</td>
</tr>
<tr><td>rad utan länk</td><td></td></tr>
</table>`

func TestParseStaffSearch(t *testing.T) {
	staff, err := ParseStaffSearch([]byte(staffSearchFixture), "https://daisy.dsv.su.se")
	require.NoError(t, err)
	require.Len(t, staff, 2)

	assert.Equal(t, "1234", staff[0].PersonID)
	assert.Equal(t, "Karl Karlsson", staff[0].Name)
	assert.Equal(t, "https://daisy.dsv.su.se/anstalld/anstalldinfo.jspa?personID=1234", staff[0].ProfileURL)
	assert.Equal(t, "5678", staff[1].PersonID)
}

const staffDetailsFixture = `<html><body>
<div class="fonsterrub">Karl Karlsson</div>
<img src="/servlet/daisy.Jpg?personID=1234"/>
<a href="mailto:karl@dsv.su.se">karl@dsv.su.se</a>
<table>
<tr><td>Rum</td><td>6410</td></tr>
<tr><td>Arbetsplats</td><td>Nod-huset</td></tr>
<tr><td>Enhet</td><td>ACT, IDEAL</td></tr>
<tr><td>Svensk titel</td><td>Universitetslektor</td></tr>
<tr><td>Engelsk titel</td><td>Senior Lecturer</td></tr>
<tr><td>Telefon</td><td>08-16 00 00</td></tr>
</table>
</body></html>`

func TestParseStaffDetails(t *testing.T) {
	staff, err := ParseStaffDetails("1234", []byte(staffDetailsFixture), "https://daisy.dsv.su.se")
	require.NoError(t, err)

	assert.Equal(t, "1234", staff.PersonID)
	assert.Equal(t, "Karl Karlsson", staff.Name)
	assert.Equal(t, "karl@dsv.su.se", staff.Email)
	assert.Equal(t, "6410", staff.Room)
	assert.Equal(t, "Nod-huset", staff.Location)
	assert.Equal(t, []string{"ACT", "IDEAL"}, staff.Units)
	assert.Equal(t, "Universitetslektor", staff.SwedishTitle)
	assert.Equal(t, "Senior Lecturer", staff.EnglishTitle)
	assert.Equal(t, "08-16 00 00", staff.Phone)
	assert.Equal(t, "https://daisy.dsv.su.se/servlet/daisy.Jpg?personID=1234", staff.ProfilePicURL)
	assert.Equal(t, "https://daisy.dsv.su.se/anstalld/anstalldinfo.jspa?personID=1234", staff.ProfileURL)
}

func TestParseStaffDetailsNameFallsBackToH1(t *testing.T) {
	staff, err := ParseStaffDetails("9", []byte("<html><body><h1>Eva Eriksson</h1></body></html>"), "https://daisy.dsv.su.se")
	require.NoError(t, err)
	assert.Equal(t, "Eva Eriksson", staff.Name)
	assert.Empty(t, staff.Email)
}

func TestRoomFromName(t *testing.T) {
	room, ok := RoomFromName("G10:3")
	require.True(t, ok)
	assert.Equal(t, G10_3, room)

	room, ok = RoomFromName("Aula NOD")
	require.True(t, ok)
	assert.Equal(t, AuditoriumNOD, room)

	_, ok = RoomFromName("finns inte")
	assert.False(t, ok)
}

func TestRoomTime(t *testing.T) {
	assert.True(t, RoomTime(4).Valid())
	assert.True(t, RoomTime(23).Valid())
	assert.False(t, RoomTime(3).Valid())
	assert.False(t, RoomTime(24).Valid())
	assert.Equal(t, "09:00", RoomTime(9).String())
}
