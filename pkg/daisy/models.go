package daisy

import (
	"fmt"
	"time"
)

// RoomTime is a schedule hour slot. Daisy books rooms in whole hours from
// 04:00 through 23:00.
type RoomTime int

const (
	RoomTimeMin RoomTime = 4
	RoomTimeMax RoomTime = 23
)

// Valid reports whether the hour falls inside Daisy's bookable range.
func (t RoomTime) Valid() bool { return t >= RoomTimeMin && t <= RoomTimeMax }

func (t RoomTime) String() string { return fmt.Sprintf("%02d:00", int(t)) }

// RoomCategory is a Daisy room category with its numeric ID as used in the
// schedule servlet forms.
type RoomCategory int

const (
	TeachingRooms               RoomCategory = 64
	StudentLab                  RoomCategory = 65
	ComputerLabs                RoomCategory = 66
	SeminarRooms                RoomCategory = 67
	BookableGroupRooms          RoomCategory = 68
	StaffMeetingRooms           RoomCategory = 71
	MediaProduction             RoomCategory = 76
	NonBookableGroupRooms       RoomCategory = 77
	VisitorsMeetingRooms        RoomCategory = 81
	ProjectMeetingRooms         RoomCategory = 82
	DistanceAndRecordingStudios RoomCategory = 95
)

// Valid reports whether the value is a known category ID.
func (c RoomCategory) Valid() bool {
	switch c {
	case TeachingRooms, StudentLab, ComputerLabs, SeminarRooms,
		BookableGroupRooms, StaffMeetingRooms, MediaProduction,
		NonBookableGroupRooms, VisitorsMeetingRooms, ProjectMeetingRooms,
		DistanceAndRecordingStudios:
		return true
	}
	return false
}

// Room is a Daisy room with its numeric ID.
type Room int

const (
	// Bookable group rooms
	G10_1 Room = 633
	G10_2 Room = 634
	G10_3 Room = 635
	G10_4 Room = 636
	G10_5 Room = 637
	G10_6 Room = 638
	G10_7 Room = 639
	G5_1  Room = 815
	G5_2  Room = 796
	G5_3  Room = 797
	G5_4  Room = 798
	G5_5  Room = 799
	G5_6  Room = 800
	G5_7  Room = 801
	G5_8  Room = 802
	G5_9  Room = 803
	G5_10 Room = 804
	G5_11 Room = 805
	G5_12 Room = 795
	G5_13 Room = 814
	G5_15 Room = 812
	G5_16 Room = 811
	G5_17 Room = 810

	// Visitors meeting rooms
	F1 Room = 840
	F2 Room = 839
	F3 Room = 838

	// Computer labs
	D1 Room = 625
	D2 Room = 626
	D3 Room = 627
	D4 Room = 628

	// Distance and recording studios
	IdealStudio Room = 790
	SmallStudio Room = 1275

	// Group rooms that cannot be booked
	G10_8 Room = 640
	G5_14 Room = 813
	G5_18 Room = 809
	G5_19 Room = 808
	G5_20 Room = 807
	G5_21 Room = 806

	// Media production
	P1              Room = 652
	P2              Room = 653
	P3              Room = 654
	StudentLabMedia Room = 651
	Studio          Room = 655

	// Project meeting rooms
	ProjectZone2 Room = 1257
	ProjectZone5 Room = 1258

	// Staff meeting rooms
	M10  Room = 817
	M20  Room = 820
	M6_1 Room = 823
	M6_2 Room = 822
	M6_3 Room = 821
	M6_4 Room = 824
	M6_5 Room = 825
	M6_6 Room = 819
	M8   Room = 818

	// Seminar rooms
	S1 Room = 629
	S2 Room = 630
	S3 Room = 631

	// Student labs
	StudentLabIDRight       Room = 648
	StudentLabIDLeft        Room = 1378
	StudentLabIDFix         Room = 1382
	StudentLabGame          Room = 1394
	StudentLabGame2022      Room = 649
	StudentLabGameExtra2022 Room = 869
	StudentLabSecurity      Room = 650

	// Teaching rooms
	AuditoriumNOD   Room = 620
	DL40            Room = 632
	L30             Room = 622
	L50             Room = 623
	L70             Room = 624
	SmallAuditorium Room = 621
)

// roomNames maps the Swedish room names shown in Daisy pages to room IDs.
var roomNames = map[string]Room{
	"G10:1": G10_1, "G10:2": G10_2, "G10:3": G10_3, "G10:4": G10_4,
	"G10:5": G10_5, "G10:6": G10_6, "G10:7": G10_7, "G10:8": G10_8,
	"G5:1": G5_1, "G5:2": G5_2, "G5:3": G5_3, "G5:4": G5_4,
	"G5:5": G5_5, "G5:6": G5_6, "G5:7": G5_7, "G5:8": G5_8,
	"G5:9": G5_9, "G5:10": G5_10, "G5:11": G5_11, "G5:12": G5_12,
	"G5:13": G5_13, "G5:14": G5_14, "G5:15": G5_15, "G5:16": G5_16,
	"G5:17": G5_17, "G5:18": G5_18, "G5:19": G5_19, "G5:20": G5_20,
	"G5:21": G5_21,

	"Foaje F1": F1, "Foaje F2": F2, "Foaje F3": F3,

	"D1": D1, "D2": D2, "D3": D3, "D4": D4,

	"IDEAL-studion": IdealStudio, "Lilla studion": SmallStudio,

	"Produktion 1": P1, "Produktion 2": P2, "Produktion 3": P3,
	"Studentlabb Media": StudentLabMedia, "Studio": Studio,

	"Projektmöte Zon 2": ProjectZone2, "Projektmöte Zon 5": ProjectZone5,

	"M10": M10, "M20": M20, "M8": M8,
	"M6:1": M6_1, "M6:2": M6_2, "M6:3": M6_3,
	"M6:4": M6_4, "M6:5": M6_5, "M6:6": M6_6,

	"S1": S1, "S2": S2, "S3": S3,

	"Studentlabb ID Höger":           StudentLabIDRight,
	"Studentlabb ID Vänster":         StudentLabIDLeft,
	"Studentlabb ID:fix":             StudentLabIDFix,
	"Studentlabb Spel":               StudentLabGame,
	"Studentlabb Spel (-2022)":       StudentLabGame2022,
	"Studentlabb Spel extra (-2022)": StudentLabGameExtra2022,
	"Studentlabb Säkerhet":           StudentLabSecurity,

	"Aula NOD": AuditoriumNOD, "DL40": DL40,
	"L30": L30, "L50": L50, "L70": L70,
	"Lilla Hörsalen": SmallAuditorium,
}

// RoomFromName resolves a room name as shown in Daisy pages to its ID.
func RoomFromName(name string) (Room, bool) {
	room, ok := roomNames[name]
	return room, ok
}

// InstitutionDSV is the only institution the wrapper supports. The
// institution parameter exists in Daisy's forms but DSV is the only value
// the services accept.
const InstitutionDSV = "4"

// RoomActivity is one scheduled activity in the category schedule, spanning
// whole-hour slots.
type RoomActivity struct {
	Start RoomTime `json:"start"`
	End   RoomTime `json:"end"`
	Event string   `json:"event"`
}

// Schedule is the booking grid for one room category on one day. Activities
// are keyed by the room name as printed in the schedule header.
type Schedule struct {
	Activities    map[string][]RoomActivity `json:"activities"`
	CategoryTitle string                    `json:"category_title"`
	CategoryID    int                       `json:"category_id"`
	Category      RoomCategory              `json:"category"`
	Date          time.Time                 `json:"date"`
}

// Activity is one event in a single room's activity listing. Times are
// clock times in HH:MM.
type Activity struct {
	Room       string    `json:"room"`
	CourseCode string    `json:"course_code,omitempty"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Date       time.Time `json:"date"`
}

// Student is a student search result.
type Student struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Program   string `json:"program,omitempty"`
}

// FullName returns "first last", or the username when the name is unknown.
func (s Student) FullName() string {
	if s.FirstName != "" && s.LastName != "" {
		return s.FirstName + " " + s.LastName
	}
	return s.Username
}

// Staff is an employee record. Search results carry only PersonID, Name and
// ProfileURL; StaffDetails fills in the rest.
type Staff struct {
	PersonID      string   `json:"person_id"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	Room          string   `json:"room,omitempty"`
	Location      string   `json:"location,omitempty"`
	ProfileURL    string   `json:"profile_url,omitempty"`
	ProfilePicURL string   `json:"profile_pic_url,omitempty"`
	Units         []string `json:"units,omitempty"`
	SwedishTitle  string   `json:"swedish_title,omitempty"`
	EnglishTitle  string   `json:"english_title,omitempty"`
	Phone         string   `json:"phone,omitempty"`
}
