// Package temporal converts free-form date/time expressions ("next friday at
// 2pm", "June 10th at noon") into the structured values the calendar
// automation scripts type into keyboard-driven form fields. The target web
// application exposes no structured date/time API, so the canonical string
// renderings produced here are part of the contract.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Meridiem is the 12-hour clock half marker.
type Meridiem string

const (
	AM Meridiem = "AM"
	PM Meridiem = "PM"
)

// ClockTime is a 12-hour wall-clock time.
type ClockTime struct {
	Hour     int // 1-12
	Minute   int // 0-59
	Meridiem Meridiem
}

// String renders the time the way the scripted sequences type it: "12:00 PM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%d:%02d %s", c.Hour, c.Minute, c.Meridiem)
}

// ResolvedDateTime is the output of Resolve. Time is nil when the text carried
// no recognizable time expression.
type ResolvedDateTime struct {
	Date time.Time
	Time *ClockTime
}

// DateString renders the date the way the calendar's natural-language date
// field expects it: "June, 10, 2026".
func (r ResolvedDateTime) DateString() string {
	return fmt.Sprintf("%s, %d, %d", r.Date.Month().String(), r.Date.Day(), r.Date.Year())
}

var (
	reInDays    = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+days?\b`)
	reNextDay   = regexp.MustCompile(`(?i)\bnext\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday|sun|mon|tue|tues|wed|thu|thur|thurs|fri|sat)\b`)
	reBareDay   = regexp.MustCompile(`(?i)\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	reMonthDay  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	reSlashDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)

	reMeridiemTime = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	reBareHour     = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Resolve extracts a calendar date and an optional time from text, relative to
// now. It is pure and never fails: text with no recognizable expression
// resolves to now's date with no time. Date rules are priority-ordered, first
// match wins; time extraction is independent of the date match.
func Resolve(text string, now time.Time) ResolvedDateTime {
	return ResolvedDateTime{
		Date: resolveDate(text, now),
		Time: resolveTime(text),
	}
}

func resolveDate(text string, now time.Time) time.Time {
	lower := strings.ToLower(text)
	today := truncateToDay(now)

	switch {
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1)
	case strings.Contains(lower, "today"):
		return today
	case strings.Contains(lower, "next week"):
		return today.AddDate(0, 0, 7)
	}

	if m := reNextDay.FindStringSubmatch(lower); m != nil {
		target := weekdays[m[1]]
		// The occurrence at least 7 days out: same weekday means exactly one
		// week, anything else lands in the following week.
		offset := (int(target)-int(now.Weekday())+7)%7 + 7
		return today.AddDate(0, 0, offset)
	}

	if m := reBareDay.FindStringSubmatch(lower); m != nil {
		target := weekdays[m[1]]
		// Next occurrence, today excluded: always 1-7 days out.
		offset := (int(target) - int(now.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return today.AddDate(0, 0, offset)
	}

	if m := reInDays.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return today.AddDate(0, 0, n)
		}
	}

	if m := reMonthDay.FindStringSubmatch(lower); m != nil {
		month := months[m[1]]
		if day, err := strconv.Atoi(m[2]); err == nil && day >= 1 && day <= 31 {
			return rollForward(month, day, now)
		}
	}

	if m := reSlashDate.FindStringSubmatch(lower); m != nil {
		mo, err1 := strconv.Atoi(m[1])
		day, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && mo >= 1 && mo <= 12 && day >= 1 && day <= 31 {
			return rollForward(time.Month(mo), day, now)
		}
	}

	return today
}

// rollForward builds month/day in now's year, advancing the year by exactly
// one when the result would land before today.
func rollForward(month time.Month, day int, now time.Time) time.Time {
	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if candidate.Before(truncateToDay(now)) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate
}

func resolveTime(text string) *ClockTime {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "noon") {
		return &ClockTime{Hour: 12, Minute: 0, Meridiem: PM}
	}
	if strings.Contains(lower, "midnight") {
		return &ClockTime{Hour: 12, Minute: 0, Meridiem: AM}
	}

	if m := reMeridiemTime.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute >= 0 && minute <= 59 {
			mer := AM
			if m[3] == "pm" {
				mer = PM
			}
			return &ClockTime{Hour: hour, Minute: minute, Meridiem: mer}
		}
	}

	if m := reBareHour.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute >= 0 && minute <= 59 {
			return &ClockTime{Hour: hour, Minute: minute, Meridiem: inferMeridiem(hour)}
		}
	}

	return nil
}

// inferMeridiem disambiguates an hour given without am/pm. The table favors
// common afternoon/evening scheduling and downstream behavior depends on it;
// do not "correct" it.
func inferMeridiem(hour int) Meridiem {
	switch {
	case hour == 12:
		return PM
	case hour >= 1 && hour <= 6:
		return PM
	case hour >= 7 && hour <= 11:
		return AM
	default:
		return PM
	}
}

// EndTime computes the event end one hour after start. Hour 11 rolls to 12 and
// flips the meridiem (11 AM -> 12 PM, 11 PM -> 12 AM); hour 12 rolls to 1
// keeping the meridiem (noon -> 1 PM); every other hour advances unchanged.
func EndTime(start ClockTime) ClockTime {
	end := start
	switch start.Hour {
	case 11:
		end.Hour = 12
		end.Meridiem = flip(start.Meridiem)
	case 12:
		end.Hour = 1
	default:
		end.Hour = start.Hour + 1
	}
	return end
}

func flip(m Meridiem) Meridiem {
	if m == AM {
		return PM
	}
	return AM
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
