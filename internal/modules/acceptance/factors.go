// README: The five factor scorers; pure functions from (ride, driver) to a [0,1] sub-score.
package acceptance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"careride/internal/modules/distance"
)

const (
	// neutralScore is returned whenever a factor cannot be computed from the
	// ride's fields. Missing data should neither punish nor reward.
	neutralScore = 0.5

	// defaultProviderLegMiles stands in for an unknown pickup→provider leg.
	defaultProviderLegMiles = 5.0
	// avgTripSpeedMph converts trip miles to an on-road minutes estimate.
	avgTripSpeedMph = 25.0
	// onSiteMinutesOneWay / RoundTrip cover waiting at the provider.
	onSiteMinutesOneWay    = 30.0
	onSiteMinutesRoundTrip = 60.0
)

var urgentNoteKeywords = []string{"urgent", "emergency", "asap", "critical", "immediate"}

var urgentAppointmentTypes = []string{"emergency", "urgent care", "dialysis", "chemotherapy", "surgery"}

// scoreDistance turns a resolved driver→pickup distance into the dominant
// factor. res is nil when either location was missing and nothing could be
// resolved. A resolved distance beyond maxMiles zeroes the factor and makes
// the ride ineligible regardless of everything else.
func scoreDistance(ride Ride, driver Driver, res *distance.Result, maxMiles float64) DistanceFactor {
	if strings.TrimSpace(driver.Address) == "" || strings.TrimSpace(ride.PickupLocation) == "" || res == nil {
		return DistanceFactor{
			Score:       0.1,
			WithinRange: true,
			Reason:      "missing location data",
		}
	}

	leg := ride.DistanceToProviderMiles
	if leg <= 0 {
		leg = defaultProviderLegMiles
	}
	total := res.Miles + leg
	onSite := onSiteMinutesOneWay
	if ride.RoundTrip {
		total += leg
		onSite = onSiteMinutesRoundTrip
	}
	tripMinutes := total/avgTripSpeedMph*60 + onSite

	f := DistanceFactor{
		Miles:                res.Miles,
		Kind:                 res.Kind,
		TotalTripMiles:       total,
		EstimatedTripMinutes: tripMinutes,
	}

	if res.Miles > maxMiles {
		f.Score = 0
		f.WithinRange = false
		f.Reason = fmt.Sprintf("Pickup is %.1f mi away, beyond your %.0f mi range", res.Miles, maxMiles)
		return f
	}

	// Linear decay from 1.0 at zero distance to 0.1 at the cap. The floor
	// keeps every in-range ride distinguishable from an excluded one.
	score := 1 - res.Miles/maxMiles
	if score < 0.1 {
		score = 0.1
	}
	f.Score = score
	f.WithinRange = true
	f.Reason = fmt.Sprintf("Pickup is %.1f mi away", res.Miles)
	return f
}

// scoreTiming rates how much planning room the appointment leaves: 24–72
// hours out is ideal, under 2 hours is rushed, past 3 days is easy to forget.
func scoreTiming(ride Ride, now time.Time) TimingFactor {
	day, okDay := parseDate(ride.AppointmentDate, now.Location())
	hour, minute, okClock := parseClock(ride.AppointmentTime)
	if !okDay || !okClock {
		return TimingFactor{Score: neutralScore, Reason: "appointment time not set"}
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())

	hours := at.Sub(now).Hours()
	var score float64
	var reason string
	switch {
	case hours < 2:
		score, reason = 0.3, "very short notice"
	case hours < 24:
		score, reason = 0.8, "appointment within a day"
	case hours < 72:
		score, reason = 1.0, "comfortable planning window"
	default:
		score, reason = 0.7, "appointment is far out"
	}

	if wd := at.Weekday(); wd != time.Saturday && wd != time.Sunday {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return TimingFactor{Score: score, HoursUntil: hours, Reason: reason}
}

// scoreUrgency looks for medical-urgency signals in the ride's free text.
func scoreUrgency(ride Ride) UrgencyFactor {
	score := neutralScore
	reasons := []string{"routine"}

	notes := strings.ToLower(ride.Notes)
	for _, kw := range urgentNoteKeywords {
		if strings.Contains(notes, kw) {
			score += 0.3
			reasons = []string{"urgent keywords in notes"}
			break
		}
	}

	apptType := strings.ToLower(ride.AppointmentType)
	for _, kw := range urgentAppointmentTypes {
		if strings.Contains(apptType, kw) {
			score += 0.2
			if reasons[0] == "routine" {
				reasons = []string{"time-sensitive appointment type"}
			} else {
				reasons = append(reasons, "time-sensitive appointment type")
			}
			break
		}
	}

	if ride.RoundTrip {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return UrgencyFactor{
		Score:    score,
		IsUrgent: score > 0.7,
		Reason:   strings.Join(reasons, ", "),
	}
}

// Day slots used by the time-of-day heuristics.
const (
	slotEarlyMorning  = "early-morning"  // [6,9)
	slotMorning       = "morning"        // [9,12)
	slotAfternoon     = "afternoon"      // [12,15)
	slotLateAfternoon = "late-afternoon" // [15,18)
	slotEvening       = "evening"        // [18,21)
	slotNight         = "night"          // [21,6)
)

// slotAcceptanceRates approximates how often volunteer drivers historically
// accept rides in each slot; 0.5 is neutral. The deltas feed the preference
// adjustment below.
var slotAcceptanceRates = map[string]float64{
	slotEarlyMorning:  0.50,
	slotMorning:       0.60,
	slotAfternoon:     0.55,
	slotLateAfternoon: 0.50,
	slotEvening:       0.45,
	slotNight:         0.35,
}

func hourSlot(hour int) string {
	switch {
	case hour >= 6 && hour < 9:
		return slotEarlyMorning
	case hour >= 9 && hour < 12:
		return slotMorning
	case hour >= 12 && hour < 15:
		return slotAfternoon
	case hour >= 15 && hour < 18:
		return slotLateAfternoon
	case hour >= 18 && hour < 21:
		return slotEvening
	default:
		return slotNight
	}
}

// scoreTimeOfDay rates the appointment hour: mid-morning is prime time for
// NEMT volunteers, nights are a hard sell, and individual driver hints shift
// the balance by up to ±0.5.
func scoreTimeOfDay(ride Ride, driver Driver) TimeOfDayFactor {
	hour, ok := parseHour(ride.AppointmentTime)
	if !ok {
		return TimeOfDayFactor{Score: neutralScore, Hour: -1, Reason: "appointment time not set"}
	}

	slot := hourSlot(hour)
	var base float64
	switch slot {
	case slotEarlyMorning:
		base = 0.7
	case slotMorning:
		base = 0.9
	case slotAfternoon:
		base = 0.8
	case slotLateAfternoon:
		base = 0.7
	case slotEvening:
		base = 0.6
	default:
		base = 0.3
	}

	adjustment := slotAcceptanceRates[slot] - 0.5
	if driver.PreferredShift == "night" && (slot == slotEvening || slot == slotNight) {
		adjustment += 0.3
	}
	if driver.Availability == "part-time" && (slot == slotAfternoon || slot == slotLateAfternoon) {
		adjustment += 0.2
	}
	adjustment = clamp(adjustment, -0.5, 0.5)

	score := clamp(base+adjustment, 0, 1)
	return TimeOfDayFactor{
		Score:  score,
		Hour:   hour,
		Reason: fmt.Sprintf("%s appointment", slot),
	}
}

// scoreDayOfWeek rates the appointment weekday. Midweek is easiest to staff;
// Sundays are hardest. Driver availability patterns shift it, and weekend
// rides posted well in advance earn an extra bonus because weekend coverage
// is the chronic gap.
func scoreDayOfWeek(ride Ride, driver Driver, now time.Time) DayOfWeekFactor {
	day, ok := parseDate(ride.AppointmentDate, now.Location())
	if !ok {
		return DayOfWeekFactor{Score: neutralScore, Reason: "appointment date not set"}
	}
	wd := day.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday

	var base float64
	switch wd {
	case time.Tuesday, time.Wednesday, time.Thursday:
		base = 0.9
	case time.Monday, time.Friday:
		base = 0.8
	case time.Saturday:
		base = 0.6
	default: // Sunday
		base = 0.4
	}

	var adjustment float64
	switch driver.Availability {
	case "weekends-only":
		if weekend {
			adjustment += 0.4
		} else {
			adjustment -= 0.6
		}
	case "weekdays-only":
		if weekend {
			adjustment -= 0.4
		} else {
			adjustment += 0.2
		}
	}
	if !weekend && (driver.AgeGroup == "senior" || driver.Employment == "retired") {
		adjustment += 0.15
	}
	if weekend && driver.AgeGroup == "student" {
		adjustment += 0.25
	}
	adjustment = clamp(adjustment, -0.5, 0.5)
	score := clamp(base+adjustment, 0, 1)

	reason := fmt.Sprintf("%s appointment", strings.ToLower(wd.String()))
	if weekend {
		// Advance-notice bonus: weekend rides announced >48h ahead score up
		// to +0.2 more, maxing out at a week of notice.
		at, okAt := parseAppointmentAt(ride.AppointmentDate, ride.AppointmentTime, now.Location())
		if !okAt {
			at = day
		}
		notice := at.Sub(now).Hours()
		if notice > 48 {
			bonus := 0.2 * (notice - 48) / (168 - 48)
			if bonus > 0.2 {
				bonus = 0.2
			}
			score = clamp(score+bonus, 0, 1)
			reason += " with advance notice"
		}
	}

	return DayOfWeekFactor{
		Score:   score,
		Weekday: wd.String(),
		Reason:  reason,
	}
}

// parseAppointmentAt combines the ride's date and time strings into one
// instant. A missing or unparseable time defaults to 09:00 so date-only rides
// still produce a usable notice horizon.
func parseAppointmentAt(dateStr, timeStr string, loc *time.Location) (time.Time, bool) {
	day, ok := parseDate(dateStr, loc)
	if !ok {
		return time.Time{}, false
	}
	hour, minute := 9, 0
	if h, m, ok := parseClock(timeStr); ok {
		hour, minute = h, m
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

func parseDate(dateStr string, loc *time.Location) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006", "1/2/2006"} {
		if t, err := time.ParseInLocation(layout, dateStr, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock reads "HH:MM" with an optional AM/PM suffix.
func parseClock(timeStr string) (hour, minute int, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(timeStr))
	if s == "" {
		return 0, 0, false
	}

	pm := strings.HasSuffix(s, "PM")
	am := strings.HasSuffix(s, "AM")
	if pm || am {
		s = strings.TrimSpace(s[:len(s)-2])
	}

	parts := strings.SplitN(s, ":", 2)
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m := 0
	if len(parts) == 2 {
		m, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || m < 0 || m > 59 {
			return 0, 0, false
		}
	}
	if pm && h < 12 {
		h += 12
	}
	if am && h == 12 {
		h = 0
	}
	return h, m, true
}

func parseHour(timeStr string) (int, bool) {
	h, _, ok := parseClock(timeStr)
	return h, ok
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
