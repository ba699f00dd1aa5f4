package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openhearth/calendard/internal/clock"
	"github.com/openhearth/calendard/internal/domain"
)

// RelativeWindow is the "in" form of a range request: a whole number
// of days or weeks ahead of the caller's current day. Days and Weeks
// are mutually exclusive.
type RelativeWindow struct {
	Days  int `json:"days,omitempty"`
	Weeks int `json:"weeks,omitempty"`
}

// RangeRequest carries the raw date-range parameters of a get-events
// call. Exactly one of three shapes may be used:
//
//   - start_date + end_date (all-day, date-only, end exclusive)
//   - start_date_time + (end_date_time | duration)
//   - in.days | in.weeks
//
// A bare duration is also accepted and anchors at the caller-supplied
// now. Date and datetime values stay raw strings here: the timezone
// consistency rule compares the literal offset text of the inputs, so
// the resolver must see them unparsed.
type RangeRequest struct {
	StartDate     string          `json:"start_date,omitempty"`
	EndDate       string          `json:"end_date,omitempty"`
	StartDateTime string          `json:"start_date_time,omitempty"`
	EndDateTime   string          `json:"end_date_time,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	In            *RelativeWindow `json:"in,omitempty"`
}

// RangeResolver validates range requests and normalizes them into
// canonical half-open ranges. The location fixes what "local day"
// means for dates, naive datetimes and relative windows.
type RangeResolver struct {
	loc *time.Location
}

func NewRangeResolver(loc *time.Location) *RangeResolver {
	if loc == nil {
		loc = time.Local
	}
	return &RangeResolver{loc: loc}
}

// Resolve validates req and computes the canonical range. now anchors
// the relative shapes and is always passed in by the caller; the
// resolver never reads ambient time.
//
// Validation rules run in a fixed order and the first failure wins:
// anchor-group exclusivity, pair completeness per group, duration
// positivity, literal-offset timezone consistency, strict ordering of
// the computed bounds.
func (r *RangeResolver) Resolve(req RangeRequest, now time.Time) (domain.Range, error) {
	anchors := make([]string, 0, 3)
	if req.StartDate != "" {
		anchors = append(anchors, "start_date")
	}
	if req.StartDateTime != "" {
		anchors = append(anchors, "start_date_time")
	}
	if req.In != nil {
		anchors = append(anchors, "in")
	}

	if len(anchors) > 1 {
		return domain.Range{}, domain.NewValidationError(domain.RuleAtMostOneGroup,
			"must contain at most one of start_date, start_date_time, in", anchors...)
	}
	if len(anchors) == 0 && req.Duration == "" {
		return domain.Range{}, domain.NewValidationError(domain.RuleAtLeastOneGroup,
			"must contain at least one of start_date, start_date_time, in")
	}
	if req.EndDateTime != "" && req.Duration != "" {
		return domain.Range{}, domain.NewValidationError(domain.RuleAtMostOneGroup,
			"must contain at most one of end_date_time, duration", "end_date_time", "duration")
	}

	// Pair completeness. A stray end bound fails here even when some
	// other shape supplied the anchor.
	if (req.StartDate == "") != (req.EndDate == "") {
		return domain.Range{}, domain.NewValidationError(domain.RuleIncompletePair,
			"start and end dates must both be specified", "start_date", "end_date")
	}
	if req.StartDateTime != "" {
		if req.EndDateTime == "" && req.Duration == "" {
			return domain.Range{}, domain.NewValidationError(domain.RuleIncompletePair,
				"start and end datetimes must both be specified", "start_date_time", "end_date_time")
		}
	} else if req.EndDateTime != "" {
		return domain.Range{}, domain.NewValidationError(domain.RuleIncompletePair,
			"start and end datetimes must both be specified", "start_date_time", "end_date_time")
	}
	if req.In != nil && req.Duration != "" {
		return domain.Range{}, domain.NewValidationError(domain.RuleAtMostOneGroup,
			"must contain at most one of in, duration", "in", "duration")
	}

	var dur time.Duration
	if req.Duration != "" {
		var err error
		dur, err = parseDuration(req.Duration)
		if err != nil {
			return domain.Range{}, err
		}
		if dur <= 0 {
			return domain.Range{}, domain.NewValidationError(domain.RuleNonPositiveDuration,
				"duration should be positive", "duration")
		}
	}

	switch {
	case req.StartDate != "":
		return r.resolveDates(req.StartDate, req.EndDate)
	case req.StartDateTime != "":
		return r.resolveDateTimes(req.StartDateTime, req.EndDateTime, dur)
	case req.In != nil:
		return r.resolveWindow(*req.In, now)
	default:
		// Bare duration anchors at now.
		start := now.In(r.loc)
		return checkOrder(domain.Range{Start: start, End: start.Add(dur)})
	}
}

func (r *RangeResolver) resolveDates(startDate, endDate string) (domain.Range, error) {
	start, err := parseDate(startDate, r.loc)
	if err != nil {
		return domain.Range{}, domain.NewValidationError(domain.RuleMalformedValue,
			fmt.Sprintf("invalid date %q", startDate), "start_date")
	}
	end, err := parseDate(endDate, r.loc)
	if err != nil {
		return domain.Range{}, domain.NewValidationError(domain.RuleMalformedValue,
			fmt.Sprintf("invalid date %q", endDate), "end_date")
	}
	return checkOrder(domain.Range{Start: start, End: end, AllDay: true})
}

func (r *RangeResolver) resolveDateTimes(startRaw, endRaw string, dur time.Duration) (domain.Range, error) {
	start, startOffset, err := parseDateTime(startRaw, r.loc)
	if err != nil {
		return domain.Range{}, domain.NewValidationError(domain.RuleMalformedValue,
			fmt.Sprintf("invalid datetime %q", startRaw), "start_date_time")
	}

	if endRaw == "" {
		return checkOrder(domain.Range{Start: start, End: start.Add(dur)})
	}

	end, endOffset, err := parseDateTime(endRaw, r.loc)
	if err != nil {
		return domain.Range{}, domain.NewValidationError(domain.RuleMalformedValue,
			fmt.Sprintf("invalid datetime %q", endRaw), "end_date_time")
	}

	// The consistency check compares the literal offset annotations of
	// the two inputs, not the instants they denote. Naive values carry
	// no annotation and are exempt.
	if startOffset != "" && endOffset != "" && startOffset != endOffset {
		return domain.Range{}, domain.NewValidationError(domain.RuleInconsistentTimezone,
			"expected all values to have the same timezone", "start_date_time", "end_date_time")
	}
	return checkOrder(domain.Range{Start: start, End: end})
}

func (r *RangeResolver) resolveWindow(in RelativeWindow, now time.Time) (domain.Range, error) {
	if in.Days != 0 && in.Weeks != 0 {
		return domain.Range{}, domain.NewValidationError(domain.RuleAtMostOneGroup,
			"must contain at most one of days, weeks", "days", "weeks")
	}
	days := in.Days
	if in.Weeks != 0 {
		days = in.Weeks * 7
	}
	if days <= 0 {
		return domain.Range{}, domain.NewValidationError(domain.RuleNonPositiveDuration,
			"window should be positive", "in")
	}
	start := clock.StartOfDay(now.In(r.loc))
	return checkOrder(domain.Range{Start: start, End: start.AddDate(0, 0, days)})
}

func checkOrder(rng domain.Range) (domain.Range, error) {
	if !rng.End.After(rng.Start) {
		return domain.Range{}, domain.NewValidationError(domain.RuleNonPositiveRange,
			"expected minimum event duration")
	}
	return rng, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, loc)
}

// parseDateTime parses an RFC 3339 datetime or its naive (offsetless)
// form. The second return is the literal offset text of the input:
// "Z", "+07:00" style, or "" for naive values.
func parseDateTime(value string, loc *time.Location) (time.Time, string, error) {
	offset := literalOffset(value)
	if offset == "" {
		t, err := time.ParseInLocation("2006-01-02T15:04:05", value, loc)
		return t, "", err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, "", err
	}
	return t, offset, nil
}

func literalOffset(value string) string {
	if strings.HasSuffix(value, "Z") {
		return "Z"
	}
	if len(value) >= len("2006-01-02T15+00:00") {
		tail := value[len(value)-6:]
		if (tail[0] == '+' || tail[0] == '-') && tail[3] == ':' {
			return tail
		}
	}
	return ""
}

// parseDuration accepts the service-call "[-][DD ]HH:MM:SS" form.
func parseDuration(value string) (time.Duration, error) {
	malformed := func() error {
		return domain.NewValidationError(domain.RuleMalformedValue,
			fmt.Sprintf("invalid duration %q", value), "duration")
	}

	s := value
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var days int64
	if i := strings.IndexByte(s, ' '); i >= 0 {
		d, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil || d < 0 {
			return 0, malformed()
		}
		days = d
		s = s[i+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, malformed()
	}
	nums := make([]int64, 3)
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, malformed()
		}
		nums[i] = n
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(nums[0])*time.Hour +
		time.Duration(nums[1])*time.Minute +
		time.Duration(nums[2])*time.Second
	if neg {
		d = -d
	}
	return d, nil
}
