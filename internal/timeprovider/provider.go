package timeprovider

import (
	"time"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) secondsOfDay() int {
	return c.Hour*3600 + c.Minute*60
}

// at returns this clock time on the calendar day of t, in t's location.
func (c ClockTime) at(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// Provider classifies wall-clock times as day or night and computes the distance to the next switch.
// It holds no mutable state.
type Provider struct {
	nightEntrance ClockTime
	dayEntrance   ClockTime
}

// New returns a provider whose night window starts at nightEntrance and ends at dayEntrance.
// The window may wrap past midnight.
func New(nightEntrance, dayEntrance ClockTime) *Provider {
	return &Provider{nightEntrance: nightEntrance, dayEntrance: dayEntrance}
}

// Default uses a 23:45 to 06:00 night window.
func Default() *Provider {
	return New(
		ClockTime{Hour: consts.DefaultNightEntranceHour, Minute: consts.DefaultNightEntranceMin},
		ClockTime{Hour: consts.DefaultDayEntranceHour, Minute: consts.DefaultDayEntranceMin},
	)
}

// ConditionAt reports whether t falls in the day or the night window.
func (p *Provider) ConditionAt(t time.Time) consts.Condition {
	sod := t.Hour()*3600 + t.Minute()*60 + t.Second()
	ns, ds := p.nightEntrance.secondsOfDay(), p.dayEntrance.secondsOfDay()

	var night bool
	switch {
	case ns == ds:
		night = false
	case ns > ds:
		night = sod >= ns || sod < ds
	default:
		night = sod >= ns && sod < ds
	}
	if night {
		return consts.ConditionNight
	}
	return consts.ConditionDay
}

// ConditionAfter reports the condition at now+d.
func (p *Provider) ConditionAfter(now time.Time, d time.Duration) consts.Condition {
	return p.ConditionAt(now.Add(d))
}

// UntilNextSwitch returns the time remaining from t until the next day/night boundary.
// The result is always positive; at a boundary it measures to the following one.
func (p *Provider) UntilNextSwitch(t time.Time) time.Duration {
	next := func(c ClockTime) time.Duration {
		b := c.at(t)
		if !b.After(t) {
			b = c.at(t.AddDate(0, 0, 1))
		}
		return b.Sub(t)
	}
	toNight, toDay := next(p.nightEntrance), next(p.dayEntrance)
	if toNight < toDay {
		return toNight
	}
	return toDay
}

// Personal.AI order the ending
