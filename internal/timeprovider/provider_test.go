package timeprovider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
)

func at(h, m, s int) time.Time {
	return time.Date(2026, time.March, 10, h, m, s, 0, time.UTC)
}

func TestConditionAt_WrappingWindow(t *testing.T) {
	p := Default()

	cases := []struct {
		t    time.Time
		want consts.Condition
	}{
		{at(12, 0, 0), consts.ConditionDay},
		{at(23, 44, 59), consts.ConditionDay},
		{at(23, 45, 0), consts.ConditionNight},
		{at(0, 30, 0), consts.ConditionNight},
		{at(5, 59, 59), consts.ConditionNight},
		{at(6, 0, 0), consts.ConditionDay},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, p.ConditionAt(c.t), "at %s", c.t.Format("15:04:05"))
	}
}

func TestConditionAt_SameDayWindow(t *testing.T) {
	p := New(ClockTime{Hour: 1}, ClockTime{Hour: 5})

	assert.Equal(t, consts.ConditionDay, p.ConditionAt(at(0, 59, 0)))
	assert.Equal(t, consts.ConditionNight, p.ConditionAt(at(1, 0, 0)))
	assert.Equal(t, consts.ConditionNight, p.ConditionAt(at(4, 59, 59)))
	assert.Equal(t, consts.ConditionDay, p.ConditionAt(at(5, 0, 0)))
}

func TestConditionAfter(t *testing.T) {
	p := Default()
	now := at(23, 40, 0)

	assert.Equal(t, consts.ConditionDay, p.ConditionAfter(now, 4*time.Minute))
	assert.Equal(t, consts.ConditionNight, p.ConditionAfter(now, 6*time.Minute))
}

func TestUntilNextSwitch(t *testing.T) {
	p := Default()

	assert.Equal(t, 45*time.Minute, p.UntilNextSwitch(at(23, 0, 0)))
	assert.Equal(t, 6*time.Hour, p.UntilNextSwitch(at(0, 0, 0)))
	assert.Equal(t, 30*time.Second, p.UntilNextSwitch(at(5, 59, 30)))
	// exactly at a boundary the next one is measured
	assert.Equal(t, 17*time.Hour+45*time.Minute, p.UntilNextSwitch(at(6, 0, 0)))
}
