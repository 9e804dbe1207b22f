package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestWeek_ISOYearRollover(t *testing.T) {
	// Dec 30 2024 is a Monday and belongs to ISO week 1 of 2025.
	assert.Equal(t, WeekKey("2025-W01"), Week(date(2024, time.December, 30)))
	assert.Equal(t, WeekKey("2025-W01"), Week(date(2025, time.January, 1)))

	// Jan 1 2027 is a Friday in ISO week 53 of 2026.
	assert.Equal(t, WeekKey("2026-W53"), Week(date(2027, time.January, 1)))
}

func TestWeek_SameWeekSameKey(t *testing.T) {
	mon := date(2025, time.February, 10)
	sun := date(2025, time.February, 16)
	assert.Equal(t, Week(mon), Week(sun))

	nextMon := date(2025, time.February, 17)
	assert.NotEqual(t, Week(mon), Week(nextMon))
}

func TestMonth_Format(t *testing.T) {
	assert.Equal(t, MonthKey("2025-M02"), Month(date(2025, time.February, 3)))
	assert.Equal(t, MonthKey("2025-M12"), Month(date(2025, time.December, 31)))
}

func TestCurrent_Deterministic(t *testing.T) {
	now := date(2025, time.July, 9)
	w1, m1 := Current(now)
	w2, m2 := Current(now)
	assert.Equal(t, w1, w2)
	assert.Equal(t, m1, m2)
	assert.Equal(t, WeekKey("2025-W28"), w1)
	assert.Equal(t, MonthKey("2025-M07"), m1)
}

func TestMonth_DiffersAcrossISOWeekBoundary(t *testing.T) {
	// Month key follows the calendar month even when the ISO week crosses it.
	dec := date(2024, time.December, 30)
	jan := date(2025, time.January, 1)
	assert.Equal(t, Week(dec), Week(jan))
	assert.NotEqual(t, Month(dec), Month(jan))
}
