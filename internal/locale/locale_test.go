package locale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewResolvesBaseLanguage(t *testing.T) {
	assert.Equal(t, "fr", New("fr-CA").Tag())
	assert.Equal(t, "fr", New("fr").Tag())
	assert.Equal(t, "en", New("en-GB").Tag())
	assert.Equal(t, "en", New("").Tag())
	assert.Equal(t, "en", New("de").Tag())
}

func TestLocaleSwitches(t *testing.T) {
	fr, en := New("fr"), New("en")

	assert.True(t, fr.DayFirst())
	assert.False(t, en.DayFirst())
	assert.True(t, fr.ZipFirst())
	assert.Equal(t, time.Monday, fr.FirstWeekday())
	assert.Equal(t, time.Sunday, en.FirstWeekday())
}

func TestSeatsPluralization(t *testing.T) {
	en := New("en")
	assert.Equal(t, "1 seat available", en.Seats(1))
	assert.Equal(t, "3 seats available", en.Seats(3))
	assert.Equal(t, "0 seats available", en.Seats(0))

	fr := New("fr")
	assert.Equal(t, "1 place disponible", fr.Seats(1))
	assert.Equal(t, "4 places disponibles", fr.Seats(4))
}

func TestDurationAndNames(t *testing.T) {
	en := New("en")
	assert.Equal(t, "1 hour", en.Duration(1))
	assert.Equal(t, "2.5 hours", en.Duration(2.5))
	assert.Equal(t, "Mon", en.WeekdayShort(time.Monday))
	assert.Equal(t, "May 2024", en.MonthTitle(time.May, 2024))

	fr := New("fr")
	assert.Equal(t, "lun.", fr.WeekdayShort(time.Monday))
	assert.Equal(t, "mai 2024", fr.MonthTitle(time.May, 2024))
	assert.Equal(t, "Aucun événement", fr.T(MsgNoEvents))
}

func TestUnknownMessageFallsBackToID(t *testing.T) {
	assert.Equal(t, "Nope", New("en").T("Nope"))
}
