// Package locale holds the translated strings and the locale-dependent
// formatting switches of the calendar (week start, day/month order,
// zip/city order).
package locale

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Message IDs.
const (
	MsgNoSessions    = "NoSessions"
	MsgNoEvents      = "NoEvents"
	MsgAddToCalendar = "AddToCalendar"
	MsgEnroll        = "Enroll"
	MsgSeats         = "SeatsAvailable"
	MsgDuration      = "Duration"
	MsgEnrollSuccess = "EnrollSuccess"
	MsgEnrollError   = "EnrollError"
	MsgReloadError   = "ReloadError"
	MsgMonthTitle    = "MonthTitle"
	MsgInstructor    = "Instructor"
)

var english = []*i18n.Message{
	{ID: MsgNoSessions, Other: "No sessions available"},
	{ID: MsgNoEvents, Other: "No Events"},
	{ID: MsgAddToCalendar, Other: "Add to Calendar"},
	{ID: MsgEnroll, Other: "Enroll"},
	{ID: MsgSeats, One: "{{.Count}} seat available", Other: "{{.Count}} seats available"},
	{ID: MsgDuration, One: "{{.Hours}} hour", Other: "{{.Hours}} hours"},
	{ID: MsgEnrollSuccess, Other: "You are now enrolled in {{.Title}}."},
	{ID: MsgEnrollError, Other: "An error occurred. Please try again."},
	{ID: MsgReloadError, Other: "Sessions could not be refreshed."},
	{ID: MsgMonthTitle, Other: "{{.Month}} {{.Year}}"},
	{ID: MsgInstructor, Other: "Instructor: {{.Name}}"},
}

var french = []*i18n.Message{
	{ID: MsgNoSessions, Other: "Aucune session disponible"},
	{ID: MsgNoEvents, Other: "Aucun événement"},
	{ID: MsgAddToCalendar, Other: "Ajouter au calendrier"},
	{ID: MsgEnroll, Other: "S'inscrire"},
	{ID: MsgSeats, One: "{{.Count}} place disponible", Other: "{{.Count}} places disponibles"},
	{ID: MsgDuration, One: "{{.Hours}} heure", Other: "{{.Hours}} heures"},
	{ID: MsgEnrollSuccess, Other: "Vous êtes inscrit à {{.Title}}."},
	{ID: MsgEnrollError, Other: "Une erreur est survenue. Veuillez réessayer."},
	{ID: MsgReloadError, Other: "Les sessions n'ont pas pu être actualisées."},
	{ID: MsgMonthTitle, Other: "{{.Month}} {{.Year}}"},
	{ID: MsgInstructor, Other: "Formateur : {{.Name}}"},
}

var (
	enWeekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	frWeekdays = [7]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."}
	enMonths   = [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	frMonths   = [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}
)

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
)

func sharedBundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		bundle = i18n.NewBundle(language.English)
		en := append([]*i18n.Message(nil), english...)
		fr := append([]*i18n.Message(nil), french...)
		for i := 0; i < 7; i++ {
			id := weekdayID(time.Weekday(i))
			en = append(en, &i18n.Message{ID: id, Other: enWeekdays[i]})
			fr = append(fr, &i18n.Message{ID: id, Other: frWeekdays[i]})
		}
		for i := 0; i < 12; i++ {
			id := monthID(time.Month(i + 1))
			en = append(en, &i18n.Message{ID: id, Other: enMonths[i]})
			fr = append(fr, &i18n.Message{ID: id, Other: frMonths[i]})
		}
		// Static tables; an error here is a programming mistake.
		if err := bundle.AddMessages(language.English, en...); err != nil {
			panic(err)
		}
		if err := bundle.AddMessages(language.French, fr...); err != nil {
			panic(err)
		}
	})
	return bundle
}

func weekdayID(w time.Weekday) string { return "Weekday." + strconv.Itoa(int(w)) }
func monthID(m time.Month) string     { return "Month." + strconv.Itoa(int(m)) }

// Locale is a resolved UI language.
type Locale struct {
	tag       string
	base      string
	localizer *i18n.Localizer
}

// New resolves a document language tag such as "fr-CA" or "en". Unknown or
// empty tags fall back to English.
func New(tag string) *Locale {
	tag = strings.TrimSpace(tag)
	base := "en"
	if t, err := language.Parse(tag); err == nil {
		b, _ := t.Base()
		base = b.String()
	}
	if base != "fr" {
		base = "en"
	}
	return &Locale{
		tag:       tag,
		base:      base,
		localizer: i18n.NewLocalizer(sharedBundle(), base),
	}
}

// Tag returns the base language in use ("en" or "fr").
func (l *Locale) Tag() string { return l.base }

// DayFirst reports whether numeric dates are written DD/MM.
func (l *Locale) DayFirst() bool { return l.base == "fr" }

// ZipFirst reports whether the postal code precedes the city.
func (l *Locale) ZipFirst() bool { return l.base == "fr" }

// FirstWeekday is the weekday that starts a calendar row.
func (l *Locale) FirstWeekday() time.Weekday {
	if l.base == "fr" {
		return time.Monday
	}
	return time.Sunday
}

// T returns the translation of id, falling back to the id itself.
func (l *Locale) T(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	s, err := l.localizer.Localize(cfg)
	if err != nil {
		return id
	}
	return s
}

// Seats renders the pluralized remaining-seats label.
func (l *Locale) Seats(n int) string {
	s, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    MsgSeats,
		PluralCount:  n,
		TemplateData: map[string]any{"Count": n},
	})
	if err != nil {
		return fmt.Sprintf("%d", n)
	}
	return s
}

// Duration renders a duration given in hours; fractional hours are kept.
func (l *Locale) Duration(hours float64) string {
	h := strconv.FormatFloat(hours, 'f', -1, 64)
	s, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    MsgDuration,
		PluralCount:  h,
		TemplateData: map[string]any{"Hours": h},
	})
	if err != nil {
		return h
	}
	return s
}

func (l *Locale) WeekdayShort(w time.Weekday) string {
	return l.T(weekdayID(w))
}

func (l *Locale) MonthName(m time.Month) string {
	return l.T(monthID(m))
}

// MonthTitle renders the grid header, e.g. "May 2024".
func (l *Locale) MonthTitle(m time.Month, year int) string {
	return l.T(MsgMonthTitle, map[string]any{"Month": l.MonthName(m), "Year": year})
}
