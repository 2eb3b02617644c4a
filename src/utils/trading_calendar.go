package utils

import (
	"time"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	"github.com/scmhub/calendar"
)

// TradingCalendar tells when a market is open, using scmhub/calendar where the exchange is known.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	AlwaysOn bool
	Timezone *time.Location
}

var calendarLogger = logger.NewLogger("TradingCalendar")

// -----------------------------------------------------------------------------

// GetCalendar returns the calendar governing a market.
// Crypto trades around the clock; equities follow the National Stock Exchange of India.
func GetCalendar(market models.Market) *TradingCalendar {
	if market == models.MarketCrypto {
		return &TradingCalendar{MIC: "24x7", AlwaysOn: true, Timezone: time.UTC}
	}

	mic := "xnse"
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		calendarLogger.Warning("Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri 09:15-15:30 IST).", mic)
		loc, err := time.LoadLocation("Asia/Kolkata")
		if err != nil {
			loc = time.FixedZone("IST", 5*3600+1800)
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: loc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.AlwaysOn {
		return true
	}
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.AlwaysOn {
		return true
	}
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		minutes := t.Hour()*60 + t.Minute()
		// 9:15 - 15:30 IST
		return minutes >= 9*60+15 && minutes < 15*60+30
	}

	return tc.Calendar.IsOpen(t)
}
