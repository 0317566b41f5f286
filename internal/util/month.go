package util

import "fmt"

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// PeriodKey formats a statement period as YYYY-MM
func PeriodKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ComparePeriods orders two periods chronologically: negative when a is earlier
func ComparePeriods(aYear, aMonth, bYear, bMonth int) int {
	if aYear != bYear {
		return aYear - bYear
	}
	return aMonth - bMonth
}

// MonthName returns the German month name, or the number for months outside 1..12
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprint(month)
	}
	return germanMonths[month-1]
}

// PeriodLabel renders a period like "März 2024"
func PeriodLabel(year, month int) string {
	return fmt.Sprintf("%s %d", MonthName(month), year)
}
