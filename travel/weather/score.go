package weather

import "sort"

// Severe-condition thresholds for the hourly scan.
const (
	heavyRainMmPerHour = 5.0
	strongWindKmh      = 40.0
	thunderstormCode   = 95
	snowCode           = 70
)

// Quality labels for scored days.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
)

// ScoreDay rates a forecast day for travel on a 0-100 scale. Penalties
// accumulate for temperature extremes, precipitation, wind and adverse
// weather codes.
func ScoreDay(d Day) int {
	score := 100.0

	if d.MaxTemp > 30 || d.MinTemp < 5 {
		score -= 30
	} else if d.MaxTemp > 25 || d.MinTemp < 10 {
		score -= 15
	}

	score -= d.PrecipSum * 10
	score -= d.PrecipProb / 2

	if d.WindMax > 40 {
		score -= 25
	} else if d.WindMax > 30 {
		score -= 15
	}

	switch {
	case d.Code >= 70:
		score -= 40
	case d.Code >= 50:
		score -= 30
	case d.Code >= 30:
		score -= 20
	}

	if score < 0 {
		score = 0
	}
	return int(score)
}

// Quality maps a day score to its label.
func Quality(score int) string {
	switch {
	case score >= 80:
		return QualityExcellent
	case score >= 60:
		return QualityGood
	case score >= 40:
		return QualityFair
	default:
		return QualityPoor
	}
}

// RankDays scores each day and returns them ordered best first. Ties keep
// chronological order.
func RankDays(days []Day) []ScoredDay {
	out := make([]ScoredDay, len(days))
	for i, d := range days {
		score := ScoreDay(d)
		out[i] = ScoredDay{Day: d, Score: score, Quality: Quality(score)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Describe translates a WMO weather code into a short phrase.
func Describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code >= 1 && code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "foggy"
	case code >= 51 && code <= 55:
		return "drizzle"
	case code >= 61 && code <= 65:
		return "rain"
	case code >= 71 && code <= 75:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code >= 95 && code <= 99:
		return "thunderstorm"
	default:
		return "unknown"
	}
}

// Condition buckets a forecast day into the coarse condition keywords used
// for weather-aware place and activity suggestions.
func Condition(d Day) string {
	switch {
	case d.Code >= 71 && d.Code <= 77, d.Code == 85, d.Code == 86:
		return "snowy"
	case d.Code >= 51:
		return "rainy"
	case d.WindMax > 40:
		return "windy"
	case d.Code >= 2:
		return "cloudy"
	default:
		return "sunny"
	}
}
