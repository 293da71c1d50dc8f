package ride

import (
	"fmt"
	"strconv"

	t "github.com/bikebuddy/bikebuddy-service/internal/types"
)

// Comfort thresholds for a ride. The rule table in Analyze reads these
// top to bottom; keep them named so the table stays auditable.
const (
	TempMinC           = 10.0
	TempMaxC           = 30.0
	PrecipitationMaxMm = 0.5
	WindSpeedMaxKmh    = 25.0
)

// Analyze maps one weather sample to a go/no-go ride decision. Rules are
// checked in order and the first violated threshold wins, so a cold rainy
// day reports cold, not rain.
func Analyze(w t.WeatherSample) t.RideDecision {
	summary := formatWeatherSummary(w)

	if w.TemperatureCelsius < TempMinC {
		return t.RideDecision{
			Message: "It's too cold!",
			Reason: fmt.Sprintf("The temperature is %s°C, which is below the comfortable minimum of %s°C.",
				ftoa(w.TemperatureCelsius), ftoa(TempMinC)),
			WeatherSummary: summary,
		}
	}
	if w.TemperatureCelsius > TempMaxC {
		return t.RideDecision{
			Message: "It's too hot!",
			Reason: fmt.Sprintf("The temperature is %s°C, which is above the comfortable maximum of %s°C.",
				ftoa(w.TemperatureCelsius), ftoa(TempMaxC)),
			WeatherSummary: summary,
		}
	}
	if w.PrecipitationMm > PrecipitationMaxMm {
		return t.RideDecision{
			Message: "Rain predicted!",
			Reason: fmt.Sprintf("Precipitation is %smm, exceeding the preferred maximum of %smm.",
				ftoa(w.PrecipitationMm), ftoa(PrecipitationMaxMm)),
			WeatherSummary: summary,
		}
	}
	if w.WindSpeedKmh > WindSpeedMaxKmh {
		return t.RideDecision{
			Message: "Too windy!",
			Reason: fmt.Sprintf("Wind speed is %skm/h, which is over the comfortable limit of %skm/h.",
				ftoa(w.WindSpeedKmh), ftoa(WindSpeedMaxKmh)),
			WeatherSummary: summary,
		}
	}

	return t.RideDecision{
		IsGoodDay:      true,
		Message:        "Perfect day for a ride!",
		WeatherSummary: summary,
	}
}

func formatWeatherSummary(w t.WeatherSample) string {
	return fmt.Sprintf("Temp: %s°C, Precipitation: %smm, Wind: %skm/h",
		ftoa(w.TemperatureCelsius), ftoa(w.PrecipitationMm), ftoa(w.WindSpeedKmh))
}

// ftoa renders a value without trailing zeros, so 22 prints as "22" and
// 22.5 as "22.5".
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
