package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// Observation is a current-conditions snapshot for one location.
type Observation struct {
	Location  string
	Condition string
	TempC     int
}

// WeatherSource provides current conditions for a location. Implementations
// may call out to a real provider; the engine only needs this interface.
type WeatherSource interface {
	Current(ctx context.Context, location string) (Observation, error)
}

// StaticWeather is a deterministic offline source. Conditions are derived
// from the location name, so repeated asks about the same place agree with
// each other. It stands in when no live provider is configured.
type StaticWeather struct{}

var staticConditions = []struct {
	condition string
	tempC     int
}{
	{"sunny", 24},
	{"partly cloudy", 18},
	{"overcast", 14},
	{"light rain", 11},
	{"clear", 21},
	{"windy", 16},
}

func (StaticWeather) Current(_ context.Context, location string) (Observation, error) {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(location))))
	pick := staticConditions[h.Sum32()%uint32(len(staticConditions))]
	return Observation{
		Location:  location,
		Condition: pick.condition,
		TempC:     pick.tempC,
	}, nil
}

// FormatObservation renders an observation as a one-line answer.
func FormatObservation(o Observation) string {
	return fmt.Sprintf("It's %s and %d°C in %s right now.", o.Condition, o.TempC, o.Location)
}
