package conf

import "github.com/spf13/viper"

// AvailabilitySignals are the two inputs that decide which backend answers a request.
type AvailabilitySignals struct {
	VisionCredentials string // credential file path, empty when not configured
	MockAPIURL        string // remote mock endpoint, empty when not configured
}

// Signals reads the availability signals from viper. Bound environment
// variables are consulted on every call, so a changed variable takes effect
// on the next dispatch without reloading.
func Signals() AvailabilitySignals {
	return AvailabilitySignals{
		VisionCredentials: viper.GetString("vision.credentialsfile"),
		MockAPIURL:        viper.GetString("mockapi.url"),
	}
}
