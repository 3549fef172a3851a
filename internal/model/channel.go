package model

import "strings"

// Channel names a measured quantity in the common logger format.
type Channel string

const (
	ChannelSoil     Channel = "t1"  // soil temperature
	ChannelSurface  Channel = "t2"  // surface temperature
	ChannelAir      Channel = "t3"  // air temperature
	ChannelMoisture Channel = "SMC" // soil moisture count
)

// Channels lists the known channels in output column order.
var Channels = []Channel{ChannelSoil, ChannelSurface, ChannelAir, ChannelMoisture}

// ParseChannel maps a column or config key onto a known channel. Matching is
// case-insensitive because viper lower-cases map keys.
func ParseChannel(name string) (Channel, bool) {
	n := strings.TrimSpace(name)
	for _, c := range Channels {
		if strings.EqualFold(n, string(c)) {
			return c, true
		}
	}
	return "", false
}

// LoggerType classifies a series by the channels its logger records.
type LoggerType string

const (
	// LoggerTypeAirOnly is the single-channel air temperature logger.
	LoggerTypeAirOnly LoggerType = "TL"
	// LoggerTypeMultiChannel records soil, surface and air temperature plus moisture.
	LoggerTypeMultiChannel LoggerType = "TMS"
)

// ClassifyLogger returns LoggerTypeAirOnly when soil, surface and moisture
// carry no data at all, and LoggerTypeMultiChannel otherwise.
func ClassifyLogger(s *Series) LoggerType {
	for _, c := range []Channel{ChannelSoil, ChannelSurface, ChannelMoisture} {
		if s.HasData(c) {
			return LoggerTypeMultiChannel
		}
	}
	return LoggerTypeAirOnly
}

// TemperatureChannels returns the channels that count towards row
// completeness for the given logger type.
func (t LoggerType) TemperatureChannels() []Channel {
	if t == LoggerTypeAirOnly {
		return []Channel{ChannelAir}
	}
	return []Channel{ChannelSoil, ChannelSurface, ChannelAir}
}
