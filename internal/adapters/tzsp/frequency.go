package tzsp

// reconstructFrequency rebuilds the kHz frequency the way the reference
// receiver does when no vendor IE already supplied one. On the 5 GHz base
// the TZSP channel tag is used (with the Ubiquiti 4.9 GHz correction when
// the beacon channel calls for it); on other bases the channel number
// carried in the beacon itself is preferred (it disambiguates overlapping
// DSSS channels the TZSP sensor can't), falling back to the TZSP channel tag.
//
// frequencyBase is the sensor's configured band base in MHz (2407 for
// 2.4 GHz, 5000 for 5 GHz); channelWidth is purely cosmetic and has no
// effect on the arithmetic here.
func reconstructFrequency(frequencyBase int, beaconChannel int, tzspChannel *uint8) int {
	if frequencyBase == 5000 && tzspChannel != nil {
		if beaconChannel >= 160 && beaconChannel <= 199 &&
			*tzspChannel >= 11 && *tzspChannel <= 50 &&
			beaconChannel-int(*tzspChannel) == 184-35 {
			// Ubiquiti AirMax/AirMax-AC 4.9 GHz band workaround.
			return (4920 + (beaconChannel-184)*5) * 1000
		}
		return (frequencyBase + int(*tzspChannel)*5) * 1000
	}

	channel := -1
	if beaconChannel >= 0 {
		channel = beaconChannel
	} else if tzspChannel != nil {
		channel = int(*tzspChannel)
	}
	if channel < 0 {
		return 0
	}

	switch {
	case frequencyBase == 2407 && channel >= 128:
		// Sub-2.4 GHz band, encoded as a negative unsigned 8-bit channel.
		return (frequencyBase - (256-channel)*5) * 1000
	case frequencyBase == 2407 && channel == 14:
		return 2484 * 1000
	default:
		return (frequencyBase + channel*5) * 1000
	}
}

// reconstructCambiumFrequency is Cambium's narrower fallback: it never hits
// the 4.9 GHz or sub-2.4 GHz special cases, because the Cambium beacon
// either already carries its own frequency field or the sensor's plain
// TZSP channel tag is trusted as-is.
func reconstructCambiumFrequency(frequencyBase int, tzspChannel *uint8) int {
	if tzspChannel == nil {
		return 0
	}
	return (int(*tzspChannel)*5 + frequencyBase) * 1000
}
