// Package band maps radio frequencies to amateur bands and the hardware
// codes the decoder sends downstream.
package band

// Band identifies one amateur radio band at switching granularity.
type Band int

// The eleven bands the decoder can select, plus Unknown for anything
// outside the covered ranges.
const (
	Band160m Band = iota
	Band80m
	Band60m
	Band40m
	Band30m
	Band20m
	Band17m
	Band15m
	Band12m
	Band10m
	Band6m
	BandUnknown
)

// Classify maps a frequency in kHz to a band. Ascending half-open
// intervals: a boundary value belongs to the band above it, so exactly
// 2000 kHz is 80m, not 160m. Every input resolves to some band;
// anything at or above 60000 kHz comes back as BandUnknown.
func Classify(frequencyKHz float64) Band {
	switch {
	case frequencyKHz < 2000:
		return Band160m
	case frequencyKHz < 4000:
		return Band80m
	case frequencyKHz < 6000:
		return Band60m
	case frequencyKHz < 8000:
		return Band40m
	case frequencyKHz < 11000:
		return Band30m
	case frequencyKHz < 15000:
		return Band20m
	case frequencyKHz < 19000:
		return Band17m
	case frequencyKHz < 22000:
		return Band15m
	case frequencyKHz < 25000:
		return Band12m
	case frequencyKHz < 30000:
		return Band10m
	case frequencyKHz < 60000:
		return Band6m
	default:
		return BandUnknown
	}
}

// BCD returns the 4-bit code written to the band-pass filter relays.
// Note the unmatched bucket shares code 0 with 60m; the legacy decoder
// hardware tables were defined that way and the relay boxes in the
// field expect it, so it stays.
func (b Band) BCD() byte {
	switch b {
	case Band160m:
		return 0b0001
	case Band80m:
		return 0b0010
	case Band60m:
		return 0b0000
	case Band40m:
		return 0b0011
	case Band30m:
		return 0b0100
	case Band20m:
		return 0b0101
	case Band17m:
		return 0b0110
	case Band15m:
		return 0b0111
	case Band12m:
		return 0b1000
	case Band10m:
		return 0b1001
	case Band6m:
		return 0b1010
	default:
		return 0b0000
	}
}

// SwitchPort returns the Antenna Genius port number for the band.
// 60m sits on port 11 because the standard 4O3A port map assigns
// ports 1-10 to the contest bands. The unmatched bucket falls back to
// port 1, which disagrees with BCD's fallback; that asymmetry is
// inherited from the hardware tables and deliberate.
func (b Band) SwitchPort() int {
	switch b {
	case Band160m:
		return 1
	case Band80m:
		return 2
	case Band60m:
		return 11
	case Band40m:
		return 3
	case Band30m:
		return 4
	case Band20m:
		return 5
	case Band17m:
		return 6
	case Band15m:
		return 7
	case Band12m:
		return 8
	case Band10m:
		return 9
	case Band6m:
		return 10
	default:
		return 1
	}
}

// String returns the display name, e.g. "20m".
func (b Band) String() string {
	switch b {
	case Band160m:
		return "160m"
	case Band80m:
		return "80m"
	case Band60m:
		return "60m"
	case Band40m:
		return "40m"
	case Band30m:
		return "30m"
	case Band20m:
		return "20m"
	case Band17m:
		return "17m"
	case Band15m:
		return "15m"
	case Band12m:
		return "12m"
	case Band10m:
		return "10m"
	case Band6m:
		return "6m"
	default:
		return "unknown"
	}
}
