package entity

// Resolution is a charting resolution identifier ("1", "5", "15", "30",
// "60", "240", "1D", "1W"). Unknown resolutions fall back to one minute.
type Resolution string

// resolutionMs maps a resolution to its interval length in milliseconds.
var resolutionMs = map[Resolution]int64{
	"1":   60_000,
	"5":   300_000,
	"15":  900_000,
	"30":  1_800_000,
	"60":  3_600_000,
	"240": 14_400_000,
	"1D":  86_400_000,
	"1W":  604_800_000,
}

// SupportedResolutions lists every resolution the streaming layer accepts.
var SupportedResolutions = []Resolution{"1", "5", "15", "30", "60", "240", "1D", "1W"}

// Ms returns the interval length of the resolution in milliseconds.
func (r Resolution) Ms() int64 {
	if ms, ok := resolutionMs[r]; ok {
		return ms
	}
	return 60_000
}

// Valid reports whether r is one of the supported resolutions.
func (r Resolution) Valid() bool {
	_, ok := resolutionMs[r]
	return ok
}

// NextBarTime returns the opening time of the bar that follows a bar
// opened at barTime.
func NextBarTime(barTime int64, r Resolution) int64 {
	return barTime + r.Ms()
}

// AlignBarTime returns the boundary-aligned opening time of the slot
// containing tradeTime, given that nextBarTime is a known boundary.
// Integer division keeps future boundaries in sync even when whole
// intervals pass without a tick.
func AlignBarTime(tradeTime, nextBarTime int64, r Resolution) int64 {
	ms := r.Ms()
	return nextBarTime + (tradeTime-nextBarTime)/ms*ms
}
