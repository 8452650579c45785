package core

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// Stats counts host traffic since start.
type Stats struct {
	FramesIn       uint64
	FramesOut      uint64
	BytesIn        uint64
	BytesOut       uint64
	Malformed      uint64
	ClaimsAccepted uint64
	ClaimsRejected uint64
}

// Summary formats the counters for a periodic log line.
func (s Stats) Summary(uptime time.Duration, players, entities int) string {
	return fmt.Sprintf("up %s, %d players / %d entities, in %d frames (%s), out %d frames (%s), %d malformed, claims %d ok / %d rejected",
		durafmt.Parse(uptime.Truncate(time.Second)).LimitFirstN(2).Format(shortUnits),
		players, entities,
		s.FramesIn, humanize.Bytes(s.BytesIn),
		s.FramesOut, humanize.Bytes(s.BytesOut),
		s.Malformed, s.ClaimsAccepted, s.ClaimsRejected)
}
