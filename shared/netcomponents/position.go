package netcomponents

import (
	"math"

	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/yohamta/donburi"
)

type NetPositionData struct {
	X, Y float64
}

var NetPosition = donburi.NewComponentType[NetPositionData]()

// LerpNetPosition interpolates between two positions
func LerpNetPosition(from, to NetPositionData, t float64) NetPositionData {
	return NetPositionData{
		X: from.X + (to.X-from.X)*t,
		Y: from.Y + (to.Y-from.Y)*t,
	}
}

// ClampCoord rounds a world coordinate and clamps it into the int16 range the
// snapshot codec can carry. Health values use the same range.
func ClampCoord(v float64) int {
	r := math.Round(v)
	if r < netconfig.MinCoord {
		return netconfig.MinCoord
	}
	if r > netconfig.MaxCoord {
		return netconfig.MaxCoord
	}
	return int(r)
}
