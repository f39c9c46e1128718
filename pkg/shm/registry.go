package shm

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// openRegions tracks live Raw handles per name so an operator can spot
// leaked mappings. Anonymous regions count under "(anonymous)".
var openRegions = cmap.New[int]()

func registerRegion(name string) {
	openRegions.Upsert(name, 1, func(exists bool, current, incoming int) int {
		if exists {
			return current + incoming
		}
		return incoming
	})
}

func unregisterRegion(name string) {
	openRegions.Upsert(name, 0, func(exists bool, current, _ int) int {
		return current - 1
	})
	openRegions.RemoveCb(name, func(_ string, count int, exists bool) bool {
		return exists && count <= 0
	})
}

// ActiveRegions snapshots the open handle count per region name.
func ActiveRegions() map[string]int {
	out := make(map[string]int, openRegions.Count())
	for item := range openRegions.IterBuffered() {
		out[item.Key] = item.Val
	}
	return out
}
