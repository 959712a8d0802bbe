package presenter

import (
	"fmt"

	"phonewatch/domain/zone"
)

// ZoneView displays the exclusion-zone list and its summary line.
type ZoneView interface {
	SetZones(lines []string)
	SetZoneStatus(string)
}

// ZoneSource lists the current zones. *zone.Store satisfies it.
type ZoneSource interface {
	List() []zone.ExclusionZone
}

// ZonePresenter renders the zone store into the view. Zones only change on
// user actions, so there is no queue; call Refresh after each mutation.
type ZonePresenter struct {
	zones ZoneSource
	view  ZoneView
}

func NewZonePresenter(zones ZoneSource, view ZoneView) *ZonePresenter {
	return &ZonePresenter{zones: zones, view: view}
}

// Refresh re-reads the store and pushes the formatted list to the view.
func (p *ZonePresenter) Refresh() {
	if p == nil || p.zones == nil || p.view == nil {
		return
	}
	list := p.zones.List()
	if len(list) == 0 {
		p.view.SetZones(nil)
		p.view.SetZoneStatus("No exclusion areas defined")
		return
	}
	lines := make([]string, 0, len(list))
	for i, z := range list {
		lines = append(lines, fmt.Sprintf("%d. %s  [%s]", i+1, z.Rect.String(), z.Source))
	}
	p.view.SetZones(lines)
	p.view.SetZoneStatus(fmt.Sprintf("%d exclusion area(s) active", len(list)))
}
