// Package status renders engine snapshots as human-readable reports
// for the console and logfile.
package status

import (
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/motion"
	"github.com/flosch/pongo2/v5"
)

var reportTemplate = pongo2.Must(pongo2.FromString(
	"<{{ state }}|{{ alarm }}> X:{{ x }} Y:{{ y }} Z:{{ z }} A:{{ a }}" +
		" buf:{{ occupancy }}/{{ capacity }} ovr:{{ override }}%" +
		"{% if hold %} HOLD{% endif %}" +
		"{% if homing != \"Idle\" %} homing:{{ homing }}{% endif %}"))

// Render formats one snapshot as a single status line.
func Render(s motion.Snapshot) (string, error) {
	ctx := pongo2.Context{
		"state":     s.State,
		"alarm":     s.Alarm,
		"homing":    s.HomingPhase,
		"x":         format3(s.Position[0]),
		"y":         format3(s.Position[1]),
		"z":         format3(s.Position[2]),
		"a":         format3(s.Position[3]),
		"occupancy": s.BufferOccupancy,
		"capacity":  s.BufferCapacity,
		"override":  s.FeedOverride,
		"hold":      s.FeedHold,
	}
	return reportTemplate.Execute(ctx)
}
