package domain

import "fmt"

// ApplyClimateModifiers returns a warmed copy of the track: wind is boosted,
// the radius of maximum wind shrinks where known, central pressure follows
// the boosted wind, and the metadata is retagged as synthetic.
func ApplyClimateModifiers(track Track, mod ClimateModifier) Track {
	out := track.Clone()

	for i := range out.Points {
		p := &out.Points[i]
		p.MaxSustainedWind *= mod.WindBoost
		if p.RadiusMaxWind > 0 {
			p.RadiusMaxWind *= mod.RMWShrink
		}
		if p.CentralPressure > 0 {
			p.CentralPressure = PressureFromWind(p.MaxSustainedWind)
		}
	}

	sid := track.SID
	if sid == "" {
		sid = "N/A"
	}
	out.SID = fmt.Sprintf("SYNTH_%s_WARMED", sid)
	out.Scenario = fmt.Sprintf("Wind x%g, RMW x%g", mod.WindBoost, mod.RMWShrink)
	out.OrigEventFlag = false
	out.Category = Category(out.PeakWind())
	return out
}

// ApplyPathway applies the pathway's modifier. The historical pathway
// returns an unmodified copy.
func ApplyPathway(track Track, p Pathway) Track {
	mod := p.Modifier()
	if mod.Identity() {
		return track.Clone()
	}
	return ApplyClimateModifiers(track, mod)
}
