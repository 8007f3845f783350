package rover

// LinkQuality is the coarse health signal derived each tick for external
// consumers (status LED, web UI). Precedence runs from most to least
// broken: no network beats no correction session beats a stale session;
// with a healthy session the RTK tier wins.
type LinkQuality int

const (
	QualityNoNetwork LinkQuality = iota
	QualityNoCorrections
	QualityStaleCorrections
	QualityRtkFixed
	QualityRtkFloat
	QualityFixOnly
)

func (q LinkQuality) String() string {
	switch q {
	case QualityNoNetwork:
		return "no-network"
	case QualityNoCorrections:
		return "no-corrections"
	case QualityStaleCorrections:
		return "stale-corrections"
	case QualityRtkFixed:
		return "rtk-fixed"
	case QualityRtkFloat:
		return "rtk-float"
	case QualityFixOnly:
		return "fix-no-rtk"
	default:
		return "unknown"
	}
}
