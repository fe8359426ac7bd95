package domain

var planetGlyphs = map[string]string{
	Sun: "☉", Moon: "☽", Mercury: "☿", Venus: "♀", Mars: "♂",
	Jupiter: "♃", Saturn: "♄", Uranus: "♅", Neptune: "♆", Pluto: "♇",
}

var signGlyphs = map[string]string{
	"Aries": "♈", "Taurus": "♉", "Gemini": "♊", "Cancer": "♋",
	"Leo": "♌", "Virgo": "♍", "Libra": "♎", "Scorpio": "♏",
	"Sagittarius": "♐", "Capricorn": "♑", "Aquarius": "♒", "Pisces": "♓",
}

var aspectGlyphs = map[string]string{
	"Conjunction": "☌", "Sextile": "⚹", "Square": "□",
	"Trine": "△", "Opposition": "☍", "Quincunx": "⚻",
}

// PlanetGlyph returns the astrological symbol, or the name itself when unknown.
func PlanetGlyph(name string) string { return glyph(planetGlyphs, name) }

// SignGlyph returns the zodiac symbol, or the name itself when unknown.
func SignGlyph(name string) string { return glyph(signGlyphs, name) }

// AspectGlyph returns the aspect symbol, or the name itself when unknown.
func AspectGlyph(name string) string { return glyph(aspectGlyphs, name) }

func glyph(table map[string]string, name string) string {
	if g, ok := table[name]; ok {
		return g
	}
	return name
}
