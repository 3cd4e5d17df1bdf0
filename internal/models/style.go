package models

// DirectorStyle is a named stylistic preset that biases generation prompts.
type DirectorStyle string

const (
	StyleNone             DirectorStyle = "NONE"
	StyleCinematicNoir    DirectorStyle = "CINEMATIC_NOIR"
	StyleVibrantEnergetic DirectorStyle = "VIBRANT_ENERGETIC"
	StyleDreamyEthereal   DirectorStyle = "DREAMY_ETHEREAL"
	StyleGrittyRealistic  DirectorStyle = "GRITTY_REALISTIC"
	StyleEpicSweeping     DirectorStyle = "EPIC_SWEEPING"
)

// DirectorStyles lists every style in display order.
var DirectorStyles = []DirectorStyle{
	StyleNone,
	StyleCinematicNoir,
	StyleVibrantEnergetic,
	StyleDreamyEthereal,
	StyleGrittyRealistic,
	StyleEpicSweeping,
}

var styleDescriptions = map[DirectorStyle]string{
	StyleNone:             "a balanced, professional, and clean cinematic style.",
	StyleCinematicNoir:    "the style of Cinematic Noir. Use high-contrast lighting, dramatic shadows, low-key lighting, and a mysterious, brooding mood. Think classic black-and-white detective films.",
	StyleVibrantEnergetic: "a Vibrant & Energetic style. Use saturated, bold colors, fast-paced cuts, dynamic camera movements, and a high-energy, optimistic mood. Think modern pop music videos.",
	StyleDreamyEthereal:   "a Dreamy & Ethereal style. Use soft focus, overexposure, slow motion, lens flares, and a magical, surreal, and gentle mood. Think fantasy sequences or perfume ads.",
	StyleGrittyRealistic:  "a Gritty & Realistic style. Use handheld camera movements, natural and available lighting, muted colors, and an authentic, documentary-like mood. Think cinéma vérité.",
	StyleEpicSweeping:     "an Epic & Sweeping style. Use wide, grand establishing shots, crane and jib movements, orchestral swells, and a majestic, awe-inspiring mood. Think blockbuster film trailers.",
}

func (s DirectorStyle) Valid() bool {
	_, ok := styleDescriptions[s]
	return ok
}

// Description returns the prompt text for the style. Unknown styles read as NONE.
func (s DirectorStyle) Description() string {
	if d, ok := styleDescriptions[s]; ok {
		return d
	}
	return styleDescriptions[StyleNone]
}
