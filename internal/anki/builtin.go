package anki

const frontBackAFmt = "{{FrontSide}}\n\n<hr id=answer>\n\n"

// BasicModel is a Front/Back model with one card per note.
func BasicModel() *Model {
	return NewModel(1559383000, "Basic (ankipack)",
		[]Field{{Name: "Front"}, {Name: "Back"}},
		[]Template{{Name: "Card 1", QFmt: "{{Front}}", AFmt: frontBackAFmt + "{{Back}}"}},
	)
}

// BasicAndReversedModel is a Front/Back model with a card in each direction.
func BasicAndReversedModel() *Model {
	return NewModel(1485830179, "Basic (and reversed card) (ankipack)",
		[]Field{{Name: "Front"}, {Name: "Back"}},
		[]Template{
			{Name: "Card 1", QFmt: "{{Front}}", AFmt: frontBackAFmt + "{{Back}}"},
			{Name: "Card 2", QFmt: "{{Back}}", AFmt: frontBackAFmt + "{{Front}}"},
		},
	)
}
