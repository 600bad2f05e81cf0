package reaction

// palette holds the embed accent colors responses cycle through.
var palette = []int{
	0xE74C3C, // red
	0xE67E22, // orange
	0xF1C40F, // yellow
	0x2ECC71, // green
	0x1ABC9C, // teal
	0x3498DB, // blue
	0x9B59B6, // purple
	0xE91E63, // pink
}

func (m *Module) randColor() int {
	return palette[m.randIndex(len(palette))]
}
