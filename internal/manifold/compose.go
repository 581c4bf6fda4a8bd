package manifold

import "strings"

// Compose renders a Surfaced result into the fixed three-section text
// block the engine hands back to a caller: conscious neighborhoods, then
// subconscious, then novel cross-manifold links. A section with nothing
// to show is omitted entirely rather than printed empty.
func Compose(surfaced Surfaced) string {
	var b strings.Builder

	writeSection(&b, "Conscious", surfaced.Conscious)
	writeSection(&b, "Subconscious", surfaced.Subconscious)

	if len(surfaced.Novel) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Novel Links\n")
		for _, link := range surfaced.Novel {
			b.WriteString("- ")
			b.WriteString(link.ConsciousWord)
			b.WriteString(" relates to ")
			b.WriteString(link.SubconsciousWord)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeSection(b *strings.Builder, title string, neighborhoods []NeighborhoodSurface) {
	if len(neighborhoods) == 0 {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n")
	for _, n := range neighborhoods {
		label := n.EpisodeName
		if label == "" {
			label = n.EpisodeID
		}
		b.WriteString("### ")
		b.WriteString(label)
		b.WriteString("\n")
		words := make([]string, len(n.Fragments))
		for i, f := range n.Fragments {
			words[i] = f.Word
		}
		b.WriteString(strings.Join(words, ", "))
		b.WriteString("\n")
	}
}
