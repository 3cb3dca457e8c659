package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sieve/pkg/schema"
)

// GraphOverlay marks schemas to highlight on the graph.
type GraphOverlay struct {
	// Broken lists schemas that failed to compile. They are drawn without
	// fields.
	Broken []string
}

// GenerateMermaid produces a Mermaid flowchart of schemas and their embeds.
// It applies semantic styling:
// - Schema: [Rectangle] listing its scalar fields
// - Broken schema: [/Parallelogram/]
// - Embed: --> labelled with the field, ==> when required, [] for lists
//
// Inline embeds appear as their own nodes. Each descriptor is drawn once,
// however many schemas embed it.
func GenerateMermaid(descriptors []*schema.Descriptor, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[*schema.Descriptor]string)
	used := make(map[string]bool)
	var queue []*schema.Descriptor

	idOf := func(d *schema.Descriptor) string {
		if id, ok := ids[d]; ok {
			return id
		}
		id := sanitizeMermaidID(d.Name())
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s_%d", sanitizeMermaidID(d.Name()), n)
		}
		used[id] = true
		ids[d] = id
		queue = append(queue, d)
		return id
	}

	for _, d := range descriptors {
		idOf(d)
	}
	for i := 0; i < len(queue); i++ {
		d := queue[i]
		id := ids[d]

		var scalars []string
		var edges []string
		for _, f := range d.Fields() {
			if !f.IsEmbed() {
				marker := ""
				if d.IsRequired(f.Name) {
					marker = "*"
				}
				scalars = append(scalars, fmt.Sprintf("%s%s: %s", f.Name, marker, f.TypeName()))
				continue
			}

			label := f.Name
			if f.Many {
				label += "[]"
			}
			target := idOf(f.Embed)
			if d.IsRequired(f.Name) {
				edges = append(edges, fmt.Sprintf("    %s == \"%s\" ==> %s\n", id, label, target))
			} else {
				edges = append(edges, fmt.Sprintf("    %s -- \"%s\" --> %s\n", id, label, target))
			}
		}

		body := d.Name()
		if len(scalars) > 0 {
			body += " <br/> " + strings.Join(scalars, " <br/> ")
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escapeLabel(body)))
		for _, e := range edges {
			sb.WriteString(e)
		}
	}

	if overlay != nil && len(overlay.Broken) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef broken fill:#ffebee,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		for _, name := range overlay.Broken {
			safeID := sanitizeMermaidID(name)
			if used[safeID] {
				safeID += "_broken"
			}
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", safeID, escapeLabel(name)))
			sb.WriteString(fmt.Sprintf("    class %s broken;\n", safeID))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
