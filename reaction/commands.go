package reaction

import "fmt"

// SubcommandSpec describes one reaction inside a grouped command.
type SubcommandSpec struct {
	Name        string
	Description string
}

// CommandSpec describes one top-level command the platform adapter should
// register. Grouped commands carry up to 25 subcommands; alias commands
// carry none and take the target user directly.
type CommandSpec struct {
	Name        string
	Description string
	Subcommands []SubcommandSpec
}

// Commands returns the registration data for all reactions: the reactions
// chunked into grouped commands ("reaction", "reaction2", ...) plus one
// top-level command per aliased reaction.
func (m *Module) Commands() []CommandSpec {
	var specs []CommandSpec

	for start, index := 0, 0; start < len(m.reactions); start += subcommandsPerGroup {
		end := start + subcommandsPerGroup
		if end > len(m.reactions) {
			end = len(m.reactions)
		}

		index++
		name := groupPrefix
		if index > 1 {
			name = fmt.Sprintf("%s%d", groupPrefix, index)
		}

		spec := CommandSpec{
			Name:        name,
			Description: "React to someone with an animated gif.",
		}
		for _, r := range m.reactions[start:end] {
			spec.Subcommands = append(spec.Subcommands, SubcommandSpec{
				Name:        r.Name,
				Description: r.Description,
			})
		}
		specs = append(specs, spec)
	}

	for _, r := range m.reactions {
		if !r.Alias {
			continue
		}
		specs = append(specs, CommandSpec{
			Name:        r.Name,
			Description: fmt.Sprintf("[Alias for /reaction %s] %s", r.Name, r.Description),
		})
	}

	return specs
}
