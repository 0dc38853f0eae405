package panels

import "strings"

// ParseInput turns a dashboard input line into Args. Tokens of the form
// name=value set that param when the panel declares it; all remaining text
// fills the primary param.
func ParseInput(p *Panel, line string) Args {
	args := make(Args)
	known := make(map[string]bool, len(p.Params))
	for _, param := range p.Params {
		known[param.Name] = true
	}

	var free []string
	for _, tok := range strings.Fields(line) {
		if name, value, ok := strings.Cut(tok, "="); ok && known[name] {
			args[name] = value
			continue
		}
		free = append(free, tok)
	}
	if primary := p.Primary(); primary.Name != "" && len(free) > 0 {
		if _, set := args[primary.Name]; !set {
			args[primary.Name] = strings.Join(free, " ")
		}
	}
	return args
}

// ParseAssignments parses repeated name=value flags.
func ParseAssignments(pairs []string) Args {
	args := make(Args, len(pairs))
	for _, pair := range pairs {
		if name, value, ok := strings.Cut(pair, "="); ok {
			args[strings.TrimSpace(name)] = value
		}
	}
	return args
}
