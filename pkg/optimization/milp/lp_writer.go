package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const termsPerLine = 8

// WriteLP writes the model in CPLEX LP format so it can be handed to an
// external solver or infeasibility analyser
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	names := make([]string, len(m.vars))
	for i, v := range m.vars {
		names[i] = lpName(v.Name, "x", i)
	}

	fmt.Fprintf(bw, "\\ %s\n", m.Name)
	fmt.Fprintf(bw, "\\ %d variables, %d constraints\n", len(m.vars), len(m.constraints))
	bw.WriteString("Minimize\n obj:")
	written := 0
	for i, c := range m.objective {
		if c == 0 {
			continue
		}
		writeTerm(bw, c, names[i], written)
		written++
	}
	if m.objectiveConstant != 0 {
		fmt.Fprintf(bw, " %s", signed(m.objectiveConstant))
	}
	if written == 0 && m.objectiveConstant == 0 {
		bw.WriteString(" 0")
	}
	bw.WriteString("\nSubject To\n")

	for i, c := range m.constraints {
		fmt.Fprintf(bw, " %s:", lpName(c.Name, "c", i))
		if len(c.Terms) == 0 {
			// LP format needs at least one term
			fmt.Fprintf(bw, " 0 %s", names[0])
		}
		for j, t := range c.Terms {
			writeTerm(bw, t.Coef, names[t.Var], j)
		}
		fmt.Fprintf(bw, " %s %s\n", c.Sense, strconv.FormatFloat(c.RHS, 'g', -1, 64))
	}

	bw.WriteString("Bounds\n")
	for i, v := range m.vars {
		if v.Kind == Binary {
			continue
		}
		lower := strconv.FormatFloat(v.Lower, 'g', -1, 64)
		if math.IsInf(v.Upper, 1) {
			if v.Lower != 0 {
				fmt.Fprintf(bw, " %s >= %s\n", names[i], lower)
			}
			continue
		}
		fmt.Fprintf(bw, " %s <= %s <= %s\n", lower, names[i], strconv.FormatFloat(v.Upper, 'g', -1, 64))
	}

	writeSection(bw, "General", m.vars, names, Integer)
	writeSection(bw, "Binary", m.vars, names, Binary)
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeSection(bw *bufio.Writer, title string, vars []Variable, names []string, kind VarKind) {
	header := false
	for i, v := range vars {
		if v.Kind != kind {
			continue
		}
		if !header {
			bw.WriteString(title + "\n")
			header = true
		}
		fmt.Fprintf(bw, " %s\n", names[i])
	}
}

func writeTerm(bw *bufio.Writer, coef float64, name string, position int) {
	if position > 0 && position%termsPerLine == 0 {
		bw.WriteString("\n   ")
	}
	fmt.Fprintf(bw, " %s %s", signed(coef), name)
}

func signed(v float64) string {
	if v < 0 {
		return "- " + strconv.FormatFloat(-v, 'g', -1, 64)
	}
	return "+ " + strconv.FormatFloat(v, 'g', -1, 64)
}

// lpName turns a readable name into an LP-format identifier, suffixed with
// the arena index so it stays unique
func lpName(name, prefix string, index int) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" || (s[0] >= '0' && s[0] <= '9') || s[0] == '.' {
		s = prefix + "_" + s
	}
	return fmt.Sprintf("%s_%d", s, index)
}
