package lp

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteLP renders the model in CPLEX LP format, the hand-off format for
// external solvers. Variables are written as x{id}; each constraint group is
// preceded by a comment carrying its name and row labels.
func WriteLP(w io.Writer, m *Model) error {
	bw := &errWriter{w: w}

	bw.printf("\\ gridopt model: %d variables, %d constraints\n", m.NumVars(), m.NumCons())
	bw.printf("minimize\n obj:")
	if len(m.Objective()) == 0 {
		bw.printf(" 0")
	}
	for i, t := range m.Objective() {
		bw.printf(" %s x%d", coeff(t.Coeff), t.Var)
		if (i+1)%8 == 0 {
			bw.printf("\n ")
		}
	}
	bw.printf("\n\nsubject to\n")

	cn := 0
	for _, set := range m.Constraints() {
		bw.printf("\\ %s\n", set.Key)
		for _, row := range set.Rows {
			if row.Label != "" {
				bw.printf("\\ %s\n", row.Label)
			}
			bw.printf(" c%d:", cn)
			cn++
			written := 0
			for _, t := range row.Terms {
				if !t.Var.Valid() || t.Coeff == 0 {
					continue
				}
				bw.printf(" %s x%d", coeff(t.Coeff), t.Var)
				written++
				if written%8 == 0 {
					bw.printf("\n ")
				}
			}
			if written == 0 {
				// structurally empty rows never reach the writer; guard anyway
				bw.printf(" 0")
			}
			bw.printf(" %s %.12g\n", row.Sense, row.RHS)
		}
	}

	bw.printf("\nbounds\n")
	var integers []string
	for _, v := range m.Variables() {
		rows := v.Snaps
		if rows == 0 {
			rows = 1
		}
		for t := 0; t < rows; t++ {
			for j := range v.Assets {
				id := v.ID(t, j)
				if !id.Valid() {
					continue
				}
				lo, hi := v.Lower(t, j), v.Upper(t, j)
				switch {
				case math.IsInf(lo, -1) && math.IsInf(hi, 1):
					bw.printf(" x%d free\n", id)
				case math.IsInf(hi, 1):
					bw.printf(" x%d >= %.12g\n", id, lo)
				default:
					bw.printf(" %.12g <= x%d <= %.12g\n", lo, id, hi)
				}
				if v.Integer {
					integers = append(integers, fmt.Sprintf("x%d", id))
				}
			}
		}
	}

	if len(integers) > 0 {
		bw.printf("\ngeneral\n %s\n", strings.Join(integers, " "))
	}
	bw.printf("\nend\n")
	return bw.err
}

func coeff(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.12g", v)
	}
	return fmt.Sprintf("%.12g", v)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
