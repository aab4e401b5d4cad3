package status

import "strconv"

func format3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
