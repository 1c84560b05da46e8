package runtime

import (
	"strconv"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

// compareValues applies op to two variable values. eq and ne compare the
// text; gt and lt compare numerically and are false when either side is
// not a number. An empty op means eq.
func compareValues(op domain.CompareOp, value, other string) bool {
	switch op {
	case domain.OpGreaterThan, domain.OpLessThan:
		a, errA := strconv.ParseFloat(strings.TrimSpace(value), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(other), 64)
		if errA != nil || errB != nil {
			return false
		}
		if op == domain.OpGreaterThan {
			return a > b
		}
		return a < b
	case domain.OpNotEqual:
		return value != other
	default:
		return value == other
	}
}
