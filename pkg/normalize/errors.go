package normalize

import "fmt"

// ErrTooComplex is returned by Normalize when a query's worst-case
// complexity exceeds the admission budget (§4.2.1).
type ErrTooComplex struct {
	Computed uint64
	Max      uint64
}

func (e *ErrTooComplex) Error() string {
	return fmt.Sprintf("query too complex: computed complexity %d exceeds maximum %d", e.Computed, e.Max)
}
