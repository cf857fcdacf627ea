package fields

import (
	"fmt"
	"strconv"
	"strings"
)

type MovieRuntime int32

func (m MovieRuntime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(fmt.Sprintf("%d mins", m))), nil
}

// UnmarshalJSON accepts both the catalog's plain integer and the "N mins" form.
func (m *MovieRuntime) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSuffix(unquoted, " mins")
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid runtime %s: %w", data, err)
	}
	*m = MovieRuntime(n)
	return nil
}
