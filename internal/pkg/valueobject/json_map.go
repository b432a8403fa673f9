package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrScanValueNotBytes indicates the database value is not a byte slice.
var ErrScanValueNotBytes = errors.New("valueobject: jsonmap scan value is not []byte")

// JSONMap stores arbitrary JSON object data.
// @swaggertype object
type JSONMap map[string]any

// ---------------------------------------------------------------------
// SQL INTERFACES
// ---------------------------------------------------------------------

// Value implements driver.Valuer for JSONMap.
func (j JSONMap) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONMap.
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = JSONMap{}
		return nil
	}

	var bytes []byte

	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	case json.RawMessage:
		bytes = []byte(v)
	case map[string]any:
		// Some drivers may already decode JSON into a map
		*j = JSONMap(v)
		return nil
	default:
		return ErrScanValueNotBytes
	}

	var result JSONMap
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*j = result
	return nil
}

// ---------------------------------------------------------------------
// CONVERSION
// ---------------------------------------------------------------------

// Strings flattens j into string values for transports that only carry
// string maps, such as FCM data messages. Strings pass through unchanged,
// nil becomes "" and everything else is JSON encoded.
func (j JSONMap) Strings() map[string]string {
	out := make(map[string]string, len(j))
	for k, v := range j {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		default:
			b, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
