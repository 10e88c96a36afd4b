package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ProviderID identificador del proveedor; el JSON:API lo envía como string o como número.
type ProviderID string

// UnmarshalJSON acepta "123", 123 y null.
func (id *ProviderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProviderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("provider id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("provider id no entero: %s", n)
	}
	*id = ProviderID(n.String())
	return nil
}

func (id ProviderID) String() string { return string(id) }
