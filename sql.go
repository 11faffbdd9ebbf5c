package upid

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"fmt"
)

var (
	_ encoding.TextMarshaler     = UPID{}
	_ encoding.TextUnmarshaler   = (*UPID)(nil)
	_ encoding.BinaryMarshaler   = UPID{}
	_ encoding.BinaryUnmarshaler = (*UPID)(nil)
	_ sql.Scanner                = (*UPID)(nil)
	_ driver.Valuer              = UPID{}
)

// MarshalText implements encoding.TextMarshaler. JSON uses it as well.
func (u UPID) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UPID) UnmarshalText(b []byte) error {
	id, err := FromStr(string(b))
	if err != nil {
		return err
	}
	*u = id
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (u UPID) MarshalBinary() ([]byte, error) { return u.Bytes(), nil }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (u *UPID) UnmarshalBinary(b []byte) error {
	id, err := FromBytes(b)
	if err != nil {
		return err
	}
	*u = id
	return nil
}

// Scan implements sql.Scanner. It accepts the string form, the 16-byte
// binary form, or NULL (leaving u unchanged).
func (u *UPID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		return u.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == binLen {
			return u.UnmarshalBinary(v)
		}
		return u.UnmarshalText(v)
	default:
		return fmt.Errorf("upid: cannot scan %T", src)
	}
}

// Value implements driver.Valuer, storing the canonical string.
func (u UPID) Value() (driver.Value, error) { return u.String(), nil }
